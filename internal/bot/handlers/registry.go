package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its middleware.
// It encapsulates all information needed to register and dispatch a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
	Description string
}

// Final returns the handler wrapped in its middleware. The first middleware
// in the slice is the outermost.
func (r RegisteredHandler) Final() tgbot.HandlerFunc {
	handler := r.Handler
	for i := len(r.Middleware) - 1; i >= 0; i-- {
		handler = r.Middleware[i](handler)
	}
	return handler
}

func command(pattern, description string, handler tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     pattern,
		Handler:     handler,
		Middleware:  mw,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Description: description,
	}
}

// RegisterAllCommands initializes and returns a map of all available bot
// commands keyed by "/name". The same handlers serve native slash commands
// and the per-chat prefix form.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	pick := NewPickHandler(deps)
	handlers["/what2eat"] = command("what2eat", "隨機抽選餐點", pick)
	handlers["/pick"] = command("pick", "隨機抽選餐點", pick)
	handlers["/help"] = command("help", "查看說明文件與客服群組", NewHelpHandler(deps))

	chatAdmin := ChatAdminOnly(deps)
	handlers["/prefix"] = command("prefix", "設定指令前綴（群組管理員）", NewPrefixHandler(deps), chatAdmin)
	handlers["/triggers"] = command("triggers", "管理觸發詞（群組管理員）", NewTriggersHandler(deps), chatAdmin)

	admin := AdminOnly(deps)
	handlers["/reload"] = command("reload", "重新載入餐廳資料（管理員）", NewReloadHandler(deps), admin)
	handlers["/stats"] = command("stats", "快取統計（管理員）", NewStatsHandler(deps), admin)

	return handlers
}
