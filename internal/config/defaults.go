package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"
	DefaultDataDir  = "data"

	DefaultPickerMaxAttempts = 5

	DefaultCooldownWindow    = 10 * time.Second
	DefaultCooldownScope     = "chat"
	DefaultCooldownNoticeTTL = 3 * time.Second

	DefaultRemoteDriver       = "sqlite"
	DefaultRemoteSQLitePath   = "settings.db"
	DefaultRemotePollInterval = 5 * time.Second
	DefaultRemoteTimeout      = 10 * time.Second
	DefaultRemoteTombstoneTTL = 7 * 24 * time.Hour

	DefaultBotPrefix      = "!"
	DefaultBotManualURL   = "https://hackmd.io/@eelayntris/what2eat"
	DefaultBotMaxTriggers = 20

	DefaultCrawlerMinProducts    = 5
	DefaultCrawlerDelay          = 500 * time.Millisecond
	DefaultCrawlerRequestTimeout = 30 * time.Second
	DefaultCrawlerRetries        = 2
	DefaultCrawlerUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	DefaultFoodPandaWebURL = "https://www.foodpanda.com.tw"
	DefaultFoodPandaAPIURL = "https://tw.fd-api.com"
	DefaultFoodPandaAPIKey = "volo"
	DefaultUberEatsWebURL  = "https://www.ubereats.com"
	DefaultUberEatsLocale  = "tw"
)

// DefaultBotTriggers are the words that invoke a pick in every chat unless
// overridden.
var DefaultBotTriggers = []string{"吃什麼"}

// DefaultFoodPandaCities are the foodPanda Taiwan city listing slugs.
var DefaultFoodPandaCities = []string{
	"taipei-city", "new-taipei-city", "taichung-city", "kaohsiung-city",
	"hsinchu-city", "taoyuan-city", "keelung", "tainan-city", "miaoli-county",
	"chiayi-city", "changhua", "yilan-city", "pingtung-city", "yunlin-county",
	"hualien", "nantou-county", "taitung-county", "penghu-city", "kinmen-city",
}

// DefaultMessages are the built-in zh-TW texts.
var DefaultMessages = MessagesConfig{
	TryAgain:       "🤔 這次沒抽到，請再試一次！",
	Busy:           "🧊",
	Error:          "❌ 發生錯誤，請稍後再試。",
	Unauthorized:   "🚫 只有管理員可以使用這個指令。",
	PrefixUsage:    "用法：prefix <前綴>。目前前綴：",
	PrefixSet:      "✅ 前綴已設定為",
	TriggersUsage:  "用法：triggers [add <詞> | remove <詞> | reset]",
	TriggersList:   "觸發詞：",
	TriggersEmpty:  "目前沒有觸發詞。",
	TriggersUpdate: "✅ 觸發詞已更新：",
	Reloaded:       "🔄 已重新載入餐廳數：",
}

// DefaultTasks are the scheduler tasks known to the bot.
var DefaultTasks = map[string]TaskConfig{
	"cooldown_sweep":  {Enabled: true, Schedule: "*/30 * * * * *"},
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"presence_log":    {Enabled: true, Schedule: "0 0 * * * *"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_ids", []int64{})
	v.SetDefault("telegram.log_chat_id", 0)

	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("denylist", "")

	v.SetDefault("picker.max_attempts", DefaultPickerMaxAttempts)

	v.SetDefault("cooldown.window", DefaultCooldownWindow)
	v.SetDefault("cooldown.scope", DefaultCooldownScope)
	v.SetDefault("cooldown.notice_ttl", DefaultCooldownNoticeTTL)

	v.SetDefault("remote.driver", DefaultRemoteDriver)
	v.SetDefault("remote.sqlite_path", DefaultRemoteSQLitePath)
	v.SetDefault("remote.mongo_uri", "")
	v.SetDefault("remote.mongo_database", "what2eat")
	v.SetDefault("remote.poll_interval", DefaultRemotePollInterval)
	v.SetDefault("remote.timeout", DefaultRemoteTimeout)
	v.SetDefault("remote.tombstone_ttl", DefaultRemoteTombstoneTTL)

	v.SetDefault("bot.defaults.prefix", DefaultBotPrefix)
	v.SetDefault("bot.defaults.triggers", DefaultBotTriggers)
	v.SetDefault("bot.manual_url", DefaultBotManualURL)
	v.SetDefault("bot.support_url", "")
	v.SetDefault("bot.donate_url", "")
	v.SetDefault("bot.max_triggers", DefaultBotMaxTriggers)

	v.SetDefault("messages.try_again", DefaultMessages.TryAgain)
	v.SetDefault("messages.busy", DefaultMessages.Busy)
	v.SetDefault("messages.error", DefaultMessages.Error)
	v.SetDefault("messages.unauthorized", DefaultMessages.Unauthorized)
	v.SetDefault("messages.prefix_usage", DefaultMessages.PrefixUsage)
	v.SetDefault("messages.prefix_set", DefaultMessages.PrefixSet)
	v.SetDefault("messages.triggers_usage", DefaultMessages.TriggersUsage)
	v.SetDefault("messages.triggers_list", DefaultMessages.TriggersList)
	v.SetDefault("messages.triggers_empty", DefaultMessages.TriggersEmpty)
	v.SetDefault("messages.triggers_update", DefaultMessages.TriggersUpdate)
	v.SetDefault("messages.reloaded", DefaultMessages.Reloaded)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("crawler.min_products", DefaultCrawlerMinProducts)
	v.SetDefault("crawler.delay", DefaultCrawlerDelay)
	v.SetDefault("crawler.request_timeout", DefaultCrawlerRequestTimeout)
	v.SetDefault("crawler.retries", DefaultCrawlerRetries)
	v.SetDefault("crawler.user_agent", DefaultCrawlerUserAgent)
	v.SetDefault("crawler.foodpanda.web_url", DefaultFoodPandaWebURL)
	v.SetDefault("crawler.foodpanda.api_url", DefaultFoodPandaAPIURL)
	v.SetDefault("crawler.foodpanda.api_key", DefaultFoodPandaAPIKey)
	v.SetDefault("crawler.foodpanda.cities", DefaultFoodPandaCities)
	v.SetDefault("crawler.ubereats.web_url", DefaultUberEatsWebURL)
	v.SetDefault("crawler.ubereats.locale", DefaultUberEatsLocale)
	v.SetDefault("crawler.ubereats.cities", []string{})
}
