// Package reply renders every user-facing bot message as Telegram MarkdownV2.
// Dynamic values are escaped here so handlers never build markup by hand.
package reply

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
)

// Telegram limits photo captions to 1024 characters.
const (
	maxCaptionRunes     = 1024
	maxDescriptionRunes = 300
)

// Reply is a rendered message. When ImageURL is set the text is sent as the
// photo caption.
type Reply struct {
	Text     string
	ImageURL string
}

// Links are the external URLs shown in help and pick replies. Empty links are
// left out.
type Links struct {
	Manual  string
	Support string
	Donate  string
}

// Messages are the localized fixed texts.
type Messages struct {
	TryAgain       string
	Busy           string
	Error          string
	Unauthorized   string
	PrefixUsage    string
	PrefixSet      string
	TriggersUsage  string
	TriggersList   string
	TriggersEmpty  string
	TriggersUpdate string
	Reloaded       string
}

// Builder renders replies from typed parameters.
type Builder struct {
	links Links
	msgs  Messages
}

// NewBuilder creates a Builder.
func NewBuilder(links Links, msgs Messages) *Builder {
	return &Builder{links: links, msgs: msgs}
}

// Help renders the manual and support links.
func (b *Builder) Help() Reply {
	var sb strings.Builder
	sb.WriteString(esc("🍲 What2Eat 吃什麼機器人！"))
	if b.links.Manual != "" {
		sb.WriteString("\n" + esc("說明文件：") + link(b.links.Manual, b.links.Manual))
	}
	if b.links.Support != "" {
		sb.WriteString("\n" + esc("開發群組：") + link(b.links.Support, b.links.Support))
	}
	return Reply{Text: sb.String()}
}

// PickParams describes a successful pick.
type PickParams struct {
	Member      string
	Product     string
	Description string
	Image       string
	Store       string
	StoreURL    string
	Hint        string
}

// Pick renders a picked product.
func (b *Builder) Pick(p PickParams) Reply {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍽️ %s %s*%s*", bold(p.Member), esc("抽選的餐點："), esc(p.Product))

	store := esc(p.Store)
	if p.StoreURL != "" {
		store = link(p.Store, p.StoreURL)
	}
	sb.WriteString("\n\n📍 " + store)
	if p.Description != "" {
		sb.WriteString("\n🧾 " + esc(truncate(p.Description, maxDescriptionRunes)))
	}

	var footer []string
	if b.links.Support != "" {
		footer = append(footer, "⚠️ "+esc("餐點選項有問題嗎？拜託加入 ")+link("客服群組", b.links.Support)+esc(" 回報給開發者"))
	}
	if b.links.Donate != "" {
		footer = append(footer, "☕ "+esc("請開發者喝一杯咖啡，")+link("捐款贊助", b.links.Donate)+esc(" 感謝有你"))
	}
	if p.Hint != "" {
		footer = append(footer, "💡 "+esc(p.Hint))
	}
	if len(footer) > 0 {
		sb.WriteString("\n" + esc("-----") + "\n" + strings.Join(footer, "\n"))
	}

	text := sb.String()
	if p.Image != "" && utf8.RuneCountInString(text) > maxCaptionRunes {
		// Too long for a caption: drop the image rather than cut markup.
		return Reply{Text: text}
	}
	return Reply{Text: text, ImageURL: p.Image}
}

// TryAgain is sent when no product could be picked.
func (b *Builder) TryAgain() Reply { return Reply{Text: esc(b.msgs.TryAgain)} }

// Busy is the one-off notice for a cooling-down chat.
func (b *Builder) Busy() Reply { return Reply{Text: esc(b.msgs.Busy)} }

// Error is the generic failure reply. It never carries error details.
func (b *Builder) Error() Reply { return Reply{Text: esc(b.msgs.Error)} }

// Unauthorized is sent when a non-admin runs an admin command.
func (b *Builder) Unauthorized() Reply { return Reply{Text: esc(b.msgs.Unauthorized)} }

// PrefixUsage explains the prefix command and shows the current prefix.
func (b *Builder) PrefixUsage(current string) Reply {
	return Reply{Text: esc(b.msgs.PrefixUsage) + " " + code(current)}
}

// PrefixSet confirms a prefix change.
func (b *Builder) PrefixSet(prefix string) Reply {
	return Reply{Text: esc(b.msgs.PrefixSet) + " " + code(prefix)}
}

// TriggersUsage explains the triggers subcommands.
func (b *Builder) TriggersUsage() Reply { return Reply{Text: esc(b.msgs.TriggersUsage)} }

// Triggers lists the trigger words of a chat.
func (b *Builder) Triggers(words []string) Reply {
	if len(words) == 0 {
		return Reply{Text: esc(b.msgs.TriggersEmpty)}
	}
	return Reply{Text: esc(b.msgs.TriggersList) + " " + codeList(words)}
}

// TriggersUpdated confirms a change of the trigger list.
func (b *Builder) TriggersUpdated(words []string) Reply {
	if len(words) == 0 {
		return Reply{Text: esc(b.msgs.TriggersUpdate) + " " + esc(b.msgs.TriggersEmpty)}
	}
	return Reply{Text: esc(b.msgs.TriggersUpdate) + " " + codeList(words)}
}

// Reloaded confirms a picker reload.
func (b *Builder) Reloaded(restaurants int) Reply {
	return Reply{Text: esc(fmt.Sprintf("%s %d", b.msgs.Reloaded, restaurants))}
}

// StatsParams are the counters shown by the stats command.
type StatsParams struct {
	Cached      int
	Restaurants int
	Banned      int
	Guilds      int
	Hints       int
	Uptime      time.Duration
}

// Stats renders cache and settings counters.
func (b *Builder) Stats(p StatsParams) Reply {
	lines := []string{
		fmt.Sprintf("restaurants: %d/%d cached", p.Cached, p.Restaurants),
		fmt.Sprintf("banned: %d", p.Banned),
		fmt.Sprintf("guild settings: %d", p.Guilds),
		fmt.Sprintf("hints: %d", p.Hints),
		fmt.Sprintf("uptime: %s", p.Uptime.Truncate(time.Second)),
	}
	return Reply{Text: "```\n" + codeEscape(strings.Join(lines, "\n")) + "\n```"}
}

func esc(s string) string {
	return bot.EscapeMarkdown(s)
}

func bold(s string) string {
	return "*" + esc(s) + "*"
}

func code(s string) string {
	return "`" + codeEscape(s) + "`"
}

func codeList(words []string) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = code(w)
	}
	return strings.Join(parts, " ")
}

// codeEscape escapes text inside pre and code entities.
func codeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "`", "\\`").Replace(s)
}

// link renders an inline URL. Inside (...) only ')' and '\' need escaping.
func link(text, url string) string {
	u := strings.NewReplacer(`\`, `\\`, ")", `\)`).Replace(url)
	return "[" + esc(text) + "](" + u + ")"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
