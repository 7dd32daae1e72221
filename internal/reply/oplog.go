package reply

import (
	"fmt"
	"strings"
	"time"
)

const logTimeLayout = "2006-01-02 15:04:05"

// LogEntry is one command execution mirrored to the operations chat.
type LogEntry struct {
	Time          time.Time
	Command       string
	Response      string
	ChatID        int64
	ChatTitle     string
	UserID        int64
	UserName      string
	Cached        int
	Restaurants   int
	RestaurantURL string
	Elapsed       time.Duration
	Err           error
}

// Log renders an operations log entry. Errors are included here and only
// here.
func Log(e LogEntry) Reply {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\\[%s\\] %s", code(e.Time.Format(logTimeLayout)), esc(e.Command))
	if e.Response != "" {
		sb.WriteString("\n" + esc(e.Response))
	}
	fmt.Fprintf(&sb, "\n%s %s", code(fmt.Sprint(e.ChatID)), esc(orDash(e.ChatTitle)))
	fmt.Fprintf(&sb, "\n%s %s", code(fmt.Sprint(e.UserID)), esc(orDash(e.UserName)))
	fmt.Fprintf(&sb, "\n%s", esc(fmt.Sprintf("%d/%d", e.Cached, e.Restaurants)))
	if e.RestaurantURL != "" {
		sb.WriteString(" " + link("Link", e.RestaurantURL))
	}
	sb.WriteString("\n" + esc(fmt.Sprintf("%d ms", e.Elapsed.Milliseconds())))
	if e.Err != nil {
		sb.WriteString("\n❗ *Error*\n```\n" + codeEscape(e.Err.Error()) + "\n```")
	}
	return Reply{Text: sb.String()}
}

// Startup announces a bot start in the operations chat.
func Startup(at time.Time, botName string) Reply {
	return Reply{Text: code(at.Format(logTimeLayout)) + " " + esc("@"+botName)}
}

// Heartbeat is the periodic presence line with cache counters.
func Heartbeat(at time.Time, cached, restaurants int, uptime time.Duration) Reply {
	return Reply{Text: code(at.Format(logTimeLayout)) + " " +
		esc(fmt.Sprintf("alive, %d/%d cached, up %s", cached, restaurants, uptime.Truncate(time.Second)))}
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}
