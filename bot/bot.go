// Package bot holds the Telegram command grammar and message
// formatting for the automation front end.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"shorts-bot/video"
)

// Command is a parsed user command.
type Command struct {
	Name     string
	Category video.Category
}

// Command names.
const (
	CmdStart   = "start"
	CmdStop    = "stop"
	CmdStatus  = "status"
	CmdRecent  = "recent"
	CmdUpload  = "upload"
	CmdHelp    = "help"
	CmdUnknown = "unknown"
)

// ParseCommand maps a message text to a command. Unknown input parses
// to CmdUnknown rather than an error; the handler replies with help.
func ParseCommand(text string) Command {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return Command{Name: CmdUnknown}
	}

	name := strings.TrimPrefix(fields[0], "/")
	switch name {
	case CmdStart, CmdStop, CmdStatus, CmdRecent, CmdHelp:
		return Command{Name: name}
	case CmdUpload:
		if len(fields) < 2 {
			return Command{Name: CmdUnknown}
		}
		category, err := video.ParseCategory(fields[1])
		if err != nil {
			return Command{Name: CmdUnknown}
		}
		return Command{Name: CmdUpload, Category: category}
	}
	return Command{Name: CmdUnknown}
}

// QuotaReader is the read-only quota surface the status report needs.
type QuotaReader interface {
	Used(ctx context.Context, category video.Category) (int, error)
	TotalToday(ctx context.Context) (int, error)
	MaxPerCategory() int
	MaxTotal() int
}

// HistoryReader lists recent publications.
type HistoryReader interface {
	RecentProcessed(ctx context.Context, limit int) ([]video.ProcessedRecord, error)
	CountProcessed(ctx context.Context) (int, error)
}

// Status is a snapshot of the automation state for display.
type Status struct {
	Running        bool
	UsedByCategory map[video.Category]int
	MaxPerCategory int
	Total          int
	MaxTotal       int
	ProcessedCount int
}

// BuildStatus assembles a status snapshot from the read surfaces.
func BuildStatus(ctx context.Context, quotas QuotaReader, history HistoryReader, running bool) (*Status, error) {
	st := &Status{
		Running:        running,
		UsedByCategory: make(map[video.Category]int),
		MaxPerCategory: quotas.MaxPerCategory(),
		MaxTotal:       quotas.MaxTotal(),
	}

	for _, cat := range video.Categories {
		used, err := quotas.Used(ctx, cat)
		if err != nil {
			return nil, fmt.Errorf("read quota for %s: %w", cat, err)
		}
		st.UsedByCategory[cat] = used
	}

	total, err := quotas.TotalToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("read total: %w", err)
	}
	st.Total = total

	count, err := history.CountProcessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("count processed: %w", err)
	}
	st.ProcessedCount = count

	return st, nil
}

// FormatStatus renders the /status reply as Telegram HTML.
func FormatStatus(st *Status) string {
	var sb strings.Builder
	sb.WriteString("<b>Shorts Bot Status</b>\n\n")

	if st.Running {
		sb.WriteString("Automation: running\n")
	} else {
		sb.WriteString("Automation: stopped\n")
	}

	for _, cat := range video.Categories {
		sb.WriteString(fmt.Sprintf("%s: %d/%d today\n",
			capitalize(string(cat)), st.UsedByCategory[cat], st.MaxPerCategory))
	}
	sb.WriteString(fmt.Sprintf("Total: %d/%d today\n", st.Total, st.MaxTotal))
	sb.WriteString(fmt.Sprintf("\nProcessed all-time: %d videos", st.ProcessedCount))
	return sb.String()
}

// FormatRecent renders the /recent reply.
func FormatRecent(records []video.ProcessedRecord) string {
	if len(records) == 0 {
		return "No uploads yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>Recent uploads</b>\n\n")
	for i, rec := range records {
		sb.WriteString(fmt.Sprintf("%d. %s by %s (%s)\n",
			i+1,
			html.EscapeString(rec.Title),
			html.EscapeString(rec.Channel),
			rec.ProcessedAt.Format("Jan 2 15:04")))
	}
	return sb.String()
}

// FormatUploadNotice renders the notification sent after a successful
// publish.
func FormatUploadNotice(category video.Category, title, url string, st *Status, at time.Time) string {
	return fmt.Sprintf(
		"<b>%s video uploaded!</b>\n\n"+
			"Title: %s\n"+
			"Link: %s\n"+
			"Progress: %d/%d today\n"+
			"Time: %s",
		capitalize(string(category)),
		html.EscapeString(title),
		url,
		st.Total, st.MaxTotal,
		at.Format("15:04:05"))
}

// HelpText is the /help and unknown-command reply.
const HelpText = "Commands:\n" +
	"/start - start automation\n" +
	"/stop - stop automation\n" +
	"/status - today's progress\n" +
	"/recent - recent uploads\n" +
	"/upload tech - upload one tech video now\n" +
	"/upload entertainment - upload one entertainment video now"

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
