package web

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sensoragent/internal/publisher"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2933}` +
	`table{border-collapse:collapse}td,th{padding:.25rem .75rem;text-align:left;border-bottom:1px solid #e4e7eb}` +
	`.error{color:#b42318}`

// statRow is one labelled value in the status table.
type statRow struct {
	Label string
	Value string
}

// StatusPage renders snap as a small self-contained HTML page.
func StatusPage(snap publisher.Snapshot) templ.Component {
	body := []templ.Component{statusTable(statRows(snap))}
	if snap.LastError != "" {
		body = append(body, errorPanel(snap))
	}
	return pageLayout("sensoragent status", body...)
}

// pageLayout wraps body components in the document shell.
func pageLayout(title string, body ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title><style>`+pageStyle+`</style></head><body><h1>sensoragent</h1>`); err != nil {
			return err
		}
		if err := templ.Join(body...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func statusTable(rows []statRow) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<table>"); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := io.WriteString(w, "<tr><th>"+templ.EscapeString(row.Label)+
				"</th><td>"+templ.EscapeString(row.Value)+"</td></tr>"); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table>")
		return err
	})
}

// errorPanel shows the last failure with the operator hint for its code.
func errorPanel(snap publisher.Snapshot) templ.Component {
	msg := MapErrorCode(snap.LastErrorCode)
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="error"><p>Last error at `+
			templ.EscapeString(formatTime(snap.LastErrorAt))+`: `+
			templ.EscapeString(msg.Message)+`. `+templ.EscapeString(msg.Action)+`.</p><pre>`+
			templ.EscapeString(snap.LastError)+` (`+templ.EscapeString(msg.Code)+`)</pre></div>`)
		return err
	})
}

func statRows(snap publisher.Snapshot) []statRow {
	rows := []statRow{
		{"Read mode", string(snap.Mode)},
		{"Topic", snap.Topic},
		{"Started", formatTime(&snap.StartedAt)},
		{"Published", strconv.FormatInt(snap.Published, 10)},
		{"Publish errors", strconv.FormatInt(snap.PublishErrors, 10)},
		{"Read errors", strconv.FormatInt(snap.SourceErrors, 10)},
		{"Rewinds", strconv.FormatInt(snap.Rewinds, 10)},
		{"Reopens", strconv.FormatInt(snap.Reopens, 10)},
		{"Last published", formatTime(snap.LastPublishedAt)},
	}
	if snap.LastRecord != nil {
		rows = append(rows,
			statRow{"Accelerometer", snap.LastRecord.Accelerometer.String()},
			statRow{"GPS", snap.LastRecord.Gps.String()},
		)
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}
