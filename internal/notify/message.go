package notify

import (
	"html"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	header        = "🔔 Новая заявка с сайта!"
	unknownSource = "Неизвестно"
	timeLayout    = "02.01.2006, 15:04:05"
)

// Lead timestamps are always shown in the agency's local time.
var leadLocation = mustLoadLocation("Europe/Chisinau")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type Field struct {
	Icon  string
	Label string
	Value string
}

// Notification is the channel independent content of one lead. It is built
// once per dispatch and rendered for each channel.
type Notification struct {
	Source string
	Fields []Field
	Time   time.Time
}

// BuildNotification keeps only the lead fields that are present, in a
// fixed order.
func BuildNotification(l Lead, at time.Time, phoneRegion string) Notification {
	l = l.Normalize()

	n := Notification{
		Source: l.Source,
		Time:   at.In(leadLocation),
	}
	if n.Source == "" {
		n.Source = unknownSource
	}

	add := func(icon, label, value string) {
		if value != "" {
			n.Fields = append(n.Fields, Field{Icon: icon, Label: label, Value: value})
		}
	}
	add("👤", "Имя", l.Name)
	add("🎯", "Услуга", l.Service)
	add("💰", "Бюджет", l.Budget)
	add("📱", "Контакт", NormalizeContact(l.Contact, phoneRegion))
	add("💬", "Сообщение", l.Message)

	return n
}

func (n Notification) Timestamp() string {
	return n.Time.Format(timeLayout)
}

func (n Notification) Subject() string {
	return "Новая заявка с сайта: " + n.Source
}

// Markdown renders for Telegram's legacy Markdown parse mode.
func (n Notification) Markdown() string {
	lines := []string{
		"🔔 *Новая заявка с сайта!*",
		"",
		"📍 *Источник:* " + escapeMarkdown(n.Source),
		"",
	}
	for _, f := range n.Fields {
		lines = append(lines, f.Icon+" *"+f.Label+":* "+escapeMarkdown(f.Value))
	}
	if len(n.Fields) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, "⏰ *Время:* "+n.Timestamp())
	return strings.Join(lines, "\n")
}

func (n Notification) HTML() string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>" + html.EscapeString(header) + "</h2>")
	sb.WriteString("<p><b>📍 Источник:</b> " + html.EscapeString(n.Source) + "</p>")
	if len(n.Fields) > 0 {
		sb.WriteString("<p>")
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString("<br>")
			}
			value := strings.ReplaceAll(html.EscapeString(f.Value), "\n", "<br>")
			sb.WriteString(f.Icon + " <b>" + f.Label + ":</b> " + value)
		}
		sb.WriteString("</p>")
	}
	sb.WriteString("<p><b>⏰ Время:</b> " + n.Timestamp() + "</p>")
	sb.WriteString("</body></html>")
	return sb.String()
}

func (n Notification) PlainText() string {
	lines := []string{header, "", "📍 Источник: " + n.Source, ""}
	for _, f := range n.Fields {
		lines = append(lines, f.Icon+" "+f.Label+": "+f.Value)
	}
	if len(n.Fields) > 0 {
		lines = append(lines, "")
	}
	lines = append(lines, "⏰ Время: "+n.Timestamp())
	return strings.Join(lines, "\n")
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
