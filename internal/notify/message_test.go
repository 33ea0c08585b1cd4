package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fieldIcons = []string{"👤", "🎯", "💰", "📱", "💬"}

func conditionalLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, icon := range fieldIcons {
			if strings.HasPrefix(line, icon) {
				out = append(out, line)
			}
		}
	}
	return out
}

func TestMarkdown_ContactOnly(t *testing.T) {
	n := BuildNotification(Lead{Contact: "@ivan"}, fixedNow, "MD")

	text := n.Markdown()

	assert.Equal(t, []string{"📱 *Контакт:* @ivan"}, conditionalLines(text))
	assert.Equal(t, strings.Join([]string{
		"🔔 *Новая заявка с сайта!*",
		"",
		"📍 *Источник:* Неизвестно",
		"",
		"📱 *Контакт:* @ivan",
		"",
		"⏰ *Время:* 17.10.2026, 12:30:00",
	}, "\n"), text)
}

func TestMarkdown_NoEmptyLabelLines(t *testing.T) {
	n := BuildNotification(Lead{Name: "  ", Source: "Contact Form"}, fixedNow, "MD")

	text := n.Markdown()

	assert.Empty(t, conditionalLines(text))
	assert.NotContains(t, text, "\n\n\n")
	assert.Contains(t, text, "📍 *Источник:* Contact Form")
}

func TestMarkdown_FieldOrder(t *testing.T) {
	n := BuildNotification(Lead{
		Message: "Hello",
		Contact: "@ivan",
		Budget:  "$500-1000",
		Service: "SMM",
		Name:    "Ivan",
		Source:  "Floating Brief",
	}, fixedNow, "MD")

	lines := conditionalLines(n.Markdown())

	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "👤 *Имя:*"))
	assert.True(t, strings.HasPrefix(lines[1], "🎯 *Услуга:*"))
	assert.True(t, strings.HasPrefix(lines[2], "💰 *Бюджет:*"))
	assert.True(t, strings.HasPrefix(lines[3], "📱 *Контакт:*"))
	assert.True(t, strings.HasPrefix(lines[4], "💬 *Сообщение:*"))
}

func TestMarkdown_EscapesUserInput(t *testing.T) {
	n := BuildNotification(Lead{Contact: "@ivan_petrov", Message: "*bold* [link] `code`"}, fixedNow, "MD")

	text := n.Markdown()

	assert.Contains(t, text, `@ivan\_petrov`)
	assert.Contains(t, text, "\\*bold\\* \\[link] \\`code\\`")
}

func TestHTML_EscapesAndKeepsSameContent(t *testing.T) {
	n := BuildNotification(Lead{Name: "<script>", Message: "line1\nline2", Source: "Contact Form"}, fixedNow, "MD")

	body := n.HTML()

	assert.Contains(t, body, "&lt;script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "line1<br>line2")
	assert.Contains(t, body, "Contact Form")
	assert.Contains(t, body, n.Timestamp())
	assert.NotContains(t, body, "Бюджет")
}

func TestPlainText(t *testing.T) {
	n := BuildNotification(Lead{Budget: "$500"}, fixedNow, "MD")

	assert.Equal(t, strings.Join([]string{
		"🔔 Новая заявка с сайта!",
		"",
		"📍 Источник: Неизвестно",
		"",
		"💰 Бюджет: $500",
		"",
		"⏰ Время: 17.10.2026, 12:30:00",
	}, "\n"), n.PlainText())
}

func TestNotification_SubjectAndTimezone(t *testing.T) {
	n := BuildNotification(Lead{Source: "Price Calculator"}, fixedNow, "MD")

	assert.Equal(t, "Новая заявка с сайта: Price Calculator", n.Subject())
	assert.Equal(t, "Europe/Chisinau", n.Time.Location().String())
}
