package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient posts messages through the Bot API. It never calls getMe:
// the only outbound request per chat is sendMessage.
type TelegramClient struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

func NewTelegramClient(token, endpoint string, httpClient *http.Client) *TelegramClient {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TelegramClient{
		token:      token,
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// SendMessage delivers a Markdown message and returns the raw API result.
func (c *TelegramClient) SendMessage(ctx context.Context, chatID, text string) (json.RawMessage, error) {
	bot := &tgbotapi.BotAPI{
		Token:  c.token,
		Client: contextClient{ctx: ctx, client: c.httpClient},
	}
	bot.SetAPIEndpoint(c.endpoint)

	msg := newMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	resp, err := bot.Request(msg)
	if err != nil {
		return nil, fmt.Errorf("telegram sendMessage to %s: %w", chatID, err)
	}
	return resp.Result, nil
}

// Numeric IDs are chats; anything else is treated as a channel username.
func newMessage(chatID, text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(chatID, text)
}

// contextClient binds outgoing Bot API requests to ctx, which the library
// does not do on its own.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

// telegramErrorText prefers the description returned by the Bot API.
func telegramErrorText(err error) string {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
