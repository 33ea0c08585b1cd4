package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridMailPath = "/v3/mail/send"

type Email struct {
	To        string
	Subject   string
	PlainText string
	HTML      string
}

type EmailReceipt struct {
	Status    int
	MessageID string
}

// SendGridClient sends transactional email through the SendGrid v3 API.
type SendGridClient struct {
	apiKey    string
	host      string
	fromEmail string
	fromName  string
}

func NewSendGridClient(apiKey, host, fromEmail, fromName string) *SendGridClient {
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &SendGridClient{
		apiKey:    apiKey,
		host:      strings.TrimRight(host, "/"),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendEmail makes exactly one API call. The receipt carries the HTTP status
// even when the provider rejected the message.
func (s *SendGridClient) SendEmail(ctx context.Context, e Email) (EmailReceipt, error) {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", e.To)
	message := mail.NewSingleEmail(from, e.Subject, to, e.PlainText, e.HTML)

	request := sendgrid.GetRequest(s.apiKey, sendGridMailPath, s.host)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return EmailReceipt{}, fmt.Errorf("sendgrid request: %w", err)
	}

	receipt := EmailReceipt{
		Status:    resp.StatusCode,
		MessageID: firstHeader(resp.Headers, "X-Message-Id"),
	}
	if resp.StatusCode >= 300 {
		return receipt, fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, sendGridErrorText(resp.Body))
	}
	return receipt, nil
}

func firstHeader(headers map[string][]string, name string) string {
	if v := http.Header(headers).Get(name); v != "" {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// sendGridErrorText extracts the first error message of a v3 error body.
func sendGridErrorText(body string) string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil && len(payload.Errors) > 0 {
		return payload.Errors[0].Message
	}
	if body == "" {
		return "no response body"
	}
	return body
}
