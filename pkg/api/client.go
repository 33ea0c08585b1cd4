package api

// API CLIENT

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrRateLimited is returned when the server answers 429.
var ErrRateLimited = errors.New("rate limit exceeded")

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type Lead struct {
	Name    string `json:"name,omitempty"`
	Service string `json:"service,omitempty"`
	Budget  string `json:"budget,omitempty"`
	Contact string `json:"contact,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`
}

type TelegramResult struct {
	ChatID  string          `json:"chatId"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type EmailResult struct {
	Success   bool   `json:"success"`
	Status    int    `json:"status,omitempty"`
	Recipient string `json:"recipient"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DispatchResult is the body of every lead endpoint response. Error is set
// when the lead was rejected before any delivery.
type DispatchResult struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Telegram []TelegramResult `json:"telegram,omitempty"`
	Email    *EmailResult     `json:"email,omitempty"`
}

type Choice struct {
	ID         string   `json:"id"`
	AddOns     []string `json:"addOns,omitempty"`
	BudgetTier string   `json:"budgetTier,omitempty"`
}

type Offering struct {
	ID          string  `json:"id"`
	Icon        string  `json:"icon"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"basePrice"`
	OneTime     bool    `json:"oneTime"`
	AddOns      []struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
		Name  string  `json:"name"`
	} `json:"addOns"`
	BudgetTiers []struct {
		ID    string  `json:"id"`
		Fee   float64 `json:"fee"`
		Label string  `json:"label"`
	} `json:"budgetTiers"`
}

type Catalog struct {
	Language  string `json:"language"`
	Currency  string `json:"currency"`
	Discounts []struct {
		MinCount int     `json:"minCount"`
		Percent  float64 `json:"percent"`
	} `json:"discounts"`
	Durations []struct {
		Months     int     `json:"months"`
		Multiplier float64 `json:"multiplier"`
		Label      string  `json:"label"`
	} `json:"durations"`
	Offerings     []Offering `json:"offerings"`
	BudgetOptions []string   `json:"budgetOptions"`
}

type Quote struct {
	Breakdown struct {
		Count           int     `json:"count"`
		BaseSum         float64 `json:"baseSum"`
		DiscountPercent float64 `json:"discountPercent"`
		DiscountAmount  float64 `json:"discountAmount"`
		OldTotal        float64 `json:"oldTotal"`
		NewTotal        float64 `json:"newTotal"`
	} `json:"breakdown"`
	Contract struct {
		Months  int     `json:"months"`
		Monthly float64 `json:"monthly"`
		OneTime float64 `json:"oneTime"`
		Total   float64 `json:"total"`
	} `json:"contract"`
	Total         string `json:"total"`
	OldTotal      string `json:"oldTotal"`
	ContractTotal string `json:"contractTotal"`
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SubmitLead posts a lead. The result is returned whenever the server sent
// one, together with an error if the lead was not delivered to Telegram.
func (c *Client) SubmitLead(ctx context.Context, lead Lead) (*DispatchResult, error) {
	var result DispatchResult
	status, err := c.do(ctx, http.MethodPost, "/api/leads", lead, &result)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Lead submitted",
		zap.Int("status", status),
		zap.Bool("ok", result.OK))

	if !result.OK {
		if result.Error != "" {
			return &result, fmt.Errorf("lead rejected: %s", result.Error)
		}
		return &result, fmt.Errorf("lead not delivered: status %d", status)
	}
	return &result, nil
}

func (c *Client) GetCatalog(ctx context.Context, lang string) (*Catalog, error) {
	path := "/api/catalog"
	if lang != "" {
		path += "?lang=" + url.QueryEscape(lang)
	}

	var catalog Catalog
	status, err := c.do(ctx, http.MethodGet, path, nil, &catalog)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", status)
	}
	return &catalog, nil
}

// Quote prices choices over a contract of months; zero means one month.
func (c *Client) Quote(ctx context.Context, choices []Choice, months int, lang string) (*Quote, error) {
	req := struct {
		Offerings []Choice `json:"offerings"`
		Duration  int      `json:"duration,omitempty"`
		Lang      string   `json:"lang,omitempty"`
	}{Offerings: choices, Duration: months, Lang: lang}

	var quote Quote
	status, err := c.do(ctx, http.MethodPost, "/api/quote", req, &quote)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", status)
	}
	return &quote, nil
}

// do sends body as JSON and decodes any JSON response into out, whatever
// the status.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, ErrRateLimited
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}
