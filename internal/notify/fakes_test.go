package notify

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testToken = "123456:TEST"

// fakeTelegram emulates the Bot API sendMessage method.
type fakeTelegram struct {
	srv     *httptest.Server
	failing map[string]bool
	slow    map[string]bool

	mu    sync.Mutex
	calls []telegramCall
}

type telegramCall struct {
	ChatID    string
	Text      string
	ParseMode string
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()

	f := &fakeTelegram{
		failing: make(map[string]bool),
		slow:    make(map[string]bool),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())

		call := telegramCall{
			ChatID:    r.PostForm.Get("chat_id"),
			Text:      r.PostForm.Get("text"),
			ParseMode: r.PostForm.Get("parse_mode"),
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		if f.slow[call.ChatID] {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if f.failing[call.ChatID] {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":1760000000,"chat":{"id":1,"type":"group"}}}`)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) endpoint() string {
	return f.srv.URL + "/bot%s/%s"
}

func (f *fakeTelegram) Calls() []telegramCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]telegramCall(nil), f.calls...)
}

// fakeSendGrid emulates POST /v3/mail/send.
type fakeSendGrid struct {
	srv    *httptest.Server
	reject bool

	mu     sync.Mutex
	bodies []string
}

func newFakeSendGrid(t *testing.T) *fakeSendGrid {
	t.Helper()

	f := &fakeSendGrid{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendGridMailPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		f.mu.Lock()
		f.bodies = append(f.bodies, string(body))
		f.mu.Unlock()

		if f.reject {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errors":[{"message":"The provided authorization grant is invalid","field":null}]}`)
			return
		}
		w.Header().Set("X-Message-Id", "sg-message-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSendGrid) Bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bodies...)
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveDelivery(channel, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[channel+":"+outcome]++
}

func (o *countingObserver) Count(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[key]
}
