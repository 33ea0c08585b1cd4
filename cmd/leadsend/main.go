package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adtime-landing/pkg/api"
	"adtime-landing/pkg/logger"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

// leadsend submits a test lead through a running landing server and prints
// the per-channel outcome. It exits non-zero when no Telegram chat got it.

func main() {
	var (
		baseURL = flag.StringP("url", "u", "http://localhost:8080", "landing server base URL")
		name    = flag.String("name", "Test lead", "lead name")
		contact = flag.StringP("contact", "c", "@adtime_test", "lead contact")
		message = flag.StringP("message", "m", "Test message from leadsend", "lead message")
		source  = flag.String("source", "leadsend", "lead source")
		timeout = flag.Duration("timeout", 30*time.Second, "request timeout")
		verbose = flag.BoolP("verbose", "v", false, "debug logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	zapLogger, err := logger.New(level, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	client := api.NewClient(*baseURL, zapLogger)
	res, err := client.SubmitLead(ctx, api.Lead{
		Name:    *name,
		Contact: *contact,
		Message: *message,
		Source:  *source,
	})
	if res != nil {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		if errors.Is(err, api.ErrRateLimited) {
			zapLogger.Error("Server rate limited the request, try again in a minute")
		} else {
			zapLogger.Error("Lead was not delivered", zap.Error(err))
		}
		os.Exit(1)
	}

	zapLogger.Info("Lead delivered", zap.Int("telegram_chats", countDelivered(res.Telegram)))
}

func countDelivered(results []api.TelegramResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
