// Package cmd holds the kakeibo-entry subcommands.
package cmd

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kakeibo/internal/core"
	"kakeibo/internal/form"
	"kakeibo/internal/log"
)

const defaultServerURL = "http://localhost:8080"

// Settings are the flags shared by every subcommand.
type Settings struct {
	ServerURL string
	Timeout   time.Duration
	Logger    *log.Logger
}

func NewSettings(logger *log.Logger) *Settings {
	url := os.Getenv("KAKEIBO_URL")
	if url == "" {
		url = defaultServerURL
	}
	return &Settings{ServerURL: url, Timeout: 60 * time.Second, Logger: logger}
}

// Bind registers the persistent flags on root.
func (s *Settings) Bind(root *cobra.Command) {
	root.PersistentFlags().StringVar(&s.ServerURL, "url", s.ServerURL, "kakeibo server base URL (env KAKEIBO_URL)")
	root.PersistentFlags().DurationVar(&s.Timeout, "timeout", s.Timeout, "HTTP timeout per request")
}

func (s *Settings) httpClient() *http.Client {
	return &http.Client{Timeout: s.Timeout}
}

func (s *Settings) submitter() *form.HTTPSubmitter {
	sub := form.NewHTTPSubmitter(s.ServerURL)
	sub.Client = s.httpClient()
	return sub
}

// options fetches the suggestion lists. A failure leaves them empty.
func (s *Settings) options(ctx context.Context) core.Options {
	opts, err := form.FetchOptions(ctx, s.httpClient(), s.ServerURL)
	if err != nil {
		s.Logger.WarnContext(ctx, "Suggestion lists unavailable",
			log.FieldError, err,
			log.FieldOperation, log.OpList)
	}
	return opts
}
