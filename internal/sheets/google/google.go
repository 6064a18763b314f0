package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"kakeibo/internal/config"
	"kakeibo/internal/core"
	ports "kakeibo/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.EntryAppender = (*Client)(nil)

// NewFromConfig creates a Sheets client authenticated with a service account.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, &core.ConfigError{Missing: []string{"GOOGLE_SPREADSHEET_ID"}}
	}

	credentialsJSON, err := serviceAccountJSON(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return New(ctx, cfg.GoogleSpreadsheetID,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// New creates a client for spreadsheetID with explicit client options.
func New(ctx context.Context, spreadsheetID string, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func serviceAccountJSON(ctx context.Context, cfg *config.Config) ([]byte, error) {
	file := cfg.GoogleServiceAccountFile
	if cfg.GoogleServiceAccountJSON == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case cfg.GoogleServiceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(cfg.GoogleServiceAccountJSON), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, &core.ConfigError{Missing: []string{"GOOGLE_SERVICE_ACCOUNT_JSON"}}
	}
}

// Target returns the spreadsheet id.
func (c *Client) Target() string {
	return c.spreadsheetID
}

// AppendEntries appends the batch after the last row of the first sheet
// using values.append with INSERT_ROWS.
func (c *Client) AppendEntries(ctx context.Context, batch core.Batch) (int, error) {
	if c.svc == nil || c.spreadsheetID == "" {
		return 0, &core.ConfigError{Missing: []string{"GOOGLE_SPREADSHEET_ID"}}
	}
	if len(batch) == 0 {
		return 0, core.ErrEmptyBatch
	}

	sheet, err := c.firstSheet(ctx)
	if err != nil {
		return 0, err
	}

	rng := fmt.Sprintf("%s!A:E", quoteSheet(sheet))
	vr := &gsheet.ValueRange{Values: batch.Rows()}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, &core.ProcessingError{Op: core.OpWrite, Err: fmt.Errorf("append to %s: %w", rng, err)}
	}

	if resp.Updates != nil {
		slog.DebugContext(ctx, "Sheet rows appended",
			"range", resp.Updates.UpdatedRange,
			"rows", resp.Updates.UpdatedRows)
	}
	return len(batch), nil
}

func (c *Client) firstSheet(ctx context.Context) (string, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", &core.NotFoundError{Path: c.spreadsheetID}
		}
		return "", &core.ProcessingError{Op: core.OpFetch, Err: err}
	}

	var props []*gsheet.SheetProperties
	for _, s := range ss.Sheets {
		if s != nil && s.Properties != nil {
			props = append(props, s.Properties)
		}
	}
	if len(props) == 0 {
		return "", &core.ProcessingError{Op: core.OpDecode, Err: errors.New("spreadsheet has no sheets")}
	}
	sort.SliceStable(props, func(i, j int) bool { return props[i].Index < props[j].Index })
	return props[0].Title, nil
}

// quoteSheet quotes a sheet title for A1 notation.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
