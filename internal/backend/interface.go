package backend

import (
	"context"

	"kakeibo/internal/config"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	sheets.EntryAppender
	sheets.OptionsReader
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Journal is nil when the submission journal is disabled.
	Journal *storage.SQLiteRepository
	Target  string
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// WebDAV specific; resolved per append
	Connection func() config.Connection

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	SpreadsheetPath string

	// Suggestions
	StoreOptions         []string
	PaymentMethodOptions []string
	DataDirectory        string

	// Journal and events, both optional
	SubmissionLogPath string
	AMQPURL           string
	AMQPExchange      string
	AMQPRoutingKey    string
}

// BackendType represents the type of backend
type BackendType string

const (
	WebDAVBackend BackendType = config.BackendWebDAV
	SheetsBackend BackendType = config.BackendSheets
	MemoryBackend BackendType = config.BackendMemory
)

// DefaultMemoryPath is the document path of the memory backend when
// SPREADSHEET_PATH is unset.
const DefaultMemoryPath = "/kakeibo.xlsx"

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case WebDAVBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
