package sheets

import (
	"context"

	"kakeibo/internal/core"
)

// Ports for outbound adapters.
type (
	// EntryAppender appends a batch to the first sheet of the remote
	// document and returns how many rows were added.
	EntryAppender interface {
		AppendEntries(ctx context.Context, batch core.Batch) (int, error)
	}

	// OptionsReader lists autocomplete suggestions for the entry form.
	OptionsReader interface {
		Options(ctx context.Context) (core.Options, error)
	}

	// Preflighter is implemented by appenders whose configuration can be
	// checked before a request body is read.
	Preflighter interface {
		Preflight(ctx context.Context) error
	}
)
