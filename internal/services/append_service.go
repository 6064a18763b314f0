package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"kakeibo/internal/config"
	"kakeibo/internal/core"
	"kakeibo/internal/docstore"
	"kakeibo/internal/log"
	"kakeibo/internal/workbook"
)

// AppendService appends batches to the first sheet of an XLSX document
// held in a docstore.Store. Each call fetches the whole document, patches
// it in memory and overwrites it with one write.
//
// Appends are serialised within the process only. Two processes appending
// to the same path can still interleave and the last writer wins.
type AppendService struct {
	conn   func() config.Connection
	open   docstore.Opener
	sem    *semaphore.Weighted
	logger *log.Logger
}

func NewAppendService(conn func() config.Connection, open docstore.Opener, logger *log.Logger) *AppendService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AppendService{
		conn:   conn,
		open:   open,
		sem:    semaphore.NewWeighted(1),
		logger: logger.WithComponent(log.ComponentAppend),
	}
}

// Target returns the configured document path.
func (s *AppendService) Target() string {
	return s.conn().Path
}

// Preflight implements sheets.Preflighter.
func (s *AppendService) Preflight(ctx context.Context) error {
	_, err := s.connection(ctx)
	return err
}

func (s *AppendService) connection(ctx context.Context) (config.Connection, error) {
	conn := s.conn()
	if missing := conn.Missing(); len(missing) > 0 {
		s.logger.ErrorContext(ctx, "Connection configuration incomplete",
			log.FieldMissing, missing,
			log.FieldErrorType, string(core.KindConfiguration))
		return conn, &core.ConfigError{Missing: missing}
	}
	return conn, nil
}

// AppendEntries implements sheets.EntryAppender.
func (s *AppendService) AppendEntries(ctx context.Context, batch core.Batch) (int, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, core.ErrEmptyBatch
	}

	store, err := s.open(conn)
	if err != nil {
		return 0, &core.ProcessingError{Op: core.OpFetch, Err: err}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return 0, &core.ProcessingError{Op: core.OpFetch, Err: err}
	}
	defer s.sem.Release(1)

	logger := s.logger.With(log.FieldDocumentPath, conn.Path, log.FieldEntryCount, len(batch))

	ok, err := store.Exists(ctx, conn.Path)
	if err != nil {
		return 0, &core.ProcessingError{Op: core.OpExists, Err: err}
	}
	if !ok {
		return 0, &core.NotFoundError{Path: conn.Path}
	}

	logger.InfoContext(ctx, "Downloading document")
	data, err := store.Read(ctx, conn.Path)
	if err != nil {
		return 0, &core.ProcessingError{Op: core.OpFetch, Err: err}
	}
	logger.DebugContext(ctx, "Document downloaded", log.FieldBytes, len(data))

	out, sheet, err := appendToWorkbook(data, batch)
	if err != nil {
		return 0, err
	}
	logger.InfoContext(ctx, "Rows appended", log.FieldSheet, sheet)

	if err := store.Write(ctx, conn.Path, out); err != nil {
		return 0, &core.ProcessingError{Op: core.OpWrite, Err: err}
	}
	logger.InfoContext(ctx, "Document uploaded", log.FieldBytes, len(out))

	return len(batch), nil
}

func appendToWorkbook(data []byte, batch core.Batch) ([]byte, string, error) {
	wb, err := workbook.Decode(data)
	if err != nil {
		return nil, "", &core.ProcessingError{Op: core.OpDecode, Err: err}
	}
	defer wb.Close()

	sheet, err := wb.FirstSheet()
	if err != nil {
		return nil, "", &core.ProcessingError{Op: core.OpDecode, Err: err}
	}
	if _, err := wb.AppendRows(sheet, batch.Rows()); err != nil {
		return nil, "", &core.ProcessingError{Op: core.OpAppend, Err: fmt.Errorf("sheet %q: %w", sheet, err)}
	}

	out, err := wb.Encode()
	if err != nil {
		return nil, "", &core.ProcessingError{Op: core.OpEncode, Err: err}
	}
	return out, sheet, nil
}
