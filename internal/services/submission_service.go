package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

type (
	// Journal records append attempts.
	Journal interface {
		Record(ctx context.Context, s storage.Submission) (storage.Submission, error)
	}

	// Publisher announces successful appends.
	Publisher interface {
		PublishEntriesAppended(ctx context.Context, msg *amqp.EntriesAppendedMessage) error
	}
)

// SubmissionService wraps an EntryAppender with the submission journal and
// event publishing. Journal and publish failures are logged and never
// change the append outcome.
type SubmissionService struct {
	appender  sheets.EntryAppender
	backend   string
	target    string
	journal   Journal
	publisher Publisher
	logger    *log.Logger
}

// Option configures a SubmissionService.
type Option func(*SubmissionService)

func WithJournal(j Journal) Option {
	return func(s *SubmissionService) { s.journal = j }
}

func WithPublisher(p Publisher) Option {
	return func(s *SubmissionService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *SubmissionService) { s.logger = l }
}

func NewSubmissionService(appender sheets.EntryAppender, backend, target string, opts ...Option) *SubmissionService {
	s := &SubmissionService{
		appender: appender,
		backend:  backend,
		target:   target,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentAppend)
	return s
}

// Preflight forwards to the wrapped appender when it supports the check.
// A failed check is journaled like a failed append of zero entries.
func (s *SubmissionService) Preflight(ctx context.Context) error {
	p, ok := s.appender.(sheets.Preflighter)
	if !ok {
		return nil
	}
	if err := p.Preflight(ctx); err != nil {
		s.record(ctx, 0, 0, err)
		return err
	}
	return nil
}

// AppendEntries implements sheets.EntryAppender.
func (s *SubmissionService) AppendEntries(ctx context.Context, batch core.Batch) (int, error) {
	fields := log.NewFields().WithDocument(s.backend, s.target, len(batch))
	s.logger.InfoContext(ctx, "Appending entries", fields.ToSlice()...)

	n, err := s.appender.AppendEntries(ctx, batch)

	if err != nil {
		kind := core.KindOf(err)
		fields = fields.WithError(err).WithErrorType(string(kind)).WithOperation(log.OpAppend)
		if kind == core.KindInput {
			s.logger.WarnContext(ctx, "Append rejected", fields.ToSlice()...)
		} else {
			s.logger.ErrorContext(ctx, "Append failed", fields.ToSlice()...)
		}
	} else {
		s.logger.InfoContext(ctx, "Entries appended", fields.ToSlice()...)
	}

	s.record(ctx, len(batch), n, err)
	if err == nil {
		s.publish(ctx, n)
	}
	return n, err
}

func (s *SubmissionService) record(ctx context.Context, requested, appended int, appendErr error) {
	if s.journal == nil {
		return
	}
	sub := storage.Submission{
		Backend:      s.backend,
		DocumentPath: s.target,
		EntryCount:   requested,
		Status:       storage.StatusSuccess,
		Message:      core.MsgAppended(appended),
	}
	if appendErr != nil {
		sub.Status = storage.StatusError
		sub.ErrorType = string(core.KindOf(appendErr))
		sub.Message, _ = core.Message(appendErr)
		sub.Error = appendErr.Error()
	}
	if _, err := s.journal.Record(ctx, sub); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record submission",
			log.FieldError, err,
			log.FieldOperation, log.OpRecord)
	}
}

func (s *SubmissionService) publish(ctx context.Context, appended int) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewEntriesAppendedMessage(s.backend, s.target, appended)
	if err := s.publisher.PublishEntriesAppended(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish entries appended message",
			log.FieldError, err,
			log.FieldOperation, log.OpPublish)
	}
}

// Close closes the journal and publisher when they hold resources.
func (s *SubmissionService) Close() error {
	var errs []error

	if c, ok := s.journal.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
