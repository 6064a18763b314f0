// Package form holds the entry form state: an ordered list of draft rows,
// edits, requiredness checks and the submit round trip with its outcome.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

var (
	// ErrSubmissionInFlight is returned by every mutating call while a
	// submission is pending.
	ErrSubmissionInFlight = errors.New("submission in progress")
	ErrRowNotFound        = errors.New("row not found")
	ErrUnknownField       = errors.New("unknown field")
)

// Field names a draft column.
type Field string

const (
	FieldDate          Field = core.FieldDate
	FieldStore         Field = core.FieldStore
	FieldAmount        Field = core.FieldAmount
	FieldPaymentMethod Field = core.FieldPaymentMethod
	FieldNotes         Field = core.FieldNotes
)

// Fields lists the draft columns in display order.
var Fields = []Field{FieldDate, FieldStore, FieldAmount, FieldPaymentMethod, FieldNotes}

// Required reports whether f must be non-empty before submit.
func (f Field) Required() bool {
	return f != FieldNotes
}

// Draft is one row of the form. ID is local to the form session.
type Draft struct {
	ID            int64
	Date          string
	Store         string
	Amount        core.Amount
	PaymentMethod string
	Notes         string
}

// Entry drops the local id.
func (d Draft) Entry() core.Entry {
	return core.Entry{
		Date:          d.Date,
		Store:         d.Store,
		Amount:        d.Amount,
		PaymentMethod: d.PaymentMethod,
		Notes:         d.Notes,
	}
}

// Value returns the text form of f.
func (d Draft) Value(f Field) string {
	switch f {
	case FieldDate:
		return d.Date
	case FieldStore:
		return d.Store
	case FieldAmount:
		return d.Amount.String()
	case FieldPaymentMethod:
		return d.PaymentMethod
	case FieldNotes:
		return d.Notes
	}
	return ""
}

// ValidationError names the first empty required field.
type ValidationError struct {
	RowID int64
	Field Field
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s is required", e.RowID, e.Field)
}

// Form is safe for concurrent use.
type Form struct {
	mu         sync.Mutex
	rows       []Draft
	lastID     int64
	submitting bool

	submitter Submitter
	notifier  Notifier
	now       func() time.Time
	logger    *log.Logger
}

// Option configures a Form.
type Option func(*Form)

// WithClock sets the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(f *Form) { f.now = now }
}

// WithNotifier sets who is told about submit outcomes.
func WithNotifier(n Notifier) Option {
	return func(f *Form) { f.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(f *Form) { f.logger = l }
}

// New returns a form holding one default row.
func New(submitter Submitter, opts ...Option) *Form {
	f := &Form{
		submitter: submitter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.New(log.DefaultConfig())
	}
	f.logger = f.logger.WithComponent(log.ComponentForm)
	f.rows = []Draft{f.newDraft()}
	return f
}

func (f *Form) newDraft() Draft {
	f.lastID++
	return Draft{
		ID:     f.lastID,
		Date:   core.Today(f.now()),
		Amount: core.EmptyAmount(),
	}
}

// Entries returns a copy of the rows in order.
func (f *Form) Entries() []Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Draft(nil), f.rows...)
}

// Len returns the number of rows.
func (f *Form) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// Submitting reports whether a submission is pending; controls are
// disabled while it is.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// CanRemove reports whether the remove control is enabled.
func (f *Form) CanRemove() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows) > 1 && !f.submitting
}

// AddRow appends a row dated today.
func (f *Form) AddRow() (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return Draft{}, ErrSubmissionInFlight
	}
	d := f.newDraft()
	f.rows = append(f.rows, d)
	return d, nil
}

// RemoveRow deletes the row with id. It is a no-op returning false when
// only one row is left.
func (f *Form) RemoveRow(id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return false, ErrSubmissionInFlight
	}
	if len(f.rows) <= 1 {
		return false, nil
	}
	i := f.indexOf(id)
	if i < 0 {
		return false, ErrRowNotFound
	}
	f.rows = append(f.rows[:i], f.rows[i+1:]...)
	return true, nil
}

// EditField replaces one field of the row with id. An empty amount is
// stored as the empty sentinel, not zero.
func (f *Form) EditField(id int64, field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrSubmissionInFlight
	}
	i := f.indexOf(id)
	if i < 0 {
		return ErrRowNotFound
	}

	d := f.rows[i]
	switch field {
	case FieldDate:
		d.Date = value
	case FieldStore:
		d.Store = value
	case FieldAmount:
		amount, err := core.ParseAmount(value)
		if err != nil {
			return err
		}
		d.Amount = amount
	case FieldPaymentMethod:
		d.PaymentMethod = value
	case FieldNotes:
		d.Notes = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	f.rows[i] = d
	return nil
}

func (f *Form) indexOf(id int64) int {
	for i, d := range f.rows {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Validate returns the first empty required field in row order.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return validate(f.rows)
}

func validate(rows []Draft) error {
	for _, d := range rows {
		for _, field := range Fields {
			if !field.Required() {
				continue
			}
			if field == FieldAmount {
				if d.Amount.IsEmpty() {
					return &ValidationError{RowID: d.ID, Field: field}
				}
				continue
			}
			// Whitespace counts as a value.
			if d.Value(field) == "" {
				return &ValidationError{RowID: d.ID, Field: field}
			}
		}
	}
	return nil
}

// Submit validates the rows and sends them as one batch. Validation
// failures and a pending submission are returned as errors without any
// network call. Every other attempt ends in an Outcome, which is passed to
// the notifier before Submit returns. On success the form resets to one
// default row; otherwise the rows are left as they were.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Outcome{}, ErrSubmissionInFlight
	}
	if err := validate(f.rows); err != nil {
		f.mu.Unlock()
		return Outcome{}, err
	}
	batch := make(core.Batch, 0, len(f.rows))
	for _, d := range f.rows {
		batch = append(batch, d.Entry())
	}
	f.submitting = true
	f.mu.Unlock()

	resp, err := f.submitter.Submit(ctx, batch)

	var outcome Outcome
	switch {
	case err != nil:
		f.logger.ErrorContext(ctx, "An unexpected error occurred",
			log.FieldError, err,
			log.FieldOperation, log.OpSubmit,
			log.FieldEntryCount, len(batch))
		outcome = Outcome{Status: StatusUnexpected, Message: core.MsgUnexpected, Err: err}
	case resp.OK():
		outcome = Outcome{Status: StatusSucceeded, Message: resp.Message}
	default:
		outcome = Outcome{Status: StatusFailed, Message: resp.Message, Detail: resp.Error}
	}

	f.mu.Lock()
	if outcome.Status == StatusSucceeded {
		f.lastID = 0
		f.rows = []Draft{f.newDraft()}
	}
	f.submitting = false
	f.mu.Unlock()

	if f.notifier != nil {
		f.notifier.Notify(outcome)
	}
	return outcome, nil
}
