package core

import "time"

// DateLayout is the wire and sheet form of an entry date.
const DateLayout = "2006-01-02"

// Sheet column order of an appended row.
const (
	ColumnDate = iota
	ColumnStore
	ColumnAmount
	ColumnPaymentMethod
	ColumnNotes
	ColumnCount
)

// Field names used in validation errors and form edits.
const (
	FieldDate          = "date"
	FieldStore         = "store"
	FieldAmount        = "amount"
	FieldPaymentMethod = "paymentMethod"
	FieldNotes         = "notes"
)

type (
	// Entry is one household expense row as sent over the wire.
	Entry struct {
		Date          string `json:"date"`
		Store         string `json:"store"`
		Amount        Amount `json:"amount"`
		PaymentMethod string `json:"paymentMethod"`
		Notes         string `json:"notes"`
	}

	// Batch is the ordered list of entries submitted together.
	Batch []Entry
)

// Today formats now as an entry date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// NewEntry returns an entry dated today with every other field empty.
func NewEntry(now time.Time) Entry {
	return Entry{Date: Today(now), Amount: EmptyAmount()}
}

// Row maps the entry to the sheet columns: date, store, amount, payment method, notes.
func (e Entry) Row() []any {
	row := make([]any, ColumnCount)
	row[ColumnDate] = e.Date
	row[ColumnStore] = e.Store
	row[ColumnAmount] = e.Amount.CellValue()
	row[ColumnPaymentMethod] = e.PaymentMethod
	row[ColumnNotes] = e.Notes
	return row
}

// Validate checks requiredness: date, store, amount and payment method must be
// non-empty, notes are optional. Whitespace counts as a value.
func (e Entry) Validate() error {
	switch {
	case e.Date == "":
		return &MissingFieldError{Field: FieldDate}
	case e.Store == "":
		return &MissingFieldError{Field: FieldStore}
	case e.Amount.IsEmpty():
		return &MissingFieldError{Field: FieldAmount}
	case e.PaymentMethod == "":
		return &MissingFieldError{Field: FieldPaymentMethod}
	}
	return nil
}

// Rows maps every entry of the batch, preserving order.
func (b Batch) Rows() [][]any {
	rows := make([][]any, 0, len(b))
	for _, e := range b {
		rows = append(rows, e.Row())
	}
	return rows
}

// Options are the autocomplete suggestion lists offered by the entry form.
type Options struct {
	StoreOptions         []string `json:"storeOptions"`
	PaymentMethodOptions []string `json:"paymentMethodOptions"`
}
