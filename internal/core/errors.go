package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfigMissing = errors.New("connection configuration incomplete")
	ErrEmptyBatch    = errors.New("empty batch")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Kind is the failure category used to pick the HTTP status and log field.
type Kind string

const (
	KindNone          Kind = ""
	KindConfiguration Kind = "configuration_error"
	KindInput         Kind = "validation_error"
	KindNotFound      Kind = "not_found_error"
	KindProcessing    Kind = "internal_error"
)

// Processing operations.
const (
	OpFetch  = "fetch"
	OpDecode = "decode"
	OpAppend = "append"
	OpEncode = "encode"
	OpWrite  = "write"
	OpExists = "exists"
)

// ConfigError lists the connection settings that are absent.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

func (e *ConfigError) Unwrap() error { return ErrConfigMissing }

// NotFoundError reports that the target document does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "document not found: " + e.Path
}

// ProcessingError wraps a failure in one step of the append round trip.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// MissingFieldError reports a required field left empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "required field is empty: " + e.Field
}

// KindOf classifies err into the failure taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var nf *NotFoundError
	switch {
	case errors.Is(err, ErrConfigMissing):
		return KindConfiguration
	case errors.Is(err, ErrEmptyBatch):
		return KindInput
	case errors.As(err, &nf):
		return KindNotFound
	default:
		return KindProcessing
	}
}
