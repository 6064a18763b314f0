// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/storage"
)

// MaxBodyBytes caps the submit request body.
const MaxBodyBytes = 1 << 20

// ErrTrailingData reports bytes after the batch array.
var ErrTrailingData = errors.New("unexpected data after batch")

// DecodeBatch reads the submit body: a JSON array of entries. An empty body
// or null yields an empty batch, which the append path rejects after its
// configuration check. Unknown entry fields such as a client-side id are
// ignored.
func DecodeBatch(w http.ResponseWriter, r *http.Request) (core.Batch, error) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)

	var batch core.Batch
	if err := dec.Decode(&batch); err != nil {
		if errors.Is(err, io.EOF) {
			return core.Batch{}, nil
		}
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return batch, nil
}

// IsBodyTooLarge reports whether err came from the body size cap.
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// ParseLimit reads the limit query parameter, falling back to the journal
// default when absent or not a number, and clamping to the journal maximum.
func ParseLimit(query url.Values) int {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return storage.DefaultRecentLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return storage.DefaultRecentLimit
	}
	return storage.ClampLimit(n)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET accepts GET and HEAD.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
