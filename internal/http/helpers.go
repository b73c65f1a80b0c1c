package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hadaf/internal/backup"
	"hadaf/internal/core"
)

// maxBodyBytes caps request bodies; snapshots are the largest payload and a
// household data set stays far below this.
const maxBodyBytes = 8 << 20

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON renders v with the given status. Encoding failures are logged by
// the caller's middleware via the 500 it would have produced already, so the
// error here is intentionally swallowed.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorBody{Error: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrTransactionNotFound),
		errors.Is(err, core.ErrRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateID),
		errors.Is(err, core.ErrDefaultAccount),
		errors.Is(err, core.ErrAccountInUse):
		return http.StatusConflict
	case errors.Is(err, backup.ErrBadSnapshot),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrSelfTransfer),
		errors.Is(err, core.ErrMissingTarget),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// badRequest wraps a message so statusOf maps it to 400.
func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// readJSON decodes the request body into v, rejecting unknown fields so
// typos surface as 400s instead of silently dropped data.
func readJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("decode body: %v", err)
	}
	// Trailing garbage after the document is a malformed request too.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return badRequest("unexpected data after JSON document")
	}
	return nil
}

// readBody reads the raw request body, for endpoints that forward the
// document instead of decoding it.
func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("read body: %v", err)
	}
	return data, nil
}

// newID mints an identifier for records created over the API.
func newID() string {
	return uuid.NewString()
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	return "req_" + uuid.NewString()
}

// dateQuery parses an optional YYYY-MM-DD query parameter, returning fallback
// when absent.
func dateQuery(r *http.Request, key string, fallback core.Date) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("invalid %s date %q", key, v)
	}
	return d, nil
}
