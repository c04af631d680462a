// Package http provides HTTP server and handler implementations.
//
// This file holds the helpers that decode request bodies and query
// parameters into domain values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finhealth/internal/core"
	"finhealth/internal/spend"
)

const maxBodyBytes = 64 << 10

// DecodeJSON reads a JSON object from the request body into dst. Unknown
// fields and trailing data are rejected. An empty body is accepted only when
// allowEmpty is set, leaving dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) *JSONResponseBuilder {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return ErrorResponse(http.StatusUnsupportedMediaType, "unsupported_media_type", "content type must be application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && allowEmpty:
			return nil
		case errors.Is(err, io.EOF):
			return BadRequestError("request body is required")
		case errors.As(err, &maxErr):
			return ErrorResponse(http.StatusRequestEntityTooLarge, "too_large", "request body too large")
		default:
			return BadRequestError("malformed JSON body: " + err.Error())
		}
	}
	if dec.More() {
		return BadRequestError("request body must hold a single JSON object")
	}
	return nil
}

// ParsePeriodParam reads ?period=YYYY-MM, defaulting to the month of now.
func ParsePeriodParam(r *http.Request, now time.Time) (spend.Period, *JSONResponseBuilder) {
	v := strings.TrimSpace(r.URL.Query().Get("period"))
	if v == "" {
		return spend.PeriodOf(now), nil
	}
	p, err := spend.ParsePeriod(v)
	if err != nil {
		return spend.Period{}, BadRequestError(err.Error())
	}
	return p, nil
}

// ParseWindowParam reads ?window=, defaulting to six months.
func ParseWindowParam(r *http.Request) (core.TrendWindow, *JSONResponseBuilder) {
	v := strings.TrimSpace(r.URL.Query().Get("window"))
	if v == "" {
		return core.Window6M, nil
	}
	w, err := core.ParseTrendWindow(v)
	if err != nil {
		return 0, BadRequestError(fmt.Sprintf("invalid window %q: want one of 3M, 6M, 12M", v))
	}
	return w, nil
}

// ParseLimitParam reads ?limit=, clamped to [1, ceiling].
func ParseLimitParam(r *http.Request, def, ceiling int) (int, *JSONResponseBuilder) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, BadRequestError(fmt.Sprintf("invalid limit %q", v))
	}
	return min(n, ceiling), nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
