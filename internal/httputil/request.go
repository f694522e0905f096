package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mediadb/internal/config"
)

// ErrBodyTooLarge is returned when the body exceeds config.MaxRequestBodyBytes
var ErrBodyTooLarge = errors.New("request body too large")

// ParseJSON decodes JSON from the request body into the given destination.
// The body is capped at config.MaxRequestBodyBytes; catalog documents carry
// inline image payloads, so the cap is far above a typical API's.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	// Numbers stay json.Number so entity ids round-trip unchanged
	decoder.UseNumber()

	if err := decoder.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		if errors.Is(err, io.EOF) {
			return errors.New("invalid JSON: empty body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	// Trailing data after the first value is an error
	if decoder.More() {
		return errors.New("invalid JSON: unexpected data after top-level value")
	}

	return nil
}
