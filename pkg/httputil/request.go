package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// MaxBodyBytes bounds the request bodies DecodeJSON reads
const MaxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeJSON for a required body that is missing
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes the request body into dest and rejects unknown fields.
// When optional is set an empty body leaves dest untouched. Failures are
// reported as bad requests.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}, optional bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return nil
		}
		return BadRequest(ErrEmptyBody)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return BadRequest(ErrEmptyBody)
		}
		return BadRequest(fmt.Errorf("invalid JSON: %w", err))
	}
	return nil
}

// PathParam returns a non-empty mux path variable
func PathParam(r *http.Request, key string) (string, error) {
	val := mux.Vars(r)[key]
	if val == "" {
		return "", BadRequest(fmt.Errorf("missing path parameter: %s", key))
	}
	return val, nil
}

// QueryBool parses a boolean query parameter, defaulting when absent
func QueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return false, BadRequest(fmt.Errorf("invalid boolean for query param %s: %q", key, str))
	}
	return val, nil
}
