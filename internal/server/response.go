package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"fivem/resonance/internal/errors"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response. Hints attached to err are
// returned separately so clients can show them as advice.
func writeError(w http.ResponseWriter, status int, err error) {
	body := map[string]any{"error": err.Error()}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		body["hints"] = hints
	}
	_ = writeJSON(w, status, body)
}

// statusFor maps an error to the HTTP status reported for it.
func statusFor(err error) int {
	switch {
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsInvalidInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func badParam(name string, err error) error {
	return errors.Mark(errors.Wrapf(err, "query parameter %q", name), errors.ErrInvalidInput)
}

func queryFloat(q url.Values, name string, def float64) (float64, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, badParam(name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, badParam(name, errors.Newf("%q is not a finite number", s))
	}
	return v, nil
}

func queryInt(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, badParam(name, err)
	}
	return v, nil
}
