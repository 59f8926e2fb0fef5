package httpapi

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
)

// errResponse is the JSON shape every non-2xx response body takes.
type errResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("httpapi: request body is empty")

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := sonic.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errResponse{Error: err.Error()})
}

func readJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return errEmptyBody
	}

	dec := sonic.ConfigDefault.NewDecoder(r.Body)

	return dec.Decode(v)
}
