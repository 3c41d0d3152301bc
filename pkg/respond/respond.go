// Package respond writes JSON responses.
package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON encodes data before touching the response, so an unencodable value
// becomes a plain 500 instead of a half-written body.
func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

// Error пишет {"error": message}.
func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"error": message})
}

// Message пишет {"message": message}.
func Message(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"message": message})
}
