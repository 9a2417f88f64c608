package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON envelope for non-2xx API responses.
type ErrorBody struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg, RequestID: RequestIDFromContext(r.Context())})
}

// AllowMethod writes 405 and returns false when r.Method is not method.
func AllowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
