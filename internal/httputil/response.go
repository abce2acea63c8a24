package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondText sends a short plain-text body.
func RespondText(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = io.WriteString(w, message)
}

// RespondEmpty sends a status code without a body.
func RespondEmpty(w http.ResponseWriter, statusCode int) {
	w.WriteHeader(statusCode)
}

// RedirectHome answers a form post with 302 Found to "/".
func RedirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// Generic client-facing messages. Causes are only logged.
const (
	MsgInvalidInput       = "Invalid input"
	MsgSomethingWentWrong = "Something went wrong"
	MsgInvalidCredentials = "Invalid email or password"
	MsgTooManyRequests    = "Too many requests, please try again later"
)
