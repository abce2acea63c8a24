package auth

import (
	"net"
	"net/http"

	"github.com/redmonkez12/go-auth-verify/internal/httputil"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
)

// normalizer is implemented by forms that clean up decoded values before validation.
type normalizer interface {
	normalize()
}

// decodeForm decodes the request form into dst, normalizes and validates it.
// On failure it responds 400 "Invalid input" and returns false.
func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, dst any) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid form body", "error", err)
		httputil.RespondText(w, httputil.MsgInvalidInput, http.StatusBadRequest)
		return false
	}

	if err := h.forms.Decode(dst, r.PostForm); err != nil {
		logger.Warn("failed to decode form", "error", err)
		httputil.RespondText(w, httputil.MsgInvalidInput, http.StatusBadRequest)
		return false
	}

	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}

	if err := h.validate.Struct(dst); err != nil {
		logger.Warn("form validation failed", "error", err)
		httputil.RespondText(w, httputil.MsgInvalidInput, http.StatusBadRequest)
		return false
	}
	return true
}

// clientIP returns the request's remote IP. chi's RealIP middleware has
// already replaced RemoteAddr with the forwarded address when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
