package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the API. Origins are
// matched case-insensitively; "*" allows any origin and a leading "*." in the
// host (https://*.example.com) allows any subdomain.
type CORSPolicy struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

// WithCORS answers preflights and decorates responses for allowed origins.
// With no AllowedOrigins it is a no-op.
func WithCORS(p CORSPolicy) Middleware {
	origins := trimmed(p.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	methods := strings.Join(trimmed(p.AllowedMethods), ", ")
	headers := strings.Join(trimmed(p.AllowedHeaders), ", ")
	exposed := strings.Join(trimmed(p.ExposedHeaders), ", ")
	maxAge := ""
	if secs := int(p.MaxAge.Seconds()); secs > 0 {
		maxAge = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")
			if origin == "" || !originAllowed(origin, origins) {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if maxAge != "" {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	origin = strings.ToLower(origin)
	for _, a := range allowed {
		a = strings.ToLower(a)
		switch {
		case a == "*", a == origin:
			return true
		case strings.Contains(a, "://*."):
			scheme, host, _ := strings.Cut(a, "://*.")
			if strings.HasPrefix(origin, scheme+"://") && strings.HasSuffix(origin, "."+host) {
				return true
			}
		}
	}
	return false
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
