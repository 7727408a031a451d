package api

import "net/http"

// CORS answers preflight requests and echoes allowed origins. An entry of "*"
// allows any origin but never with credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed, explicit := matchOrigin(allowedOrigins, origin)
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					w.Header().Add("Vary", "Origin")
					if explicit {
						w.Header().Set("Access-Control-Allow-Credentials", "true")
					}
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(allowedOrigins []string, origin string) (allowed, explicit bool) {
	for _, o := range allowedOrigins {
		switch o {
		case origin:
			return true, true
		case "*":
			allowed = true
		}
	}
	return allowed, false
}
