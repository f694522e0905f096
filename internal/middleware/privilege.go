package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"mediadb/internal/auth"
	"mediadb/internal/httputil"
)

// AdminPasswordHeader carries the shared admin password
const AdminPasswordHeader = "X-Admin-Password"

// Privilege resolves admin credentials into a privileged flag on the request
// context. It never rejects: missing or invalid credentials leave the request
// unprivileged and the service decides what that caller may do.
//
// Either checker may be nil when its method is not configured.
func Privilege(passwords *auth.PasswordChecker, verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			privileged := false

			if pw := r.Header.Get(AdminPasswordHeader); pw != "" {
				privileged = passwords.Check(pw)
				if !privileged {
					logger.Warn("admin password rejected",
						"request_id", httputil.GetRequestID(r),
						"path", r.URL.Path,
					)
				}
			}

			if !privileged && verifier != nil {
				if token, ok := bearerToken(r); ok {
					claims, err := verifier.VerifyToken(token)
					switch {
					case err != nil:
						logger.Debug("bearer token rejected", "request_id", httputil.GetRequestID(r))
					case claims.IsAdmin():
						privileged = true
					default:
						logger.Debug("bearer token lacks admin role",
							"request_id", httputil.GetRequestID(r),
							"user_id", claims.GetUserID(),
						)
					}
				}
			}

			next.ServeHTTP(w, httputil.WithPrivileged(r, privileged))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
