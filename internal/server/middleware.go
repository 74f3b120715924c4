package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tailscale.com/client/tailscale/apitype"
)

type contextKey int

const (
	userIDKey contextKey = iota
	userInfoKey
)

// devUserID is the seeded local user, used when Tailscale is off.
const devUserID = 1

// UserInfo identifies the caller.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

var devUser = UserInfo{Login: "local", DisplayName: "Local Dev User"}

// WhoIsClient resolves a tailnet peer address to a user. The tsnet
// *local.Client satisfies it.
type WhoIsClient interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// UserStore maps a Tailscale login to a local user ID.
type UserStore interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing API key"})
				return
			}
			if key != apiKey {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid API key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DevIdentity assigns every request to the local user.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), userIDKey, devUserID)
		ctx = context.WithValue(ctx, userInfoKey, devUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TailscaleIdentity resolves the tailnet user behind each request and maps
// it to a local user, creating one on first sight.
func TailscaleIdentity(lc WhoIsClient, users UserStore, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := lc.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil {
				log.Warn("whois failed", "remote", r.RemoteAddr, "error", err)
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "unknown tailnet peer"})
				return
			}
			if who.UserProfile == nil || who.UserProfile.LoginName == "" {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "tailnet peer has no user"})
				return
			}

			info := UserInfo{Login: who.UserProfile.LoginName, DisplayName: who.UserProfile.DisplayName}
			uid, err := users.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
			if err != nil {
				log.Error("user lookup failed", "login", info.Login, "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "user lookup failed"})
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, uid)
			ctx = context.WithValue(ctx, userInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identity picks Tailscale or dev identity depending on how the server runs.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.ts == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.ts, s.db, s.log)(next).ServeHTTP(w, r)
	})
}

// UserIDFromRequest returns the caller's user ID, defaulting to the local user.
func UserIDFromRequest(r *http.Request) int {
	return userIDFromContext(r)
}

func userIDFromContext(r *http.Request) int {
	if id, ok := r.Context().Value(userIDKey).(int); ok {
		return id
	}
	return devUserID
}

func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return devUser
}

// mustUserID returns the caller's user ID, writing 401 when it is unusable.
func mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	uid := userIDFromContext(r)
	if uid <= 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no user identity"})
		return 0, false
	}
	return uid, true
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers (MCP) push through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
