// Phase 11 - 接口层: HTTP Middleware - API Key 认证中间件
// 文件: internal/interfaces/http/middleware/auth.go
// 功能定位: 以静态 API Key 保护 /api/v1，Key 来自配置 server.api_keys
// 核心实现:
//   - 支持 X-API-Key 头与 Authorization: Bearer <key>
//   - 常量时间比较，日志与上下文中只保留 Key 的短指纹
//   - 未配置任何 Key 时放行全部请求
// 依赖关系:
//   - 依赖: internal/infrastructure/monitoring/logging
//   - 被依赖: internal/interfaces/http/router.go, ratelimit.go
package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

type contextKey int

const apiKeyIDContextKey contextKey = iota

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	APIKeys []string
	// SkipPaths bypass authentication.  A path also matches its subtree.
	SkipPaths []string
}

// AuthMiddleware checks requests against a fixed set of API keys.
type AuthMiddleware struct {
	keys   [][]byte
	config AuthConfig
	logger logging.Logger
}

func NewAuthMiddleware(config AuthConfig, logger logging.Logger) *AuthMiddleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &AuthMiddleware{config: config, logger: logger}
	for _, k := range config.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			m.keys = append(m.keys, []byte(k))
		}
	}
	return m
}

// Enabled reports whether any key is configured.
func (m *AuthMiddleware) Enabled() bool { return len(m.keys) > 0 }

// Handler rejects requests without a valid key with 401.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() || m.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := extractAPIKey(r)
		if key == "" {
			writeUnauthorized(w, "authentication required")
			return
		}
		if !m.valid(key) {
			m.logger.Warn("rejected API key",
				logging.String("path", r.URL.Path),
				logging.String("api_key_id", KeyID(key)))
			writeUnauthorized(w, "invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyIDContextKey, KeyID(key))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) valid(key string) bool {
	ok := 0
	for _, k := range m.keys {
		ok |= subtle.ConstantTimeCompare(k, []byte(key))
	}
	return ok == 1
}

func (m *AuthMiddleware) shouldSkip(path string) bool {
	for _, skip := range m.config.SkipPaths {
		if path == skip || strings.HasPrefix(path, skip+"/") {
			return true
		}
	}
	return false
}

// extractAPIKey reads X-API-Key, falling back to a bearer token.
func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// KeyID is a short fingerprint of key, safe to log.
func KeyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

// ContextGetAPIKeyID returns the fingerprint of the authenticated key, or "".
func ContextGetAPIKeyID(ctx context.Context) string {
	id, _ := ctx.Value(apiKeyIDContextKey).(string)
	return id
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="longdoc"`)
	writeError(w, http.StatusUnauthorized, string(errors.ErrCodeUnauthorized), message)
}

//Personal.AI order the ending
