package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/configs"
)

// AuthMiddleware 统一身份认证，按顺序尝试:
//   - Authorization: Bearer <token>，token 在 auth.tokens 中映射到角色
//   - oauth2-proxy 注入的 X-Auth-Request-Email / X-Forwarded-Email，角色取 X-Role
//   - 开发模式下的 ?user= 兜底（auth.dev_allow_query）
//
// 跳过路径（如 /metrics、/api/v1/health）不做校验.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			role, found := lookupToken(conf.Tokens, token)
			if !found {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}

			setRole(c, ParseRole(role))
			c.Next()

			return
		}

		email := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
		if email == "" {
			email = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
		}

		if email == "" && conf.DevAllowQuery {
			email = strings.TrimSpace(c.Query("user"))
		}

		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set("user", email)
		setRole(c, ParseRole(c.GetHeader("X-Role")))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}

// lookupToken 以常量时间比较查找 token.
func lookupToken(tokens map[string]string, token string) (string, bool) {
	for k, role := range tokens {
		if subtle.ConstantTimeCompare([]byte(k), []byte(token)) == 1 {
			return role, true
		}
	}

	return "", false
}

func isSkippedPath(path string, skips []string) bool {
	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
