package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/locatekit/stakeflow/internal/apierrors"
	"github.com/locatekit/stakeflow/internal/auth"
)

// sessionContextKey is the gin context key the decoded session is stored
// under.
const sessionContextKey = "stakeflow_session"

// SessionAuth authenticates requests carrying a stakeflow session token in
// the Authorization header and places the decoded session in the request
// context. There is no ambient auth state: handlers read the session from
// the context they were invoked with.
func SessionAuth(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}

		sess, err := sessions.Validate(token)
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				apierrors.Error(c, apierrors.CodeTokenExpired)
			} else {
				apierrors.Error(c, apierrors.CodeInvalidToken)
			}
			c.Abort()
			return
		}

		c.Set(sessionContextKey, sess)
		c.Next()
	}
}

// SessionFromContext returns the session placed by SessionAuth, or nil when
// the request was not authenticated.
func SessionFromContext(c *gin.Context) *auth.UserSession {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil
	}
	sess, ok := value.(*auth.UserSession)
	if !ok {
		return nil
	}
	return sess
}

func extractBearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
