package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/locatekit/stakeflow/internal/apierrors"
	"github.com/locatekit/stakeflow/internal/bluestakes"
)

// handleLogin proxies credentials to the upstream ticket service and wraps
// the returned bearer token in a signed session token.
func (router *APIRouter) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "username and password are required")
		return
	}

	upstreamToken, err := router.upstream.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var remoteErr *bluestakes.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == 401 {
			apierrors.Error(c, apierrors.CodeUpstreamLoginFailed)
			return
		}
		router.logger.Printf("upstream login failed for %s: %v", req.Username, err)
		apierrors.Error(c, apierrors.CodeRemoteFetchFailed)
		return
	}

	sessionToken, err := router.sessions.Issue(req.Username, upstreamToken)
	if err != nil {
		router.logger.Printf("session issue failed for %s: %v", req.Username, err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	sendSuccess(c, gin.H{
		"token":      sessionToken,
		"user_login": req.Username,
	})
}
