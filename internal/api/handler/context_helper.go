package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"cantine/internal/api/middleware"
	"cantine/internal/service"
	"cantine/pkg/response"
)

// MustGetUserID reads the user id set by JWTAuth. When it is missing a 401
// has already been written and the caller should return.
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return "", false
	}
	return s, true
}

// MustGetPrincipal assembles the authenticated caller.
func MustGetPrincipal(c *gin.Context) (service.Principal, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Principal{}, false
	}
	role := c.GetString(middleware.CtxRole)
	if role == "" {
		response.Unauthorized(c, 10002, "not authenticated")
		return service.Principal{}, false
	}
	return service.Principal{
		UserID:          userID,
		Username:        c.GetString(middleware.CtxUsername),
		Role:            role,
		EstablishmentID: c.GetString(middleware.CtxEstablishmentID),
	}, true
}

// tokenIdentity returns the jti and expiry of the current access token.
func tokenIdentity(c *gin.Context) (string, time.Time) {
	exp, _ := c.Get(middleware.CtxTokenExp)
	t, _ := exp.(time.Time)
	return c.GetString(middleware.CtxTokenJTI), t
}
