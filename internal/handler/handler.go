package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andywalner/pa-mmi-mock-interviewer/internal/auth"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/catalog"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/repository"
	"github.com/andywalner/pa-mmi-mock-interviewer/internal/session"
)

type Handler struct {
	Logger     *zap.Logger
	Registry   *session.Registry
	Repo       *repository.Repository
	Catalog    *catalog.Catalog
	TokenMaker *auth.JWTMaker
	JwtTTL     time.Duration
}

// claimsFromContext retrieves the verified claims the auth middleware stored.
func (h *Handler) claimsFromContext(c *gin.Context) *auth.UserClaims {
	v, exists := c.Get("claims")
	if !exists {
		return nil
	}
	claims, ok := v.(*auth.UserClaims)
	if !ok {
		return nil
	}
	return claims
}
