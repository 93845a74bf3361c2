package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/andywalner/pa-mmi-mock-interviewer/internal/repository"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/response"
)

// SignUp creates a new user
func (h *Handler) SignUp(c *gin.Context) {
	var req model.SignUpReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Logger.Sugar().Warnw("signup bad request", "err", err)
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	pwHash, err := pkg.HashPassword(req.Password)
	if err != nil {
		h.Logger.Sugar().Errorw("failed to hash password", "err", err)
		response.InternalError(c, "internal error")
		return
	}

	id, err := h.Repo.CreateUser(ctx, req.Email, pwHash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			response.Conflict(c, "email already registered")
			return
		}
		h.Logger.Sugar().Errorw("user create failed", "email", req.Email, "err", err)
		response.InternalError(c, "could not create user")
		return
	}

	response.Created(c, model.UserRes{ID: id, Email: req.Email})
}

// Login verifies credentials and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req model.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Logger.Sugar().Warnw("login bad request", "err", err)
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := h.Repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		h.Logger.Sugar().Warnw("login user not found", "email", req.Email, "err", err)
		response.Unauthorized(c, "invalid credentials")
		return
	}
	if err := pkg.ComparePassword(user.PasswordHash, req.Password); err != nil {
		h.Logger.Sugar().Warnw("login password mismatch", "email", req.Email, "err", err)
		response.Unauthorized(c, "invalid credentials")
		return
	}

	accessToken, accessClaims, err := h.TokenMaker.GenerateToken(user.ID, user.Email, h.JwtTTL)
	if err != nil {
		h.Logger.Sugar().Errorw("error creating token", "err", err)
		response.InternalError(c, "could not generate token")
		return
	}

	response.OK(c, model.LoginRes{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: accessClaims.RegisteredClaims.ExpiresAt.Time,
		User:                 model.UserRes{ID: user.ID, Email: user.Email},
	})
}

// Me returns the authenticated user
func (h *Handler) Me(c *gin.Context) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "")
		return
	}

	user, err := h.Repo.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		h.Logger.Sugar().Warnw("me lookup failed", "user", claims.UserID, "err", err)
		response.Unauthorized(c, "")
		return
	}
	response.OK(c, model.UserRes{ID: user.ID, Email: user.Email})
}
