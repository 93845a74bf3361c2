package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andywalner/pa-mmi-mock-interviewer/internal/repository"
	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListInterviews returns the user's interview history, newest first.
func (h *Handler) ListInterviews(c *gin.Context) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	interviews, total, err := h.Repo.ListInterviewsByUser(c.Request.Context(), claims.UserID, pageSize, (page-1)*pageSize)
	if err != nil {
		h.Logger.Sugar().Errorw("list interviews failed", "user", claims.UserID, "err", err)
		response.InternalError(c, "could not list interviews")
		return
	}

	response.OKWithMeta(c, interviews, &response.Meta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  page*pageSize < total,
	})
}

// GetInterview returns a stored interview with its responses and evaluation.
func (h *Handler) GetInterview(c *gin.Context) {
	claims := h.claimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "")
		return
	}

	interviewID := c.Param("id")
	stored, err := h.Repo.LoadInterview(c.Request.Context(), interviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "interview not found")
			return
		}
		h.Logger.Sugar().Errorw("load interview failed", "interview", interviewID, "err", err)
		response.InternalError(c, "could not load interview")
		return
	}
	if stored.Interview.UserID != claims.UserID {
		response.NotFound(c, "interview not found")
		return
	}

	response.OK(c, stored)
}
