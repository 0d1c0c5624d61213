package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kamtour/tourism/services"
	"github.com/kamtour/tourism/utils"
)

// paramID parses a positive numeric path parameter.
func paramID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// bindFailed answers a gin binding error with 422 and per-field messages.
func bindFailed(ctx *gin.Context, code int, err error) {
	utils.Invalid(ctx, code, utils.FieldErrors(err))
}

// serviceFailed maps service errors onto the response envelope. Anything that
// is not a known domain error is logged and reported generically.
func serviceFailed(ctx *gin.Context, err error, code int, what string) {
	if ve, ok := services.AsValidation(err); ok {
		utils.Invalid(ctx, 42200+code%100, ve.Fields)
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400+code%100, what+" not found")
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40900+code%100, what+" is still in use")
	case errors.Is(err, services.ErrUnauthenticated):
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	default:
		utils.Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.Int("code", 50000+code%100),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000+code%100, "failed to process "+what)
	}
}
