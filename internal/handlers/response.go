// Package handlers wires the HTTP surface: gin routes, the response
// envelope, bearer auth and per-endpoint rate limiting.
package handlers

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/xcenweb/lextrade/internal/apperr"
)

// envelope is the uniform response shape. The HTTP status always mirrors
// Code so clients can branch on either.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: http.StatusOK, Msg: "ok", Data: data})
}

// respondBadRequest is for malformed request bodies, before any business
// logic runs.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, envelope{
		Code: http.StatusUnprocessableEntity,
		Msg:  msg,
		Data: nil,
	})
}

// respondError maps business errors to 400 with a machine-readable kind in
// data. Anything else is an infrastructure failure: logged in full, returned
// as a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(http.StatusBadRequest, envelope{
			Code: http.StatusBadRequest,
			Msg:  appErr.Message,
			Data: gin.H{"kind": string(appErr.Kind)},
		})
		return
	}

	logger.Error("request failed",
		slog.String("path", c.FullPath()),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, envelope{
		Code: http.StatusInternalServerError,
		Msg:  "internal server error",
		Data: nil,
	})
}
