package main

import (
	"errors"
	"log"
	"net/http"
	"vbs/src/common"
	"vbs/src/middlewares"

	"github.com/gin-gonic/gin"
)

// statusFor maps a domain error to its HTTP status. upstream is the status
// used for provider failures, which differs between payment routes.
func statusFor(err error, upstream int) int {
	switch {
	case common.IsValidation(err), errors.Is(err, common.ErrMalformedCallback):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	case common.IsUpstream(err):
		return upstream
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error) {
	respondErrorWithUpstream(ctx, err, http.StatusInternalServerError)
}

func respondErrorWithUpstream(ctx *gin.Context, err error, upstream int) {
	status := statusFor(err, upstream)
	msg := err.Error()
	if status == http.StatusInternalServerError && !common.IsUpstream(err) {
		log.Printf("[%s %s] request_id=%s error: %s\n", ctx.Request.Method, ctx.FullPath(), middlewares.GetRequestID(ctx), err.Error())
		msg = "internal server error"
	}
	ctx.JSON(status, gin.H{"error": msg})
}
