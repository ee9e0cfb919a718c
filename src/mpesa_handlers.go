package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"vbs/src/common"
	"vbs/src/middlewares"

	"github.com/gin-gonic/gin"
)

func mpesaCallbackRoute(g *gin.Engine, s *services) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/mpesa/callback", middlewares.CallbackToken(s.cfg.MpesaCallbackToken), func(ctx *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 65536))
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "malformed callback"})
			return
		}
		outcome, err := s.payments.ReconcileMpesaCallback(ctx, payload)
		switch {
		case err == nil:
			log.Printf("[MpesaCallback] payment=%d status=%s applied=%v\n", outcome.PaymentID, outcome.Status, outcome.Applied)
			ctx.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		case errors.Is(err, common.ErrPaymentNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"ResultCode": 1, "ResultDesc": "payment not found"})
		case errors.Is(err, common.ErrMalformedCallback):
			ctx.JSON(http.StatusBadRequest, gin.H{"ResultCode": 1, "ResultDesc": "malformed callback"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"ResultCode": 1, "ResultDesc": "internal error"})
		}
	})
	return apiv1
}
