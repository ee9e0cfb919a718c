package main

import (
	"net/http"
	"vbs/src/common"
	"vbs/src/types"

	"github.com/gin-gonic/gin"
)

func paymentHandlers(g *gin.RouterGroup, s *services) *gin.RouterGroup {
	g.
		POST("/checkout-session", func(ctx *gin.Context) {
			var body types.CheckoutSessionRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res, err := s.payments.InitiateCard(ctx, common.CardCheckoutInput{
				BookingID:  body.BookingID,
				UserID:     body.UserID,
				TotalPrice: body.TotalPrice,
			})
			if err != nil {
				respondErrorWithUpstream(ctx, err, http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, res)
		}).
		POST("/mpesa/stkpush", func(ctx *gin.Context) {
			var body types.STKPushRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			res, err := s.payments.InitiateMobileMoney(ctx, common.MobileMoneyInput{
				BookingID: body.BookingID,
				Phone:     body.Phone,
				Amount:    body.Amount,
			})
			if err != nil {
				if common.IsUpstream(err) {
					ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "upstream"})
					return
				}
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, res)
		}).
		GET("/payment-status", func(ctx *gin.Context) {
			var query types.PaymentStatusQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			status, err := s.payments.Status(ctx, query.CheckoutRequestID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, status)
		})
	return g
}
