package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"vbs/src/common"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82/webhook"
)

func stripeWebhookRoute(g *gin.Engine, s *services) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 65536))
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), s.cfg.StripeWebhookSecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		_, err = s.payments.ReconcileStripeEvent(ctx, event)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrPaymentNotFound):
			// sessions created outside this service are acknowledged so
			// they are not redelivered
			log.Printf("[StripeEvent] %s: unknown checkout session\n", event.ID)
		case errors.Is(err, common.ErrMalformedCallback):
			ctx.Status(http.StatusBadRequest)
			return
		default:
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Status(http.StatusNoContent)
	})
	return apiv1
}
