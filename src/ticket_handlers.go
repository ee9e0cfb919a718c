package main

import (
	"net/http"
	"vbs/src/common"
	"vbs/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ticketRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

func ticketHandlers(g *gin.RouterGroup, s *services) *gin.RouterGroup {
	g.
		POST("/tickets", func(ctx *gin.Context) {
			var body types.CreateTicketRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := s.tickets.Create(ctx, common.CreateTicketInput{
				UserID:    ctx.GetUint("id"),
				BookingID: body.BookingID,
				Subject:   body.Subject,
				Message:   body.Message,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": ticket})
		}).
		GET("/tickets", func(ctx *gin.Context) {
			tickets, err := s.tickets.List(ctx, ctx.GetUint("id"), types.Role(ctx.GetString("role")))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tickets, "count": len(tickets)})
		}).
		GET("/tickets/:id", func(ctx *gin.Context) {
			var params ticketRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := s.tickets.Get(ctx, uuid.MustParse(params.ID), ctx.GetUint("id"), types.Role(ctx.GetString("role")))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		}).
		PUT("/tickets/:id/close", func(ctx *gin.Context) {
			var params ticketRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ticket, err := s.tickets.Close(ctx, uuid.MustParse(params.ID), ctx.GetUint("id"), types.Role(ctx.GetString("role")))
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": ticket})
		})
	return g
}
