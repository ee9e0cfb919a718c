package main

import (
	"net/http"
	"vbs/src/common"
	"vbs/src/types"

	"github.com/gin-gonic/gin"
)

func vehicleHandlers(g *gin.RouterGroup, s *services) *gin.RouterGroup {
	g.
		GET("/vehicles", func(ctx *gin.Context) {
			vehicles, err := s.inventory.ListVehicles(ctx)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": vehicles, "count": len(vehicles)})
		}).
		GET("/vehicles/:id", func(ctx *gin.Context) {
			var params types.VehicleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			vehicle, err := s.inventory.GetVehicle(ctx, params.ID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": vehicle})
		}).
		GET("/vehicles/:id/availability", func(ctx *gin.Context) {
			var params types.VehicleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var query types.AvailabilityQuery
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			seats, err := s.inventory.Availability(ctx, params.ID, query.Date)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": seats})
		})
	return g
}

// vehicleAdminHandlers manages the fleet. Only admins may call them.
func vehicleAdminHandlers(g *gin.RouterGroup, s *services) *gin.RouterGroup {
	admin := g.Group("", requireRole(types.ROLE_ADMIN))
	admin.
		POST("/vehicles", func(ctx *gin.Context) {
			var body types.CreateVehicleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			vehicle, err := s.inventory.CreateVehicle(ctx, common.CreateVehicleInput{
				Registration: body.Registration,
				Name:         body.Name,
				Route:        body.Route,
				Capacity:     body.Capacity,
			})
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": vehicle})
		}).
		POST("/vehicles/:id/seats", func(ctx *gin.Context) {
			var params types.VehicleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CreateSeatsRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			seats, err := s.inventory.AddSeats(ctx, params.ID, body.Seats)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": seats})
		})
	return admin
}

func requireRole(role types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if types.Role(ctx.GetString("role")) != role {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}
}
