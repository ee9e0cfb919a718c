package controllers

import (
	"errors"
	"log"
	"net/http"
	"vbs/src/common"
	"vbs/src/models"
	"vbs/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func AccountProfile(ctx *gin.Context, db *gorm.DB) (user *models.User, status int, err error) {
	userId := ctx.GetUint("id")
	var u models.User
	if err := db.WithContext(ctx).Where("id = ?", userId).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, http.StatusNotFound, err
		}
		log.Printf("Error retrieving user [%d]: %s\n", userId, err.Error())
		return nil, http.StatusInternalServerError, err
	}
	return &u, http.StatusOK, nil
}

// AccountBookings lists the caller's bookings, optionally filtered by ?status=.
func AccountBookings(ctx *gin.Context, bookings *common.Bookings) (list []models.Booking, status int, err error) {
	var query struct {
		Status string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	}
	if err := ctx.ShouldBindQuery(&query); err != nil {
		return nil, http.StatusBadRequest, err
	}
	userId := ctx.GetUint("id")
	list, err = bookings.ListForUser(ctx, userId, types.BookingStatus(query.Status))
	if err != nil {
		log.Printf("Error listing bookings for user [%d]: %s\n", userId, err.Error())
		return nil, http.StatusInternalServerError, err
	}
	return list, http.StatusOK, nil
}
