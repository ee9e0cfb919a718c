package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
	"vbs/src/config"
	"vbs/src/models"
	"vbs/src/types"
	"vbs/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const tokenTTL = 24 * time.Hour

var (
	errInvalidCredentials = errors.New("invalid email or password")
	errAlreadyRegistered  = errors.New("user is already registered in the system. Please proceed to Log In")
)

func AuthLogin(ctx *gin.Context, db *gorm.DB, cfg *config.Config) (token *string, status int, err error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	var user models.User
	if err = db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", strings.ToLower(body.Email)).
		First(&user).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, http.StatusUnauthorized, errInvalidCredentials
		}
		log.Printf("error: %s\n", err.Error())
		return nil, http.StatusInternalServerError, err
	}
	if !utils.CheckPassword(user.PasswordHash, body.Password) {
		return nil, http.StatusUnauthorized, errInvalidCredentials
	}
	jwt, err := utils.GenerateJWT(cfg.JWTSecret, &user, tokenTTL)
	if err != nil {
		log.Printf("Error signing token for user [%d]: %s\n", user.ID, err.Error())
		return nil, http.StatusInternalServerError, err
	}
	return &jwt, http.StatusOK, nil
}

func AuthRegister(ctx *gin.Context, db *gorm.DB) (user *models.User, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	hash, err := utils.HashPassword(body.Password)
	if err != nil {
		log.Printf("Error hashing password: %s\n", err.Error())
		return nil, http.StatusInternalServerError, err
	}
	newUser := models.User{
		Name:         strings.TrimSpace(body.Name),
		Email:        strings.ToLower(body.Email),
		PasswordHash: hash,
		Phone:        body.Phone,
		Role:         types.ROLE_CUSTOMER,
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", newUser.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errAlreadyRegistered
		}
		if err := tx.Create(&newUser).Error; err != nil {
			log.Printf("Error creating user: %s\n", err.Error())
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyRegistered) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, http.StatusConflict, errAlreadyRegistered
		}
		return nil, http.StatusInternalServerError, err
	}
	return &newUser, http.StatusCreated, nil
}
