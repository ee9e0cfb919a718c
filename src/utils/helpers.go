package utils

import (
	"errors"
	"regexp"
	"strconv"
	"time"
	"vbs/src/config"
	"vbs/src/models"
	"vbs/src/types"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var mpesaPhonePattern = regexp.MustCompile(`^254\d{9}$`)

// IsMpesaPhone reports whether phone is a 12 digit number in 254XXXXXXXXX form.
func IsMpesaPhone(phone string) bool {
	return mpesaPhonePattern.MatchString(phone)
}

func IsDepartureDate(s string) bool {
	_, err := time.Parse(config.DATE_PARSE_FORMAT, s)
	return err == nil
}

func IsDepartureTime(s string) bool {
	_, err := time.Parse(config.TIME_PARSE_FORMAT, s)
	return err == nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func GenerateJWT(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates an HS256 token and returns its claims.
func ParseJWT(secret, tokenString string) (*types.Claims, error) {
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
