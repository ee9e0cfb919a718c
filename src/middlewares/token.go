package middlewares

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallbackToken guards provider callbacks that cannot be signed. The provider
// echoes the ?token= embedded in the callback URL we registered with it.
func CallbackToken(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := ctx.Query("token")
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			log.Printf("Rejected callback from %s: bad token\n", ctx.ClientIP())
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ResultCode": 1, "ResultDesc": "unauthorized"})
			return
		}
		ctx.Next()
	}
}
