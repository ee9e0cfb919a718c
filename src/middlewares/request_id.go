package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID tags every request with an id, reusing X-Request-ID when the
// caller sent one.
func RequestID(ctx *gin.Context) {
	rid := ctx.GetHeader("X-Request-ID")
	if rid == "" {
		rid = uuid.NewString()
	}
	ctx.Set(requestIDKey, rid)
	ctx.Writer.Header().Set("X-Request-ID", rid)
	ctx.Next()
}

func GetRequestID(ctx *gin.Context) string {
	return ctx.GetString(requestIDKey)
}
