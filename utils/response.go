package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// ValidationFailed reports every violated field at once as HTTP 400.
// errs must be a serializable list of {field, message} pairs.
func ValidationFailed(ctx *gin.Context, code int, errs interface{}) {
	Respond(ctx, http.StatusBadRequest, code, "validation failed", gin.H{"errors": errs})
}

// QuotaDenied reports a tier limit or feature denial as HTTP 403. The message
// names the violated dimension or missing feature and is never downgraded.
func QuotaDenied(ctx *gin.Context, code int, reason string) {
	Error(ctx, http.StatusForbidden, code, reason)
}

// StorageFault reports an object-storage failure as an opaque 502. Details go
// to the log, not the client.
func StorageFault(ctx *gin.Context, code int, err error) {
	if Sugar != nil {
		Sugar.Errorw("object storage fault", "err", err, "path", ctx.FullPath())
	}
	Error(ctx, http.StatusBadGateway, code, "storage backend unavailable")
}
