// Package generate forwards sketches and images to the generation gateway
package generate

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"bitwise74/sketch-api/pkg/middleware"
	"bitwise74/sketch-api/pkg/validators"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// openUpload validates the "file" field. It writes the error response itself
// and returns ok=false when the request can't continue
func openUpload(c *gin.Context, d *internal.Deps) (f multipart.File, fh *multipart.FileHeader, mime string, ok bool) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			respond.Fail(c, err, "Upload too large")
			return nil, nil, "", false
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No file provided",
			"requestID": requestID,
		})
		return nil, nil, "", false
	}

	code, f, mime, err := validators.ImageValidator(fh, d.UploadMaxSize, d.AllowedTypes)
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to read upload", zap.Error(err), zap.String("requestID", requestID))
			respond.Message(c, code, "Internal server error")
			return nil, nil, "", false
		}

		respond.Message(c, code, err.Error())
		return nil, nil, "", false
	}

	return f, fh, mime, true
}
