package generate

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sketch turns an uploaded sketch into an image for one coin
func Sketch(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.GetString("userID")
	ctx := c.Request.Context()

	f, fh, mime, ok := openUpload(c, d)
	if !ok {
		return
	}
	defer f.Close()

	res, coins, err := d.Generator.Image(ctx, d.LedgerFor(c), userID, fh.Filename, f)
	if err != nil {
		respond.Fail(c, err, "Failed to generate image")
		return
	}

	body := gin.H{
		"input_sketch_url":    res.InputSketchURL,
		"generated_image_url": res.GeneratedImageURL,
		"coins":               coins,
	}

	// Guests have no history
	if userID != "" {
		d.Sessions.Refresh(c, coins)

		key := archive(c, d, f, mime, fh.Filename)

		design, err := d.Designs.Create(ctx, userID, res, key)
		if err != nil {
			// The coin is spent on a good result either way
			zap.L().Error("Failed to save design", zap.Error(err), zap.String("requestID", requestID))
		} else {
			body["designID"] = design.ID
		}
	}

	c.JSON(http.StatusOK, body)
}

// archive copies the sketch to the bucket and returns its key, or "" when
// archiving is off or failed
func archive(c *gin.Context, d *internal.Deps, f io.ReadSeeker, mime, filename string) string {
	if d.Archive == nil {
		return ""
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		zap.L().Error("Failed to rewind sketch", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		return ""
	}

	key := "sketches/" + c.GetString("userID") + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	if err := d.Archive.Put(c.Request.Context(), key, mime, f); err != nil {
		zap.L().Error("Failed to archive sketch", zap.Error(err), zap.String("requestID", c.GetString("requestID")))
		return ""
	}

	return key
}
