package generate

import (
	"bitwise74/sketch-api/app/respond"
	"bitwise74/sketch-api/internal"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Model turns a generated image into a 3D model for one coin. A designID
// owned by the caller gets the model attached
func Model(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.GetString("userID")
	ctx := c.Request.Context()

	f, fh, _, ok := openUpload(c, d)
	if !ok {
		return
	}
	defer f.Close()

	res, coins, err := d.Generator.Model(ctx, d.LedgerFor(c), userID, fh.Filename, f)
	if err != nil {
		respond.Fail(c, err, "Failed to generate model")
		return
	}

	body := gin.H{
		"generated_model_url": res.GeneratedModelURL,
		"coins":               coins,
	}

	if userID != "" {
		d.Sessions.Refresh(c, coins)

		if designID := c.PostForm("designID"); designID != "" {
			attached, err := d.Designs.AttachModel(ctx, userID, designID, res.GeneratedModelURL)
			if err != nil {
				zap.L().Error("Failed to attach model to design", zap.Error(err), zap.String("requestID", requestID))
			}

			body["attached"] = attached
		}
	}

	c.JSON(http.StatusOK, body)
}
