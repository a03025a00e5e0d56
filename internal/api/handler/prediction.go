package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/cropguard/internal/service"
)

// PredictionHandler handles image classification requests.
type PredictionHandler struct {
	predictionService *service.PredictionService
	maxUploadBytes    int64
}

// NewPredictionHandler creates a new prediction handler.
// Parameters:
//   - predictionService: prediction pipeline.
//   - maxUploadBytes: request body limit; <= 0 disables the limit.
// Returns:
//   - *PredictionHandler: initialized handler.
func NewPredictionHandler(predictionService *service.PredictionService, maxUploadBytes int64) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		maxUploadBytes:    maxUploadBytes,
	}
}

// Predict handles POST /predict with multipart fields image and model_type.
func (h *PredictionHandler) Predict(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	req := service.PredictRequest{ClientIP: c.ClientIP()}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return
		}
		// A part sent with filename="" is parsed as a plain value.
		if form := c.Request.MultipartForm; form != nil {
			if values, ok := form.Value["image"]; ok && len(values) > 0 {
				req.Image = strings.NewReader(values[0])
			}
		}
	} else {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file: " + err.Error()})
			return
		}
		defer file.Close()
		req.Image = file
		req.Filename = fileHeader.Filename
	}
	req.ModelType, req.HasModelType = c.GetPostForm("model_type")

	result, err := h.predictionService.Predict(c.Request.Context(), &req)
	if err != nil {
		var ce *service.ClientError
		if errors.As(err, &ce) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ce.Message})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
