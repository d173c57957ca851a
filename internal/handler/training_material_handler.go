package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/prefect-api/internal/models"
	appErrors "github.com/noah-isme/prefect-api/pkg/errors"
	"github.com/noah-isme/prefect-api/pkg/response"
)

type materialUploader interface {
	Upload(ctx context.Context, actor models.Actor, id string, file io.ReadSeeker, upload models.MaterialUpload) (*models.TrainingMaterial, error)
}

// MaterialUploadHandler attaches files to training materials.
type MaterialUploadHandler struct {
	service materialUploader
}

// NewMaterialUploadHandler constructs the handler.
func NewMaterialUploadHandler(svc materialUploader) *MaterialUploadHandler {
	return &MaterialUploadHandler{service: svc}
}

// Upload godoc
// @Summary Attach file to training material
// @Description Content type is sniffed and checked against the allow list
// @Tags Resources
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Material ID"
// @Param file formData file true "Material file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /training-materials/{id}/file [put]
func (h *MaterialUploadHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}
	defer file.Close()

	material, err := h.service.Upload(c.Request.Context(), actor, c.Param("id"), file, models.MaterialUpload{
		Filename: header.Filename,
		Size:     header.Size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}
