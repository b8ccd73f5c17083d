package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/renderdeck/api/internal/service"
	"github.com/renderdeck/api/pkg/response"
)

type UploadHandler struct {
	service service.FileUploader
}

func NewUploadHandler(svc service.FileUploader) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Image handles POST /api/upload/image. The returned URL is durable and may
// be referenced in a subsequent job submission.
func (h *UploadHandler) Image(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > service.MaxUploadBytes {
		return response.ValidationError(c, "File size exceeds 10MB limit", map[string]interface{}{
			"maxSize":  service.MaxUploadBytes,
			"fileSize": file.Size,
		})
	}

	src, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return response.ServiceError(c, "Failed to read file")
	}

	contentType := file.Header.Get("Content-Type")
	url, err := h.service.UploadImage(c.Context(), file.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedType) || errors.Is(err, service.ErrFileTooLarge) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, fiber.Map{
		"url": url,
	})
}
