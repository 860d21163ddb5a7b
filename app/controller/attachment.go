package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudcore-labs/notification-hub/app/storage"
)

// AttachmentController uploads attachments into object storage and hands
// back the opaque id events reference.
type AttachmentController struct {
	store storage.ObjectStore
}

// NewAttachmentController constructs the HTTP attachment controller.
func NewAttachmentController(store storage.ObjectStore) *AttachmentController {
	return &AttachmentController{store: store}
}

// Upload stores one multipart file and returns its attachment id.
func (c *AttachmentController) Upload(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "cannot read uploaded file"})
	}
	defer file.Close()

	id, err := newEventID()
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to allocate attachment id"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	metadata := map[string]string{
		"name": fileHeader.Filename,
	}
	if contentType != "" {
		metadata["type"] = contentType
	}

	if err := c.store.Upload(ctx.Request().Context(), id, file, contentType, metadata); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store attachment"})
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"id": id})
}
