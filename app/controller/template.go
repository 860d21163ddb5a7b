package controller

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudcore-labs/notification-hub/app/repository"
)

// TemplateController manages notification template bodies.
type TemplateController struct {
	templates *repository.TemplateRepository
}

// NewTemplateController constructs the HTTP template controller.
func NewTemplateController(templates *repository.TemplateRepository) *TemplateController {
	return &TemplateController{templates: templates}
}

type createTemplateRequest struct {
	TemplateID string `json:"template_id"`
	Body       string `json:"body"`
}

// Create stores a template body under the given id.
func (c *TemplateController) Create(ctx echo.Context) error {
	var req createTemplateRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.TemplateID) == "" || strings.TrimSpace(req.Body) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "template_id and body are required"})
	}

	if err := c.templates.Create(ctx.Request().Context(), req.TemplateID, req.Body); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store template"})
	}

	return ctx.JSON(http.StatusCreated, map[string]string{"template_id": req.TemplateID})
}

// Get fetches a template body and its placeholder keys.
func (c *TemplateController) Get(ctx echo.Context) error {
	templateID := ctx.Param("id")

	result, err := c.templates.GetContent(ctx.Request().Context(), templateID)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch template"})
	}
	if !result.Found {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "template not found"})
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"template_id": templateID,
		"body":        result.Body,
		"keys":        result.Keys,
	})
}
