package handler

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkLedger/internal/app/report"
	"github.com/sifan077/LinkLedger/internal/app/service"
	"go.uber.org/zap"
)

// ExportResponse carries a rendered report in a JSON-safe form.
type ExportResponse struct {
	File        string `json:"file"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Count       int    `json:"count"`
}

// Export handles GET /export?from_date&to_date&file_type[&download=true]
func (h *APIHandler) Export(c *fiber.Ctx) error {
	from, to, err := parseRange(c.Query("from_date"), c.Query("to_date"))
	if err != nil {
		return h.rangeError(c, err)
	}

	format, err := report.ParseFormat(c.Query("file_type"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.reports.Export(c.UserContext(), service.ExportInput{
		From:   from,
		To:     to,
		Format: format,
	})
	if err != nil {
		var serErr *report.SerializationError
		switch {
		case errors.Is(err, service.ErrNoRecords):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No records found."})
		case errors.Is(err, service.ErrInvalidRange), errors.Is(err, report.ErrUnknownFormat):
			return badRequest(c, err.Error())
		case errors.As(err, &serErr):
			h.logger.Error("failed to render report", zap.String("format", string(serErr.Format)), zap.Error(err))
			return internalError(c, "failed to generate report")
		}
		h.logger.Error("failed to export report", zap.Error(err))
		return internalError(c, "failed to export report")
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", res.Filename))

	if c.QueryBool("download") {
		c.Set(fiber.HeaderContentType, res.ContentType)
		return c.Send(res.Data)
	}

	return c.JSON(ExportResponse{
		File:        base64.StdEncoding.EncodeToString(res.Data),
		Filename:    res.Filename,
		ContentType: res.ContentType,
		Count:       res.Count,
	})
}
