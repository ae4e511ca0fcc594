package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkLedger/internal/app/localtime"
	"github.com/sifan077/LinkLedger/internal/app/model"
	"github.com/sifan077/LinkLedger/internal/app/service"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger       *zap.Logger
	LinkService  service.LinkService
	LogService   service.DownloadLogService
	Reports      service.ReportService
	ServiceTitle string
}

// APIHandler implements the link logging and report endpoints.
type APIHandler struct {
	logger  *zap.Logger
	links   service.LinkService
	logs    service.DownloadLogService
	reports service.ReportService
	title   string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	title := deps.ServiceTitle
	if title == "" {
		title = "IT Rules Logger API"
	}
	return &APIHandler{
		logger:  logger,
		links:   deps.LinkService,
		logs:    deps.LogService,
		reports: deps.Reports,
		title:   title,
	}
}

// Register wires the read routes onto router. Write and export routes are
// registered separately so they can sit behind the rate limiter.
func (h *APIHandler) Register(router fiber.Router) {
	router.Get("/", h.Root)
	router.Get("/get_links", h.GetLinks)
	router.Get("/get_logs", h.GetLogs)
}

// RegisterLimited wires the routes that write records or render reports.
func (h *APIHandler) RegisterLimited(router fiber.Router, limiter ...fiber.Handler) {
	chain := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, limiter...), handler)
	}
	router.Post("/add_link", chain(h.AddLink)...)
	router.Post("/log_download", chain(h.LogDownload)...)
	router.Get("/export", chain(h.Export)...)
}

// Root handles GET /
func (h *APIHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": h.title + " is running"})
}

// AddLinkRequest represents the request body for logging a link.
type AddLinkRequest struct {
	URL      string  `json:"url"`
	Comments *string `json:"comments,omitempty"`
}

// AddLink handles POST /add_link
func (h *APIHandler) AddLink(c *fiber.Ctx) error {
	var req AddLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	link, err := h.links.AddLink(c.UserContext(), service.AddLinkInput{
		URL:      req.URL,
		Comments: req.Comments,
	})
	if err != nil {
		var conflict *service.ConflictError
		switch {
		case errors.As(err, &conflict):
			h.logger.Debug("duplicate link", zap.String("url", conflict.URL))
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message":  "This link already exists in the database.",
				"platform": conflict.Platform,
			})
		case errors.Is(err, service.ErrInvalidLink):
			return badRequest(c, err.Error())
		}
		h.logger.Error("failed to add link", zap.Error(err))
		return internalError(c, "failed to add link")
	}

	return c.JSON(fiber.Map{
		"message":  "Link added successfully",
		"platform": link.Platform,
	})
}

// LinkResponse is a stored link with its timestamp in display form.
type LinkResponse struct {
	URL           string  `json:"url"`
	Platform      string  `json:"platform"`
	Comments      *string `json:"comments"`
	RuleViolation string  `json:"rule_violation"`
	ActionStatus  string  `json:"action_status"`
	Timestamp     string  `json:"timestamp"`
}

func newLinkResponse(l model.Link) LinkResponse {
	return LinkResponse{
		URL:           l.URL,
		Platform:      l.Platform,
		Comments:      l.Comments,
		RuleViolation: l.RuleViolation,
		ActionStatus:  l.ActionStatus,
		Timestamp:     localtime.ToDisplay(l.Timestamp),
	}
}

// GetLinks handles GET /get_links?from_date&to_date
//
// A date that cannot be parsed is answered with 400 and
// {"error": "Invalid date: ..."}. A range that starts after it ends is also a 400.
func (h *APIHandler) GetLinks(c *fiber.Ctx) error {
	from, to, err := parseRange(c.Query("from_date"), c.Query("to_date"))
	if err != nil {
		return h.rangeError(c, err)
	}

	links, err := h.links.ListLinks(c.UserContext(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			return badRequest(c, err.Error())
		}
		h.logger.Error("failed to list links", zap.Error(err))
		return internalError(c, "failed to list links")
	}

	data := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		data = append(data, newLinkResponse(l))
	}
	return c.JSON(fiber.Map{"data": data})
}

// LogDownloadRequest represents the request body for recording a download.
type LogDownloadRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Count    int    `json:"count"`
	User     string `json:"user"`
}

// LogDownload handles POST /log_download
func (h *APIHandler) LogDownload(c *fiber.Ctx) error {
	var req LogDownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	from, to, err := parseRange(req.FromDate, req.ToDate)
	if err != nil {
		return h.rangeError(c, err)
	}

	_, err = h.logs.Record(c.UserContext(), service.LogDownloadInput{
		From:  from,
		To:    to,
		Count: req.Count,
		User:  req.User,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidLog) || errors.Is(err, service.ErrInvalidRange) {
			return badRequest(c, err.Error())
		}
		h.logger.Error("failed to save download log", zap.Error(err))
		return internalError(c, "failed to save download log")
	}

	return c.JSON(fiber.Map{"message": "Download log saved."})
}

// DownloadLogResponse is a download log entry with display timestamps.
type DownloadLogResponse struct {
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Count     int    `json:"count"`
	User      string `json:"user"`
	Timestamp string `json:"timestamp"`
}

// GetLogs handles GET /get_logs
func (h *APIHandler) GetLogs(c *fiber.Ctx) error {
	entries, err := h.logs.List(c.UserContext())
	if err != nil {
		h.logger.Error("failed to list download logs", zap.Error(err))
		return internalError(c, "failed to list download logs")
	}

	logs := make([]DownloadLogResponse, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, DownloadLogResponse{
			FromDate:  localtime.ToDisplay(e.FromDate),
			ToDate:    localtime.ToDisplay(e.ToDate),
			Count:     e.Count,
			User:      e.User,
			Timestamp: localtime.ToDisplay(e.Timestamp),
		})
	}
	return c.JSON(fiber.Map{"logs": logs})
}

func parseRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	from, err := localtime.ToStorage(rawFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := localtime.ToStorage(rawTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (h *APIHandler) rangeError(c *fiber.Ctx, err error) error {
	var parseErr *localtime.ParseError
	if errors.As(err, &parseErr) {
		h.logger.Debug("invalid date", zap.String("input", parseErr.Input), zap.Error(err))
		return badRequest(c, "Invalid date: "+parseErr.Error())
	}
	h.logger.Error("failed to parse range", zap.Error(err))
	return internalError(c, "failed to parse range")
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}
