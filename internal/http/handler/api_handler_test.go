package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/LinkLedger/internal/app/localtime"
	"github.com/sifan077/LinkLedger/internal/app/model"
	"github.com/sifan077/LinkLedger/internal/app/report"
	"github.com/sifan077/LinkLedger/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLinkService struct {
	addFn  func(ctx context.Context, input service.AddLinkInput) (*model.Link, error)
	listFn func(ctx context.Context, from, to time.Time) ([]model.Link, error)
}

func (m *mockLinkService) AddLink(ctx context.Context, input service.AddLinkInput) (*model.Link, error) {
	return m.addFn(ctx, input)
}

func (m *mockLinkService) ListLinks(ctx context.Context, from, to time.Time) ([]model.Link, error) {
	return m.listFn(ctx, from, to)
}

func (m *mockLinkService) WarmDedupe(context.Context) (int, error) { return 0, nil }

type mockLogService struct {
	recordFn func(ctx context.Context, input service.LogDownloadInput) (*model.DownloadLog, error)
	listFn   func(ctx context.Context) ([]model.DownloadLog, error)
}

func (m *mockLogService) Record(ctx context.Context, input service.LogDownloadInput) (*model.DownloadLog, error) {
	return m.recordFn(ctx, input)
}

func (m *mockLogService) List(ctx context.Context) ([]model.DownloadLog, error) {
	return m.listFn(ctx)
}

type mockReportService struct {
	exportFn func(ctx context.Context, input service.ExportInput) (*service.ExportResult, error)
}

func (m *mockReportService) Export(ctx context.Context, input service.ExportInput) (*service.ExportResult, error) {
	return m.exportFn(ctx, input)
}

func newTestApp(deps APIDeps) *fiber.App {
	app := fiber.New()
	h := NewAPIHandler(deps)
	h.Register(app)
	h.RegisterLimited(app)
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any, *http.Response) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp.StatusCode, body, resp
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func TestRoot(t *testing.T) {
	app := newTestApp(APIDeps{})

	status, body, _ := doRequest(t, app, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "IT Rules Logger API is running", body["message"])
}

func TestAddLink(t *testing.T) {
	var got service.AddLinkInput
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		addFn: func(_ context.Context, input service.AddLinkInput) (*model.Link, error) {
			got = input
			return &model.Link{URL: "https://instagram.com/p/ABC123/", Platform: "Instagram"}, nil
		},
	}})

	status, body, _ := doRequest(t, app, jsonRequest("POST", "/add_link",
		`{"url":"https://instagram.com/p/ABC123/?igsh=xyz","comments":"fake"}`))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Instagram", body["platform"])
	assert.Equal(t, "https://instagram.com/p/ABC123/?igsh=xyz", got.URL)
	require.NotNil(t, got.Comments)
	assert.Equal(t, "fake", *got.Comments)
}

func TestAddLink_TrailingSlashRoute(t *testing.T) {
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		addFn: func(context.Context, service.AddLinkInput) (*model.Link, error) {
			return &model.Link{Platform: "Other"}, nil
		},
	}})

	status, _, _ := doRequest(t, app, jsonRequest("POST", "/add_link/", `{"url":"https://example.com"}`))
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAddLink_Conflict(t *testing.T) {
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		addFn: func(context.Context, service.AddLinkInput) (*model.Link, error) {
			return nil, &service.ConflictError{URL: "https://x.com/a", Platform: "Twitter"}
		},
	}})

	status, body, _ := doRequest(t, app, jsonRequest("POST", "/add_link", `{"url":"https://x.com/a"}`))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "Twitter", body["platform"])
	assert.NotEmpty(t, body["message"])
}

func TestAddLink_BadInput(t *testing.T) {
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		addFn: func(context.Context, service.AddLinkInput) (*model.Link, error) {
			return nil, service.ErrInvalidLink
		},
	}})

	status, body, _ := doRequest(t, app, jsonRequest("POST", "/add_link", `{"url":""}`))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "invalid link")

	status, _, _ = doRequest(t, app, jsonRequest("POST", "/add_link", `{"url":`))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAddLink_InternalError(t *testing.T) {
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		addFn: func(context.Context, service.AddLinkInput) (*model.Link, error) {
			return nil, errors.New("db down")
		},
	}})

	status, body, _ := doRequest(t, app, jsonRequest("POST", "/add_link", `{"url":"https://x.com"}`))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "failed to add link", body["error"])
}

func TestGetLinks(t *testing.T) {
	note := "clip"
	stored := time.Date(2025, 6, 1, 4, 30, 0, 0, time.UTC)

	var gotFrom, gotTo time.Time
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		listFn: func(_ context.Context, from, to time.Time) ([]model.Link, error) {
			gotFrom, gotTo = from, to
			return []model.Link{{
				URL:           "https://x.com/a",
				Platform:      "Twitter",
				Comments:      &note,
				RuleViolation: model.RuleViolationDefault,
				ActionStatus:  model.ActionStatusNotTakenDown,
				Timestamp:     stored,
			}}, nil
		},
	}})

	q := url.Values{"from_date": {"2025-06-01T00:00:00+05:30"}, "to_date": {"2025-06-01T23:59"}}
	status, body, _ := doRequest(t, app, httptest.NewRequest("GET", "/get_links?"+q.Encode(), nil))
	require.Equal(t, fiber.StatusOK, status)

	assert.True(t, gotFrom.Equal(time.Date(2025, 5, 31, 18, 30, 0, 0, time.UTC)))
	assert.True(t, gotTo.Equal(time.Date(2025, 6, 1, 18, 29, 0, 0, time.UTC)))

	data := body["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "01 Jun 2025, 10:00 AM", row["timestamp"])
	assert.Equal(t, "clip", row["comments"])
	assert.Equal(t, "Not Taken Down", row["action_status"])
}

func TestGetLinks_OffsetDecodedAsSpace(t *testing.T) {
	var gotFrom time.Time
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		listFn: func(_ context.Context, from, _ time.Time) ([]model.Link, error) {
			gotFrom = from
			return nil, nil
		},
	}})

	// A literal + in the query string decodes to a space.
	status, body, _ := doRequest(t, app, httptest.NewRequest("GET",
		"/get_links?from_date=2025-06-01T00:00:00+05:30&to_date=2025-06-02", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])
	assert.True(t, gotFrom.Equal(time.Date(2025, 5, 31, 18, 30, 0, 0, time.UTC)))
}

func TestGetLinks_InvalidDate(t *testing.T) {
	app := newTestApp(APIDeps{LinkService: &mockLinkService{}})

	status, body, _ := doRequest(t, app, httptest.NewRequest("GET", "/get_links?from_date=yesterday&to_date=2025-06-01", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.True(t, strings.HasPrefix(body["error"].(string), "Invalid date: "))
}

func TestGetLinks_ReversedRange(t *testing.T) {
	app := newTestApp(APIDeps{LinkService: &mockLinkService{
		listFn: func(context.Context, time.Time, time.Time) ([]model.Link, error) {
			return nil, service.ErrInvalidRange
		},
	}})

	status, _, _ := doRequest(t, app, httptest.NewRequest("GET", "/get_links?from_date=2025-06-02&to_date=2025-06-01", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestLogDownload(t *testing.T) {
	var got service.LogDownloadInput
	app := newTestApp(APIDeps{LogService: &mockLogService{
		recordFn: func(_ context.Context, input service.LogDownloadInput) (*model.DownloadLog, error) {
			got = input
			return &model.DownloadLog{}, nil
		},
	}})

	status, body, _ := doRequest(t, app, jsonRequest("POST", "/log_download",
		`{"from_date":"2025-06-01T00:00:00+05:30","to_date":"2025-06-01T23:59:00+05:30","count":3,"user":"analyst"}`))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Download log saved.", body["message"])
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, "analyst", got.User)
	assert.True(t, got.From.Equal(time.Date(2025, 5, 31, 18, 30, 0, 0, time.UTC)))
}

func TestLogDownload_Invalid(t *testing.T) {
	app := newTestApp(APIDeps{LogService: &mockLogService{
		recordFn: func(context.Context, service.LogDownloadInput) (*model.DownloadLog, error) {
			return nil, service.ErrInvalidLog
		},
	}})

	status, _, _ := doRequest(t, app, jsonRequest("POST", "/log_download",
		`{"from_date":"2025-06-01","to_date":"2025-06-01","count":-1}`))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body, _ := doRequest(t, app, jsonRequest("POST", "/log_download",
		`{"from_date":"nope","to_date":"2025-06-01","count":1}`))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "Invalid date")
}

func TestGetLogs(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	app := newTestApp(APIDeps{LogService: &mockLogService{
		listFn: func(context.Context) ([]model.DownloadLog, error) {
			return []model.DownloadLog{{FromDate: ts, ToDate: ts, Count: 2, User: "admin", Timestamp: ts}}, nil
		},
	}})

	status, body, _ := doRequest(t, app, httptest.NewRequest("GET", "/get_logs", nil))
	require.Equal(t, fiber.StatusOK, status)

	logs := body["logs"].([]any)
	require.Len(t, logs, 1)
	entry := logs[0].(map[string]any)
	assert.Equal(t, "01 Jun 2025, 05:30 PM", entry["timestamp"])
	assert.Equal(t, "admin", entry["user"])
	assert.EqualValues(t, 2, entry["count"])
}

func TestExport(t *testing.T) {
	var got service.ExportInput
	app := newTestApp(APIDeps{Reports: &mockReportService{
		exportFn: func(_ context.Context, input service.ExportInput) (*service.ExportResult, error) {
			got = input
			return &service.ExportResult{
				Filename:    "violations_20250601-0000_20250601-2359.docx",
				ContentType: input.Format.ContentType(),
				Data:        []byte("PK\x03\x04"),
				Count:       2,
			}, nil
		},
	}})

	status, body, resp := doRequest(t, app, httptest.NewRequest("GET",
		"/export?from_date=2025-06-01&to_date=2025-06-01T23:59&file_type=docx", nil))
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, report.FormatDOCX, got.Format)
	assert.True(t, got.From.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, localtime.Location)))
	assert.Equal(t, "attachment; filename=violations_20250601-0000_20250601-2359.docx",
		resp.Header.Get(fiber.HeaderContentDisposition))

	raw, err := base64.StdEncoding.DecodeString(body["file"].(string))
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04", string(raw))
	assert.EqualValues(t, 2, body["count"])
}

func TestExport_Download(t *testing.T) {
	app := newTestApp(APIDeps{Reports: &mockReportService{
		exportFn: func(_ context.Context, input service.ExportInput) (*service.ExportResult, error) {
			return &service.ExportResult{Filename: "r.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3"), Count: 1}, nil
		},
	}})

	resp, err := app.Test(httptest.NewRequest("GET", "/export?from_date=2025-06-01&to_date=2025-06-02&download=true", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(raw))
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{name: "no records", query: "from_date=2025-06-01&to_date=2025-06-02", err: service.ErrNoRecords, status: fiber.StatusNotFound},
		{name: "bad date", query: "from_date=06/01/2025&to_date=2025-06-02", status: fiber.StatusBadRequest},
		{name: "bad format", query: "from_date=2025-06-01&to_date=2025-06-02&file_type=odt", status: fiber.StatusBadRequest},
		{name: "reversed", query: "from_date=2025-06-02&to_date=2025-06-01", err: service.ErrInvalidRange, status: fiber.StatusBadRequest},
		{
			name:   "render failure",
			query:  "from_date=2025-06-01&to_date=2025-06-02",
			err:    &report.SerializationError{Format: report.FormatPDF, Err: errors.New("boom")},
			status: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(APIDeps{Reports: &mockReportService{
				exportFn: func(context.Context, service.ExportInput) (*service.ExportResult, error) {
					return nil, tt.err
				},
			}})

			status, body, resp := doRequest(t, app, httptest.NewRequest("GET", "/export?"+tt.query, nil))
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
			assert.Empty(t, resp.Header.Get(fiber.HeaderContentDisposition))
		})
	}
}
