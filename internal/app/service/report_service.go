package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/LinkLedger/internal/app/localtime"
	"github.com/sifan077/LinkLedger/internal/app/model"
	"github.com/sifan077/LinkLedger/internal/app/report"
	"github.com/sifan077/LinkLedger/internal/app/repository"
	"go.uber.org/zap"
)

const filenameStampLayout = "20060102-1504"

// ReportService renders stored links in a time range as a document.
type ReportService interface {
	Export(ctx context.Context, input ExportInput) (*ExportResult, error)
}

// ExportInput selects the links and output format of a report.
type ExportInput struct {
	From   time.Time
	To     time.Time
	Format report.Format
}

// ExportResult is a rendered report ready to send.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Count       int
}

// ReportDeps groups the collaborators of the report service.
type ReportDeps struct {
	Links   repository.LinkRepository
	Builder *report.Builder
	Events  EventPublisher
	Metrics Recorder
	Logger  *zap.Logger
	Now     func() time.Time
}

type reportService struct {
	links   repository.LinkRepository
	builder *report.Builder
	events  EventPublisher
	metrics Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewReportService returns a ReportService reading from deps.Links.
func NewReportService(deps ReportDeps) ReportService {
	s := &reportService{
		links:   deps.Links,
		builder: deps.Builder,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
	}
	if s.builder == nil {
		s.builder = report.NewBuilder(report.Header{})
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *reportService) Export(ctx context.Context, input ExportInput) (*ExportResult, error) {
	if err := validateRange(input.From, input.To); err != nil {
		return nil, err
	}
	if !s.builder.Supports(input.Format) {
		return nil, fmt.Errorf("%w: %q", report.ErrUnknownFormat, input.Format)
	}

	links, err := s.links.ListByTimeRange(ctx, input.From, input.To)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	if len(links) == 0 {
		return nil, ErrNoRecords
	}

	started := time.Now()
	data, err := s.builder.Build(toRecords(links), input.Format, s.now())
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	s.metrics.ReportGenerated(string(input.Format), len(links), time.Since(started))

	if s.events != nil {
		event := ReportExportedEvent{
			ID:        newEventID(),
			Format:    string(input.Format),
			FromDate:  input.From.UTC(),
			ToDate:    input.To.UTC(),
			Count:     len(links),
			Timestamp: s.now().UTC(),
		}
		if err := s.events.Publish(SubjectReportExported, event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("subject", SubjectReportExported), zap.Error(err))
		}
	}

	return &ExportResult{
		Filename:    exportFilename(input),
		ContentType: input.Format.ContentType(),
		Data:        data,
		Count:       len(links),
	}, nil
}

func toRecords(links []model.Link) []report.Record {
	records := make([]report.Record, len(links))
	for i, l := range links {
		records[i] = report.Record{
			URL:           l.URL,
			Platform:      l.Platform,
			RuleViolation: l.RuleViolation,
			ActionStatus:  l.ActionStatus,
			Comments:      l.CommentText(),
		}
	}
	return records
}

func exportFilename(input ExportInput) string {
	return fmt.Sprintf("violations_%s_%s%s",
		input.From.In(localtime.Location).Format(filenameStampLayout),
		input.To.In(localtime.Location).Format(filenameStampLayout),
		input.Format.Extension(),
	)
}
