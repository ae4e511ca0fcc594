package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sifan077/LinkLedger/internal/app/filter"
	"github.com/sifan077/LinkLedger/internal/app/model"
	"github.com/sifan077/LinkLedger/internal/app/platform"
	"github.com/sifan077/LinkLedger/internal/app/repository"
	"go.uber.org/zap"
)

// LinkService defines behaviour-level operations on flagged links.
type LinkService interface {
	AddLink(ctx context.Context, input AddLinkInput) (*model.Link, error)
	ListLinks(ctx context.Context, from, to time.Time) ([]model.Link, error)
	WarmDedupe(ctx context.Context) (int, error)
}

// AddLinkInput captures data submitted for a new link.
type AddLinkInput struct {
	URL      string
	Comments *string
}

// LinkDeps groups the collaborators of the link service. Only Repo is
// required.
type LinkDeps struct {
	Repo    repository.LinkRepository
	Seen    *filter.SeenURLs
	Events  EventPublisher
	Metrics Recorder
	Logger  *zap.Logger
	Now     func() time.Time
}

type linkService struct {
	repo    repository.LinkRepository
	seen    *filter.SeenURLs
	events  EventPublisher
	metrics Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewLinkService returns a service implementation backed by deps.Repo.
func NewLinkService(deps LinkDeps) LinkService {
	s := &linkService{
		repo:    deps.Repo,
		seen:    deps.Seen,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
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

func (s *linkService) AddLink(ctx context.Context, input AddLinkInput) (*model.Link, error) {
	raw := strings.TrimSpace(input.URL)
	if raw == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidLink)
	}
	if _, err := url.Parse(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	normalized, p := platform.Resolve(raw)

	// The filter only skips lookups for URLs never seen; the unique index
	// on links.url is what actually prevents duplicates.
	if s.seen == nil || s.seen.MaybeSeen(normalized) {
		existing, err := s.repo.FindByURL(ctx, normalized)
		switch {
		case err == nil:
			s.metrics.LinkConflict()
			return nil, &ConflictError{URL: normalized, Platform: existing.Platform}
		case !errors.Is(err, repository.ErrLinkNotFound):
			return nil, fmt.Errorf("find link: %w", err)
		}
	}

	link := &model.Link{
		URL:           normalized,
		Platform:      string(p),
		Comments:      nonEmpty(input.Comments),
		RuleViolation: model.RuleViolationDefault,
		ActionStatus:  model.ActionStatusNotTakenDown,
		Timestamp:     s.now().UTC(),
	}

	if err := s.repo.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicateURL) {
			s.metrics.LinkConflict()
			s.rememberURL(normalized)
			return nil, &ConflictError{URL: normalized, Platform: string(p)}
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.rememberURL(normalized)
	s.metrics.LinkAdded(link.Platform)
	s.publish(SubjectLinkAdded, LinkAddedEvent{
		ID:        newEventID(),
		URL:       link.URL,
		Platform:  link.Platform,
		Timestamp: link.Timestamp,
	})

	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, from, to time.Time) ([]model.Link, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	links, err := s.repo.ListByTimeRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	return links, nil
}

// WarmDedupe loads every stored URL into the dedupe filter.
func (s *linkService) WarmDedupe(ctx context.Context) (int, error) {
	if s.seen == nil {
		return 0, nil
	}
	urls, err := s.repo.ListURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list urls: %w", err)
	}
	s.seen.AddBatch(urls)
	return len(urls), nil
}

func (s *linkService) rememberURL(u string) {
	if s.seen != nil {
		s.seen.Add(u)
	}
}

func (s *linkService) publish(subject string, event any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("subject", subject), zap.Error(err))
	}
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
