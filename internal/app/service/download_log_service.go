package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sifan077/LinkLedger/internal/app/model"
	"github.com/sifan077/LinkLedger/internal/app/repository"
)

// DownloadLogService records and lists report downloads.
type DownloadLogService interface {
	Record(ctx context.Context, input LogDownloadInput) (*model.DownloadLog, error)
	List(ctx context.Context) ([]model.DownloadLog, error)
}

// LogDownloadInput describes one completed download.
type LogDownloadInput struct {
	From  time.Time
	To    time.Time
	Count int
	User  string
}

type downloadLogService struct {
	repo        repository.DownloadLogRepository
	defaultUser string
	now         func() time.Time
}

// NewDownloadLogService returns a service appending to repo. Entries
// without a user are attributed to defaultUser.
func NewDownloadLogService(repo repository.DownloadLogRepository, defaultUser string, now func() time.Time) DownloadLogService {
	if now == nil {
		now = time.Now
	}
	return &downloadLogService{repo: repo, defaultUser: defaultUser, now: now}
}

func (s *downloadLogService) Record(ctx context.Context, input LogDownloadInput) (*model.DownloadLog, error) {
	if input.Count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative", ErrInvalidLog)
	}
	if err := validateRange(input.From, input.To); err != nil {
		return nil, err
	}

	user := strings.TrimSpace(input.User)
	if user == "" {
		user = s.defaultUser
	}

	entry := &model.DownloadLog{
		FromDate:  input.From.UTC(),
		ToDate:    input.To.UTC(),
		Count:     input.Count,
		User:      user,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append download log: %w", err)
	}
	return entry, nil
}

func (s *downloadLogService) List(ctx context.Context) ([]model.DownloadLog, error) {
	logs, err := s.repo.ListRecent(ctx)
	if err != nil {
		return nil, fmt.Errorf("list download logs: %w", err)
	}
	return logs, nil
}
