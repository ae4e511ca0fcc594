package repository

import (
	"context"

	"github.com/sifan077/LinkLedger/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DownloadLogRepository stores the append-only report download log.
type DownloadLogRepository interface {
	Append(ctx context.Context, entry *model.DownloadLog) error
	ListRecent(ctx context.Context) ([]model.DownloadLog, error)
}

type downloadLogRepository struct {
	db *gorm.DB
}

// NewDownloadLogRepository returns a GORM-backed DownloadLogRepository.
func NewDownloadLogRepository(db *gorm.DB) DownloadLogRepository {
	return &downloadLogRepository{db: db}
}

func (r *downloadLogRepository) Append(ctx context.Context, entry *model.DownloadLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListRecent returns every entry, newest first.
func (r *downloadLogRepository) ListRecent(ctx context.Context) ([]model.DownloadLog, error) {
	var result []model.DownloadLog
	if err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: timestampColumn, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.PrimaryColumn, Desc: true}).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
