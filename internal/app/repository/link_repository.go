package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sifan077/LinkLedger/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

// "timestamp" is a keyword in SQL; going through clause.Column keeps it quoted.
var timestampColumn = clause.Column{Name: "timestamp"}

var (
	// ErrLinkNotFound signals that no link is stored under the given URL.
	ErrLinkNotFound = errors.New("link not found")

	// ErrDuplicateURL signals that the unique index on links.url rejected an insert.
	ErrDuplicateURL = errors.New("link url already exists")
)

// LinkRepository defines the data access contract for flagged links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	FindByURL(ctx context.Context, url string) (*model.Link, error)
	ListByTimeRange(ctx context.Context, from, to time.Time) ([]model.Link, error)
	ListURLs(ctx context.Context) ([]string, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateURL
		}
		return err
	}
	return nil
}

func (r *linkRepository) FindByURL(ctx context.Context, url string) (*model.Link, error) {
	var link model.Link
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

// ListByTimeRange returns links whose timestamp lies in [from, to], oldest
// first. Ties keep insertion order.
func (r *linkRepository) ListByTimeRange(ctx context.Context, from, to time.Time) ([]model.Link, error) {
	var result []model.Link
	if err := r.db.WithContext(ctx).
		Where(clause.Gte{Column: timestampColumn, Value: from.UTC()}).
		Where(clause.Lte{Column: timestampColumn, Value: to.UTC()}).
		Order(clause.OrderByColumn{Column: timestampColumn}).
		Order(clause.OrderByColumn{Column: clause.PrimaryColumn}).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *linkRepository) ListURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := r.db.WithContext(ctx).Model(&model.Link{}).Pluck("url", &urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
