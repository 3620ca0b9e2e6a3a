package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"gorm.io/gorm"

	"github.com/deferlink/deferlink-go/internal/backend/model"
)

var (
	// ErrLinkNotFound signals that the requested link does not exist.
	ErrLinkNotFound = errors.New("link not found")
)

const (
	bloomCapacity = 1_000_000
	bloomFPRate   = 0.01
)

// LinkRepository defines the data access contract for deep links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByShortID(ctx context.Context, shortID string) (*model.Link, error)
	List(ctx context.Context, limit, offset int) ([]model.Link, int64, error)
	Count(ctx context.Context) (int64, error)
	IncrementResolutions(ctx context.Context, shortID string) error
}

type linkRepository struct {
	db *gorm.DB

	// filter prefilters short-id lookups so unknown ids skip the database.
	// nil when warm-up failed, in which case every lookup hits the database.
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewLinkRepository returns a GORM-backed LinkRepository with a bloom
// prefilter warmed from the existing short ids.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	repo := &linkRepository{db: db}

	var shortIDs []string
	if err := db.Model(&model.Link{}).Pluck("short_id", &shortIDs).Error; err == nil {
		filter := bloom.NewWithEstimates(bloomCapacity, bloomFPRate)
		for _, id := range shortIDs {
			filter.AddString(id)
		}
		repo.filter = filter
	}

	return repo
}

func (r *linkRepository) Create(ctx context.Context, link *model.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return err
	}

	r.mu.Lock()
	if r.filter != nil {
		r.filter.AddString(link.ShortID)
	}
	r.mu.Unlock()
	return nil
}

func (r *linkRepository) GetByShortID(ctx context.Context, shortID string) (*model.Link, error) {
	r.mu.Lock()
	if r.filter != nil && !r.filter.TestString(shortID) {
		r.mu.Unlock()
		return nil, ErrLinkNotFound
	}
	r.mu.Unlock()

	var link model.Link
	if err := r.db.WithContext(ctx).Where("short_id = ?", shortID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Link{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var result []model.Link
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

func (r *linkRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Link{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *linkRepository) IncrementResolutions(ctx context.Context, shortID string) error {
	result := r.db.WithContext(ctx).Model(&model.Link{}).
		Where("short_id = ?", shortID).
		Update("resolutions", gorm.Expr("resolutions + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}
