package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"gorm.io/gorm"
)

// ListOptions controls paging and ordering of a collection query
type ListOptions struct {
	Page    int
	Limit   int
	OrderBy string // column name, validated against the allow list
	Desc    bool
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func (o ListOptions) normalized() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = defaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	return o
}

// Repository is a pull-based query path over one collection table
type Repository[T any] struct {
	db       *gorm.DB
	name     string
	sortable map[string]bool
}

// NewRepository creates a repository. sortable lists the columns callers may order by.
func NewRepository[T any](db *gorm.DB, name string, sortable ...string) *Repository[T] {
	allowed := map[string]bool{"id": true, "created_at": true}
	for _, col := range sortable {
		allowed[col] = true
	}
	return &Repository[T]{db: db, name: name, sortable: allowed}
}

// Name is the collection name used in change events
func (r *Repository[T]) Name() string {
	return r.name
}

// List returns one page of records and the total count
func (r *Repository[T]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	opts = opts.normalized()

	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", r.name, err)
	}

	order := "id"
	if r.sortable[opts.OrderBy] {
		order = opts.OrderBy
	}
	if opts.Desc {
		order += " DESC"
	}

	items := make([]T, 0)
	err := r.db.WithContext(ctx).
		Order(order).
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&items).
		Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", r.name, err)
	}
	return items, total, nil
}

// Get fetches a record by primary key
func (r *Repository[T]) Get(ctx context.Context, id uint) (*T, error) {
	item := new(T)
	err := r.db.WithContext(ctx).First(item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("%s %d not found", r.name, id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.name, err)
	}
	return item, nil
}

// Create inserts a record
func (r *Repository[T]) Create(ctx context.Context, item *T) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.KindConflict, "DUPLICATE", fmt.Sprintf("%s already exists", r.name))
		}
		return fmt.Errorf("failed to create %s: %w", r.name, err)
	}
	return nil
}

// Update overwrites every field of an existing record and reloads item
func (r *Repository[T]) Update(ctx context.Context, id uint, item *T) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Model(existing).
		Select("*").
		Omit("id", "created_at").
		Updates(item).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.KindConflict, "DUPLICATE", fmt.Sprintf("%s already exists", r.name))
		}
		return fmt.Errorf("failed to update %s: %w", r.name, err)
	}
	return r.db.WithContext(ctx).First(item, id).Error
}

// Delete removes a record by primary key
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s: %w", r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(fmt.Sprintf("%s %d not found", r.name, id))
	}
	return nil
}
