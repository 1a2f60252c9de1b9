package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/validation"
	"gorm.io/gorm"
)

// ProductService manages products and prices them in display currencies
type ProductService struct {
	db       *gorm.DB
	notifier events.Notifier
	log      *logger.Logger
}

func NewProductService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *ProductService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &ProductService{db: db, notifier: notifier, log: log.With("service", "ProductService")}
}

// ProductInput is the create/update payload for a product
type ProductInput struct {
	Name          string  `json:"name" validate:"required,min=1,max=255"`
	CourseID      *uint   `json:"course_id"`
	AccessLevelID uint    `json:"access_level_id" validate:"required"`
	Price         float64 `json:"price" validate:"gte=0"`
	Available     bool    `json:"available"`
}

// ProductView is a product priced in the requested currency
type ProductView struct {
	model.Product
	Currency        string   `json:"currency"`
	DisplayPrice    float64  `json:"display_price"`
	DisplayDiscount *float64 `json:"display_discounted_price,omitempty"`
}

// List returns products priced in currency (base currency when empty)
func (s *ProductService) List(ctx context.Context, currency string, availableOnly bool) ([]ProductView, error) {
	rate, code, err := s.rate(ctx, currency)
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0)
	query := s.db.WithContext(ctx).Preload("AccessLevel").Order("id")
	if availableOnly {
		query = query.Where("available = ?", true)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, view(p, code, rate))
	}
	return views, nil
}

// Get returns one product priced in currency
func (s *ProductService) Get(ctx context.Context, id uint, currency string) (*ProductView, error) {
	rate, code, err := s.rate(ctx, currency)
	if err != nil {
		return nil, err
	}
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := view(*product, code, rate)
	return &v, nil
}

func (s *ProductService) load(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	err := s.db.WithContext(ctx).Preload("AccessLevel").First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (s *ProductService) rate(ctx context.Context, currency string) (float64, string, error) {
	if currency == "" || strings.EqualFold(currency, BaseCurrency) {
		return 1, BaseCurrency, nil
	}
	rate, err := currencyRate(ctx, s.db, currency)
	if err != nil {
		return 0, "", err
	}
	return rate, strings.ToUpper(currency), nil
}

func view(p model.Product, code string, rate float64) ProductView {
	v := ProductView{Product: p, Currency: code, DisplayPrice: discount.ConvertPrice(p.Price, rate)}
	if p.DiscountedPrice != nil {
		d := discount.ConvertPrice(*p.DiscountedPrice, rate)
		v.DisplayDiscount = &d
	}
	return v
}

func (s *ProductService) validate(ctx context.Context, in ProductInput) error {
	if in.Price < 0 {
		return apperr.Validation("price cannot be negative")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.AccessLevel{}).Where("id = ?", in.AccessLevelID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check access level: %w", err)
	}
	if count == 0 {
		return apperr.NotFound(fmt.Sprintf("access level %d not found", in.AccessLevelID))
	}
	if in.CourseID != nil {
		if err := s.db.WithContext(ctx).Model(&model.Course{}).Where("id = ?", *in.CourseID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check course: %w", err)
		}
		if count == 0 {
			return ErrCourseNotFound
		}
	}
	return nil
}

// Create stores a product. Discounts are only ever set by the active preset.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	product := &model.Product{
		Name:          validation.SanitizeString(in.Name),
		CourseID:      in.CourseID,
		AccessLevelID: in.AccessLevelID,
		Price:         in.Price,
		Available:     in.Available,
	}
	if err := s.db.WithContext(ctx).Omit("AccessLevel").Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.notify(ctx, events.OpCreate, product.ID)
	return product, nil
}

// Update replaces a product's fields. A discount applied by the active preset
// is recomputed against the new price.
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*model.Product, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = validation.SanitizeString(in.Name)
	product.CourseID = in.CourseID
	product.AccessLevelID = in.AccessLevelID
	product.Price = in.Price
	product.Available = in.Available
	if product.DiscountPercent != nil {
		d := discount.DiscountedPrice(product.Price, *product.DiscountPercent)
		product.DiscountedPrice = &d
	}

	if err := s.db.WithContext(ctx).Omit("AccessLevel").Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	product.AccessLevel = nil
	s.notify(ctx, events.OpUpdate, id)
	return product, nil
}

// Delete soft-deletes a product
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	s.notify(ctx, events.OpDelete, id)
	return nil
}

func (s *ProductService) notify(ctx context.Context, op events.Op, id uint) {
	if err := s.notifier.Notify(ctx, events.NewChange(events.Products, op, id)); err != nil {
		s.log.Warn("failed to publish product change", "product_id", id, "error", err)
	}
}
