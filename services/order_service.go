package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/access"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
)

// BaseCurrency is the currency product prices are stored in
const BaseCurrency = "USD"

// OrderService checks out products and grants the course access they carry
type OrderService struct {
	db       *gorm.DB
	promos   *discount.PromoService
	notifier events.Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, promos *discount.PromoService, notifier events.Notifier, log *logger.Logger) *OrderService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &OrderService{
		db:       db,
		promos:   promos,
		notifier: notifier,
		log:      log.With("service", "OrderService"),
		now:      time.Now,
	}
}

// CheckoutInput is the payload of POST /orders
type CheckoutInput struct {
	ProductID uint   `json:"product_id" validate:"required"`
	PromoCode string `json:"promo_code" validate:"omitempty,max=100"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
}

// Checkout prices the product (with the promo code when given), records a
// completed order and creates or upgrades the caller's purchase record
func (s *OrderService) Checkout(ctx context.Context, session *auth.Session, in CheckoutInput) (*model.Order, error) {
	if session == nil {
		return nil, ErrUnauthenticated
	}

	var product model.Product
	err := s.db.WithContext(ctx).Preload("AccessLevel").First(&product, in.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !product.Available {
		return nil, ErrProductUnavailable
	}
	if product.CourseID == nil {
		return nil, apperr.Validation("product is not linked to a course")
	}

	order := &model.Order{
		Number:    uuid.New().String(),
		UserID:    session.UserID,
		ProductID: product.ID,
		BasePrice: product.Price,
		Amount:    product.EffectivePrice(),
		Currency:  BaseCurrency,
		Status:    model.OrderStatusCompleted,
	}
	if product.AccessLevel != nil {
		order.AccessLevel = product.AccessLevel.Name
	}

	if code := strings.TrimSpace(in.PromoCode); code != "" {
		quote, err := s.promos.Apply(ctx, code, product.ID, s.now())
		if err != nil {
			return nil, err
		}
		var level model.AccessLevel
		if err := s.db.WithContext(ctx).First(&level, quote.AccessLevelID).Error; err != nil {
			return nil, fmt.Errorf("failed to load promo access level: %w", err)
		}
		order.PromoCodeID = &quote.PromoCodeID
		order.Amount = quote.Amount
		order.AccessLevel = level.Name
	}
	if order.AccessLevel == "" {
		return nil, apperr.Validation("product does not grant an access level")
	}

	if in.Currency != "" && !strings.EqualFold(in.Currency, BaseCurrency) {
		rate, err := currencyRate(ctx, s.db, in.Currency)
		if err != nil {
			return nil, err
		}
		order.Currency = strings.ToUpper(in.Currency)
		order.BasePrice = discount.ConvertPrice(order.BasePrice, rate)
		order.Amount = discount.ConvertPrice(order.Amount, rate)
	}

	record, err := findPurchase(ctx, s.db, session.UserID, *product.CourseID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		switch record.AccessLevel {
		case model.AccessLevelDenied:
			return nil, ErrAccessRevoked
		case order.AccessLevel:
			return nil, ErrAlreadyOwned
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User", "Product").Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		_, err := grantAccess(ctx, tx, session.UserID, *product.CourseID, order.AccessLevel)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order completed", "order", order.Number, "user_id", session.UserID, "product_id", product.ID, "amount", order.Amount, "currency", order.Currency)
	if err := s.notifier.Notify(ctx, events.NewChange(events.Orders, events.OpCreate, order.ID)); err != nil {
		s.log.Warn("failed to publish order change", "order_id", order.ID, "error", err)
	}
	return order, nil
}

// List returns the caller's orders, or every order for staff
func (s *OrderService) List(ctx context.Context, session *auth.Session, opts database.ListOptions) ([]model.Order, int64, error) {
	if session == nil {
		return nil, 0, ErrUnauthenticated
	}
	query := s.db.WithContext(ctx).Model(&model.Order{})
	if !access.IsStaff(session.Role) {
		query = query.Where("user_id = ?", session.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 100 {
		opts.Limit = 20
	}
	orders := make([]model.Order, 0)
	err := query.Preload("Product").
		Order("created_at DESC, id DESC").
		Offset((opts.Page - 1) * opts.Limit).
		Limit(opts.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func currencyRate(ctx context.Context, db *gorm.DB, code string) (float64, error) {
	var currency model.Currency
	err := db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&currency).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrCurrencyNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load currency: %w", err)
	}
	return currency.Rate, nil
}
