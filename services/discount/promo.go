package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
)

var ErrPromoUnavailable = apperr.New(apperr.KindValidation, "PROMO_UNAVAILABLE", "promo code is not available")

// PromoTargetInput ties a promo to a product and the access level it grants
type PromoTargetInput struct {
	ProductID     uint `json:"product_id" validate:"required"`
	AccessLevelID uint `json:"access_level_id" validate:"required"`
}

// PromoInput is the create/update payload for a promo code
type PromoInput struct {
	Name            string             `json:"name" validate:"required,min=1,max=100"`
	DiscountPercent int                `json:"discount_percent" validate:"required"`
	ExpiryDate      *time.Time         `json:"expiry_date"`
	Available       *bool              `json:"available"`
	Targets         []PromoTargetInput `json:"targets" validate:"dive"`
}

// Quote is the price of a product after a promo code
type Quote struct {
	PromoCodeID     uint    `json:"promo_code_id"`
	PromoCode       string  `json:"promo_code"`
	ProductID       uint    `json:"product_id"`
	DiscountPercent int     `json:"discount_percent"`
	BasePrice       float64 `json:"base_price"`
	Amount          float64 `json:"amount"`
	AccessLevelID   uint    `json:"access_level_id"`
}

// PromoService manages promo codes and prices products with them
type PromoService struct {
	db       *gorm.DB
	notifier events.Notifier
	log      *logger.Logger
}

func NewPromoService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *PromoService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &PromoService{db: db, notifier: notifier, log: log.With("service", "PromoService")}
}

func (s *PromoService) validate(ctx context.Context, in PromoInput, excludeID uint) error {
	if err := ValidatePercent(in.DiscountPercent); err != nil {
		return err
	}

	products := make([]uint, 0, len(in.Targets))
	levels := make([]uint, 0, len(in.Targets))
	for _, t := range in.Targets {
		products = append(products, t.ProductID)
		levels = append(levels, t.AccessLevelID)
	}
	if err := ensureProductsExist(ctx, s.db, products); err != nil {
		return err
	}
	if err := ensureAccessLevelsExist(ctx, s.db, levels); err != nil {
		return err
	}
	return ensureUniqueName(ctx, s.db, &model.PromoCode{}, in.Name, excludeID)
}

func toTargets(in []PromoTargetInput) []model.PromoTarget {
	out := make([]model.PromoTarget, 0, len(in))
	for _, t := range in {
		out = append(out, model.PromoTarget{ProductID: t.ProductID, AccessLevelID: t.AccessLevelID})
	}
	return out
}

// List returns every live promo code with its targets
func (s *PromoService) List(ctx context.Context) ([]model.PromoCode, error) {
	promos := make([]model.PromoCode, 0)
	if err := s.db.WithContext(ctx).Preload("Targets").Order("id").Find(&promos).Error; err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	return promos, nil
}

// Get returns one promo code
func (s *PromoService) Get(ctx context.Context, id uint) (*model.PromoCode, error) {
	var promo model.PromoCode
	err := s.db.WithContext(ctx).Preload("Targets").First(&promo, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return &promo, nil
}

// Create stores a promo code. It is available unless the input says otherwise.
func (s *PromoService) Create(ctx context.Context, in PromoInput) (*model.PromoCode, error) {
	if err := s.validate(ctx, in, 0); err != nil {
		return nil, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	promo := &model.PromoCode{
		Name:            in.Name,
		DiscountPercent: in.DiscountPercent,
		ExpiryDate:      in.ExpiryDate,
		Available:       available,
		Targets:         toTargets(in.Targets),
	}
	if err := s.db.WithContext(ctx).Create(promo).Error; err != nil {
		return nil, fmt.Errorf("failed to create promo code: %w", err)
	}

	s.notify(ctx, events.OpCreate, promo.ID)
	return promo, nil
}

// Update replaces a promo code's fields and targets
func (s *PromoService) Update(ctx context.Context, id uint, in PromoInput) (*model.PromoCode, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in, id); err != nil {
		return nil, err
	}

	available := existing.Available
	if in.Available != nil {
		available = *in.Available
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("promo_code_id = ?", id).Delete(&model.PromoTarget{}).Error; err != nil {
			return fmt.Errorf("failed to replace promo targets: %w", err)
		}
		targets := toTargets(in.Targets)
		for i := range targets {
			targets[i].PromoCodeID = id
		}
		if len(targets) > 0 {
			if err := tx.Create(&targets).Error; err != nil {
				return fmt.Errorf("failed to replace promo targets: %w", err)
			}
		}
		err := tx.Model(&model.PromoCode{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"name":             in.Name,
				"discount_percent": in.DiscountPercent,
				"expiry_date":      in.ExpiryDate,
				"available":        available,
			}).
			Error
		if err != nil {
			return fmt.Errorf("failed to update promo code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, events.OpUpdate, id)
	return s.Get(ctx, id)
}

// Delete soft-deletes a promo code; its name becomes free again
func (s *PromoService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.PromoCode{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete promo code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPromoNotFound
	}
	s.notify(ctx, events.OpDelete, id)
	return nil
}

// Apply prices product with the named promo code. An available code found
// past its expiry is switched off on the spot and rejected. The promo applies
// to the list price; when an active preset already discounts the product
// further, the lower price wins.
func (s *PromoService) Apply(ctx context.Context, name string, productID uint, now time.Time) (*Quote, error) {
	var promo model.PromoCode
	err := s.db.WithContext(ctx).
		Preload("Targets").
		Where("LOWER(TRIM(name)) = ?", NormalizeName(name)).
		First(&promo).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up promo code: %w", err)
	}

	if PromoExpired(&promo, now) {
		if err := s.expire(ctx, []uint{promo.ID}); err != nil {
			return nil, err
		}
		return nil, ErrPromoExpired
	}
	if !PromoUsable(&promo, now) {
		return nil, ErrPromoUnavailable
	}

	var target *model.PromoTarget
	for i := range promo.Targets {
		if promo.Targets[i].ProductID == productID {
			target = &promo.Targets[i]
			break
		}
	}
	if target == nil {
		return nil, ErrPromoNotTarget
	}

	var product model.Product
	err = s.db.WithContext(ctx).First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("product %d not found", productID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	amount := DiscountedPrice(product.Price, promo.DiscountPercent)
	if effective := product.EffectivePrice(); effective < amount {
		amount = effective
	}

	return &Quote{
		PromoCodeID:     promo.ID,
		PromoCode:       promo.Name,
		ProductID:       product.ID,
		DiscountPercent: promo.DiscountPercent,
		BasePrice:       product.Price,
		Amount:          amount,
		AccessLevelID:   target.AccessLevelID,
	}, nil
}

// Sweep switches off every available promo code whose expiry has passed and
// returns how many it changed
func (s *PromoService) Sweep(ctx context.Context, now time.Time) (int, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&model.PromoCode{}).
		Where("available = ? AND expiry_date IS NOT NULL AND expiry_date <= ?", true, now).
		Pluck("id", &ids).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to find expired promo codes: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.expire(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *PromoService) expire(ctx context.Context, ids []uint) error {
	err := s.db.WithContext(ctx).
		Model(&model.PromoCode{}).
		Where("id IN ?", ids).
		Update("available", false).
		Error
	if err != nil {
		return fmt.Errorf("failed to expire promo codes: %w", err)
	}

	for _, id := range ids {
		s.log.Info("promo code expired", "promo_id", id)
		s.notify(ctx, events.OpUpdate, id)
	}
	return nil
}

func (s *PromoService) notify(ctx context.Context, op events.Op, id uint) {
	if err := s.notifier.Notify(ctx, events.NewChange(events.PromoCodes, op, id)); err != nil {
		s.log.Warn("failed to publish change", "collection", events.PromoCodes, "error", err)
	}
}
