package discount

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PresetItemInput is one product discount in a preset request
type PresetItemInput struct {
	ProductID       uint `json:"product_id" validate:"required"`
	DiscountPercent int  `json:"discount_percent" validate:"required"`
}

// PresetInput is the create/update payload for a discount preset
type PresetInput struct {
	Name  string            `json:"name" validate:"required,min=1,max=100"`
	Items []PresetItemInput `json:"items" validate:"dive"`
}

// PresetService manages discount presets. At most one preset is active and
// only the active preset's discounts are written onto products.
type PresetService struct {
	db       *gorm.DB
	notifier events.Notifier
	log      *logger.Logger
}

func NewPresetService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *PresetService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &PresetService{db: db, notifier: notifier, log: log.With("service", "PresetService")}
}

func (s *PresetService) validate(ctx context.Context, in PresetInput, excludeID uint) error {
	ids := make([]uint, 0, len(in.Items))
	seen := map[uint]bool{}
	for _, item := range in.Items {
		if err := ValidatePercent(item.DiscountPercent); err != nil {
			return err
		}
		if seen[item.ProductID] {
			return apperr.Validation(fmt.Sprintf("product %d listed twice", item.ProductID))
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	if err := ensureProductsExist(ctx, s.db, ids); err != nil {
		return err
	}
	return ensureUniqueName(ctx, s.db, &model.DiscountPreset{}, in.Name, excludeID)
}

func toItems(in []PresetItemInput) []model.PresetItem {
	items := make([]model.PresetItem, 0, len(in))
	for _, it := range in {
		items = append(items, model.PresetItem{ProductID: it.ProductID, DiscountPercent: it.DiscountPercent})
	}
	return items
}

// List returns every preset with its items
func (s *PresetService) List(ctx context.Context) ([]model.DiscountPreset, error) {
	presets := make([]model.DiscountPreset, 0)
	if err := s.db.WithContext(ctx).Preload("Items").Order("id").Find(&presets).Error; err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return presets, nil
}

// Get returns one preset with its items
func (s *PresetService) Get(ctx context.Context, id uint) (*model.DiscountPreset, error) {
	return loadPreset(ctx, s.db, id)
}

func loadPreset(ctx context.Context, db *gorm.DB, id uint) (*model.DiscountPreset, error) {
	var preset model.DiscountPreset
	err := db.WithContext(ctx).Preload("Items").First(&preset, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPresetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preset: %w", err)
	}
	return &preset, nil
}

// Create stores a new, inactive preset
func (s *PresetService) Create(ctx context.Context, in PresetInput) (*model.DiscountPreset, error) {
	if err := s.validate(ctx, in, 0); err != nil {
		return nil, err
	}

	preset := &model.DiscountPreset{Name: in.Name, Items: toItems(in.Items)}
	if err := s.db.WithContext(ctx).Create(preset).Error; err != nil {
		return nil, fmt.Errorf("failed to create preset: %w", err)
	}

	s.notify(ctx, events.OpCreate, preset.ID, false)
	return preset, nil
}

// Update replaces a preset's name and items. An active preset's prices are re-applied.
func (s *PresetService) Update(ctx context.Context, id uint, in PresetInput) (*model.DiscountPreset, error) {
	if err := s.validate(ctx, in, id); err != nil {
		return nil, err
	}

	var active bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPresets(tx); err != nil {
			return err
		}
		preset, err := loadPreset(ctx, tx, id)
		if err != nil {
			return err
		}
		active = preset.IsActive

		if active {
			if err := clearPrices(tx, preset.Items); err != nil {
				return err
			}
		}
		if err := tx.Where("preset_id = ?", id).Delete(&model.PresetItem{}).Error; err != nil {
			return fmt.Errorf("failed to replace preset items: %w", err)
		}

		items := toItems(in.Items)
		for i := range items {
			items[i].PresetID = id
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("failed to replace preset items: %w", err)
			}
		}
		if err := tx.Model(&model.DiscountPreset{}).Where("id = ?", id).Update("name", in.Name).Error; err != nil {
			return fmt.Errorf("failed to update preset: %w", err)
		}

		if active {
			return applyPrices(tx, items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, events.OpUpdate, id, active)
	return s.Get(ctx, id)
}

// Delete removes a preset, deactivating it first when active
func (s *PresetService) Delete(ctx context.Context, id uint) error {
	var wasActive bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPresets(tx); err != nil {
			return err
		}
		preset, err := loadPreset(ctx, tx, id)
		if err != nil {
			return err
		}
		wasActive = preset.IsActive

		if wasActive {
			if err := clearPrices(tx, preset.Items); err != nil {
				return err
			}
		}
		if err := tx.Where("preset_id = ?", id).Delete(&model.PresetItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete preset items: %w", err)
		}
		if err := tx.Delete(&model.DiscountPreset{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete preset: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, events.OpDelete, id, wasActive)
	return nil
}

// Activate makes the preset the only active one. Other active presets are
// deactivated and their product discounts cleared before this preset's
// discounts are written, all in one transaction.
func (s *PresetService) Activate(ctx context.Context, id uint) (*model.DiscountPreset, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPresets(tx); err != nil {
			return err
		}
		preset, err := loadPreset(ctx, tx, id)
		if err != nil {
			return err
		}

		var others []model.DiscountPreset
		err = tx.Preload("Items").
			Where("is_active = ? AND id <> ?", true, id).
			Find(&others).
			Error
		if err != nil {
			return fmt.Errorf("failed to load active presets: %w", err)
		}

		for _, other := range others {
			if err := clearPrices(tx, other.Items); err != nil {
				return err
			}
			if err := tx.Model(&model.DiscountPreset{}).Where("id = ?", other.ID).Update("is_active", false).Error; err != nil {
				return fmt.Errorf("failed to deactivate preset %d: %w", other.ID, err)
			}
			s.log.Info("preset deactivated", "preset_id", other.ID, "replaced_by", id)
		}

		if err := applyPrices(tx, preset.Items); err != nil {
			return err
		}
		if err := tx.Model(&model.DiscountPreset{}).Where("id = ?", id).Update("is_active", true).Error; err != nil {
			return fmt.Errorf("failed to activate preset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("preset activated", "preset_id", id)
	s.notify(ctx, events.OpUpdate, id, true)
	return s.Get(ctx, id)
}

// Deactivate clears the preset's product discounts and marks it inactive
func (s *PresetService) Deactivate(ctx context.Context, id uint) (*model.DiscountPreset, error) {
	var wasActive bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPresets(tx); err != nil {
			return err
		}
		preset, err := loadPreset(ctx, tx, id)
		if err != nil {
			return err
		}
		wasActive = preset.IsActive
		if !wasActive {
			return nil
		}

		if err := clearPrices(tx, preset.Items); err != nil {
			return err
		}
		if err := tx.Model(&model.DiscountPreset{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate preset: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wasActive {
		s.notify(ctx, events.OpUpdate, id, true)
	}
	return s.Get(ctx, id)
}

// lockPresets takes a row lock on every preset so that writers which change
// the active set run one at a time, even while no preset is active yet
func lockPresets(tx *gorm.DB) error {
	var ids []uint
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&model.DiscountPreset{}).
		Order("id").
		Pluck("id", &ids).
		Error
	if err != nil {
		return fmt.Errorf("failed to lock presets: %w", err)
	}
	return nil
}

func clearPrices(tx *gorm.DB, items []model.PresetItem) error {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	if len(ids) == 0 {
		return nil
	}

	err := tx.Model(&model.Product{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"discounted_price": nil, "discount_percent": nil}).
		Error
	if err != nil {
		return fmt.Errorf("failed to clear product discounts: %w", err)
	}
	return nil
}

func applyPrices(tx *gorm.DB, items []model.PresetItem) error {
	for _, it := range items {
		var product model.Product
		err := tx.First(&product, it.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// product deleted after the preset was saved
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load product %d: %w", it.ProductID, err)
		}

		err = tx.Model(&model.Product{}).
			Where("id = ?", it.ProductID).
			Updates(map[string]interface{}{
				"discounted_price": DiscountedPrice(product.Price, it.DiscountPercent),
				"discount_percent": it.DiscountPercent,
			}).
			Error
		if err != nil {
			return fmt.Errorf("failed to apply discount to product %d: %w", it.ProductID, err)
		}
	}
	return nil
}

// notify publishes the preset change, plus a products change when prices moved
func (s *PresetService) notify(ctx context.Context, op events.Op, id uint, pricesChanged bool) {
	if err := s.notifier.Notify(ctx, events.NewChange(events.DiscountPresets, op, id)); err != nil {
		s.log.Warn("failed to publish change", "collection", events.DiscountPresets, "error", err)
	}
	if pricesChanged {
		if err := s.notifier.Notify(ctx, events.NewChange(events.Products, events.OpUpdate, 0)); err != nil {
			s.log.Warn("failed to publish change", "collection", events.Products, "error", err)
		}
	}
}
