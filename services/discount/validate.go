package discount

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"gorm.io/gorm"
)

// ensureUniqueName rejects name when another live record of the same model
// already uses it, ignoring case. excludeID is the record being edited.
func ensureUniqueName(ctx context.Context, db *gorm.DB, m interface{}, name string, excludeID uint) error {
	var count int64
	q := db.WithContext(ctx).Model(m).Where("LOWER(TRIM(name)) = ?", NormalizeName(name))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check name: %w", err)
	}
	if count > 0 {
		return ErrDuplicateName
	}
	return nil
}

func ensureProductsExist(ctx context.Context, db *gorm.DB, ids []uint) error {
	return ensureExist(ctx, db, &model.Product{}, "product", ids)
}

func ensureAccessLevelsExist(ctx context.Context, db *gorm.DB, ids []uint) error {
	return ensureExist(ctx, db, &model.AccessLevel{}, "access level", ids)
}

func ensureExist(ctx context.Context, db *gorm.DB, m interface{}, what string, ids []uint) error {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}

	var found []uint
	if err := db.WithContext(ctx).Model(m).Where("id IN ?", unique).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to look up %s: %w", what, err)
	}
	if len(found) == len(unique) {
		return nil
	}

	seen := make(map[uint]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}
	for _, id := range unique {
		if !seen[id] {
			return apperr.NotFound(fmt.Sprintf("%s %d not found", what, id))
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
