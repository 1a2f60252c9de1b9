package discount

import (
	"context"
	"fmt"
	"testing"

	"github.com/sahilchouksey/learnhub-api/database/dbtest"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type recorder struct {
	changes []events.Change
}

func (r *recorder) Notify(_ context.Context, c events.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

func seedCatalog(t *testing.T, db *gorm.DB) (vanilla model.AccessLevel, products []model.Product) {
	t.Helper()
	vanilla = model.AccessLevel{Name: "vanilla"}
	require.NoError(t, db.Create(&vanilla).Error)

	products = []model.Product{
		{Name: "Course A", AccessLevelID: vanilla.ID, Price: 100, Available: true},
		{Name: "Course B", AccessLevelID: vanilla.ID, Price: 50, Available: true},
		{Name: "Course C", AccessLevelID: vanilla.ID, Price: 80, Available: true},
	}
	require.NoError(t, db.Create(&products).Error)
	return vanilla, products
}

func reloadProduct(t *testing.T, db *gorm.DB, id uint) model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, db.First(&p, id).Error)
	return p
}

func TestPresetActivationIsExclusive(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	_, products := seedCatalog(t, db)
	rec := &recorder{}
	svc := NewPresetService(db, rec, logger.Nop())

	presetA, err := svc.Create(ctx, PresetInput{Name: "Spring", Items: []PresetItemInput{
		{ProductID: products[0].ID, DiscountPercent: 20},
		{ProductID: products[1].ID, DiscountPercent: 10},
	}})
	require.NoError(t, err)
	presetB, err := svc.Create(ctx, PresetInput{Name: "Summer", Items: []PresetItemInput{
		{ProductID: products[2].ID, DiscountPercent: 25},
	}})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, presetA.ID)
	require.NoError(t, err)

	a := reloadProduct(t, db, products[0].ID)
	require.NotNil(t, a.DiscountedPrice)
	assert.Equal(t, 80.0, *a.DiscountedPrice)
	assert.Equal(t, 20, *a.DiscountPercent)
	b := reloadProduct(t, db, products[1].ID)
	assert.Equal(t, 45.0, *b.DiscountedPrice)

	_, err = svc.Activate(ctx, presetB.ID)
	require.NoError(t, err)

	gotA, err := svc.Get(ctx, presetA.ID)
	require.NoError(t, err)
	assert.False(t, gotA.IsActive)
	gotB, err := svc.Get(ctx, presetB.ID)
	require.NoError(t, err)
	assert.True(t, gotB.IsActive)

	a = reloadProduct(t, db, products[0].ID)
	assert.Nil(t, a.DiscountedPrice)
	assert.Nil(t, a.DiscountPercent)
	b = reloadProduct(t, db, products[1].ID)
	assert.Nil(t, b.DiscountedPrice)
	c := reloadProduct(t, db, products[2].ID)
	require.NotNil(t, c.DiscountedPrice)
	assert.Equal(t, 60.0, *c.DiscountedPrice)

	var active int64
	db.Model(&model.DiscountPreset{}).Where("is_active = ?", true).Count(&active)
	assert.Equal(t, int64(1), active)

	assert.NotEmpty(t, rec.changes)
}

func TestConcurrentActivationsLeaveOneActive(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	_, products := seedCatalog(t, db)
	svc := NewPresetService(db, events.Nop{}, logger.Nop())

	ids := make([]uint, 0, len(products))
	for i, p := range products {
		preset, err := svc.Create(ctx, PresetInput{Name: fmt.Sprintf("Flash %d", i), Items: []PresetItemInput{
			{ProductID: p.ID, DiscountPercent: 10},
		}})
		require.NoError(t, err)
		ids = append(ids, preset.ID)
	}

	for round := 0; round < 5; round++ {
		var g errgroup.Group
		for _, id := range ids {
			g.Go(func() error {
				_, err := svc.Activate(ctx, id)
				return err
			})
		}
		require.NoError(t, g.Wait())

		var active []model.DiscountPreset
		require.NoError(t, db.Where("is_active = ?", true).Find(&active).Error)
		require.Len(t, active, 1)

		var discounted int64
		require.NoError(t, db.Model(&model.Product{}).Where("discounted_price IS NOT NULL").Count(&discounted).Error)
		assert.Equal(t, int64(1), discounted)

		_, err := svc.Deactivate(ctx, active[0].ID)
		require.NoError(t, err)
	}
}

func TestPresetSharedProductKeepsNewDiscount(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	_, products := seedCatalog(t, db)
	svc := NewPresetService(db, nil, logger.Nop())

	a, err := svc.Create(ctx, PresetInput{Name: "A", Items: []PresetItemInput{{ProductID: products[0].ID, DiscountPercent: 50}}})
	require.NoError(t, err)
	b, err := svc.Create(ctx, PresetInput{Name: "B", Items: []PresetItemInput{{ProductID: products[0].ID, DiscountPercent: 10}}})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, b.ID)
	require.NoError(t, err)

	p := reloadProduct(t, db, products[0].ID)
	require.NotNil(t, p.DiscountedPrice)
	assert.Equal(t, 90.0, *p.DiscountedPrice)
}

func TestPresetDeactivateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	_, products := seedCatalog(t, db)
	svc := NewPresetService(db, nil, logger.Nop())

	preset, err := svc.Create(ctx, PresetInput{Name: "Flash", Items: []PresetItemInput{{ProductID: products[1].ID, DiscountPercent: 30}}})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, preset.ID)
	require.NoError(t, err)

	got, err := svc.Deactivate(ctx, preset.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Nil(t, reloadProduct(t, db, products[1].ID).DiscountedPrice)

	_, err = svc.Activate(ctx, preset.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, preset.ID))
	assert.Nil(t, reloadProduct(t, db, products[1].ID).DiscountedPrice)

	_, err = svc.Get(ctx, preset.ID)
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestPresetUpdateReappliesActivePrices(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	_, products := seedCatalog(t, db)
	svc := NewPresetService(db, nil, logger.Nop())

	preset, err := svc.Create(ctx, PresetInput{Name: "Weekly", Items: []PresetItemInput{{ProductID: products[0].ID, DiscountPercent: 10}}})
	require.NoError(t, err)
	_, err = svc.Activate(ctx, preset.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, preset.ID, PresetInput{Name: "Weekly", Items: []PresetItemInput{{ProductID: products[2].ID, DiscountPercent: 50}}})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	require.Len(t, updated.Items, 1)

	assert.Nil(t, reloadProduct(t, db, products[0].ID).DiscountedPrice)
	c := reloadProduct(t, db, products[2].ID)
	require.NotNil(t, c.DiscountedPrice)
	assert.Equal(t, 40.0, *c.DiscountedPrice)
}

func TestPresetValidation(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)
	_, products := seedCatalog(t, db)
	svc := NewPresetService(db, nil, logger.Nop())

	existing, err := svc.Create(ctx, PresetInput{Name: "Black Friday"})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   PresetInput
		kind apperr.Kind
	}{
		{"percent zero", PresetInput{Name: "x", Items: []PresetItemInput{{ProductID: products[0].ID, DiscountPercent: 0}}}, apperr.KindValidation},
		{"percent over 100", PresetInput{Name: "x", Items: []PresetItemInput{{ProductID: products[0].ID, DiscountPercent: 101}}}, apperr.KindValidation},
		{"duplicate product", PresetInput{Name: "x", Items: []PresetItemInput{
			{ProductID: products[0].ID, DiscountPercent: 5},
			{ProductID: products[0].ID, DiscountPercent: 6},
		}}, apperr.KindValidation},
		{"unknown product", PresetInput{Name: "x", Items: []PresetItemInput{{ProductID: 9999, DiscountPercent: 5}}}, apperr.KindNotFound},
		{"duplicate name ignoring case", PresetInput{Name: "  black FRIDAY"}, apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	t.Run("renaming to its own name is allowed", func(t *testing.T) {
		_, err := svc.Update(ctx, existing.ID, PresetInput{Name: "BLACK FRIDAY"})
		assert.NoError(t, err)
	})

	t.Run("duplicate name error", func(t *testing.T) {
		_, err := svc.Create(ctx, PresetInput{Name: "Black Friday"})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})
}
