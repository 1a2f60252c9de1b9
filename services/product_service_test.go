package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductPricesInCurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&model.Currency{Code: "EUR", Rate: 0.9}).Error)
	svc := NewProductService(f.db, &recorder{}, logger.Nop())

	courseID := f.course.ID
	product, err := svc.Create(ctx, ProductInput{Name: " Go ", CourseID: &courseID, AccessLevelID: f.vanilla.ID, Price: 19.99, Available: true})
	require.NoError(t, err)
	assert.Equal(t, "Go", product.Name)

	views, err := svc.List(ctx, "eur", true)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "EUR", views[0].Currency)
	assert.Equal(t, 17.99, views[0].DisplayPrice)
	assert.Nil(t, views[0].DisplayDiscount)
	require.NotNil(t, views[0].AccessLevel)
	assert.Equal(t, "vanilla", views[0].AccessLevel.Name)

	_, err = svc.List(ctx, "GBP", true)
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
}

func TestProductUpdateRecomputesPresetDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewProductService(f.db, &recorder{}, logger.Nop())

	product, err := svc.Create(ctx, ProductInput{Name: "Go", AccessLevelID: f.vanilla.ID, Price: 100, Available: true})
	require.NoError(t, err)
	pct, discounted := 20, 80.0
	require.NoError(t, f.db.Model(product).Updates(map[string]interface{}{"discount_percent": pct, "discounted_price": discounted}).Error)

	updated, err := svc.Update(ctx, product.ID, ProductInput{Name: "Go", AccessLevelID: f.vanilla.ID, Price: 50, Available: true})
	require.NoError(t, err)
	require.NotNil(t, updated.DiscountedPrice)
	assert.Equal(t, 40.0, *updated.DiscountedPrice)

	view, err := svc.Get(ctx, product.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 40.0, *view.DisplayDiscount)
}

func TestProductValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewProductService(f.db, &recorder{}, logger.Nop())
	missingCourse := uint(999)

	tests := []struct {
		name string
		in   ProductInput
		kind apperr.Kind
	}{
		{"negative price", ProductInput{Name: "X", AccessLevelID: f.vanilla.ID, Price: -1}, apperr.KindValidation},
		{"unknown access level", ProductInput{Name: "X", AccessLevelID: 999, Price: 1}, apperr.KindNotFound},
		{"unknown course", ProductInput{Name: "X", AccessLevelID: f.vanilla.ID, CourseID: &missingCourse, Price: 1}, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	assert.ErrorIs(t, svc.Delete(context.Background(), 999), ErrProductNotFound)
}
