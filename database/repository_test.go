package database_test

import (
	"context"
	"testing"

	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/database/dbtest"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/apperr"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := database.NewRepository[model.Currency](dbtest.Open(t), "currencies", "code")

	usd := &model.Currency{Code: "USD", Symbol: "$", Rate: 1}
	require.NoError(t, repo.Create(ctx, usd))
	require.NotZero(t, usd.ID)
	require.NoError(t, repo.Create(ctx, &model.Currency{Code: "EUR", Symbol: "€", Rate: 0.92}))

	err := repo.Create(ctx, &model.Currency{Code: "USD", Rate: 1})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	items, total, err := repo.List(ctx, database.ListOptions{OrderBy: "code"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "EUR", items[0].Code)

	update := &model.Currency{Code: "USD", Symbol: "US$", Rate: 1}
	require.NoError(t, repo.Update(ctx, usd.ID, update))
	assert.Equal(t, usd.ID, update.ID)
	assert.Equal(t, "US$", update.Symbol)

	got, err := repo.Get(ctx, usd.ID)
	require.NoError(t, err)
	assert.Equal(t, "US$", got.Symbol)

	require.NoError(t, repo.Delete(ctx, usd.ID))
	_, err = repo.Get(ctx, usd.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(repo.Delete(ctx, usd.ID)))
}

func TestRepositoryListPaging(t *testing.T) {
	ctx := context.Background()
	repo := database.NewRepository[model.AccessLevel](dbtest.Open(t), "accessLevels", "name")

	for _, name := range []string{"vanilla", "standard", "premium"} {
		require.NoError(t, repo.Create(ctx, &model.AccessLevel{Name: name}))
	}

	tests := []struct {
		name  string
		opts  database.ListOptions
		names []string
	}{
		{"default order", database.ListOptions{}, []string{"vanilla", "standard", "premium"}},
		{"by name desc", database.ListOptions{OrderBy: "name", Desc: true}, []string{"vanilla", "standard", "premium"}},
		{"by name", database.ListOptions{OrderBy: "name"}, []string{"premium", "standard", "vanilla"}},
		{"second page", database.ListOptions{Page: 2, Limit: 2}, []string{"premium"}},
		{"unknown column falls back to id", database.ListOptions{OrderBy: "description; drop table"}, []string{"vanilla", "standard", "premium"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.List(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
			var names []string
			for _, it := range items {
				names = append(names, it.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)

	fixture, err := database.LoadFixture("testdata/seed.yaml")
	require.NoError(t, err)

	seeder := database.NewSeeder(db, logger.Nop())
	require.NoError(t, seeder.SeedAll(ctx, fixture, "admin@learnhub.dev", "s3cret-pass"))
	// second run is a no-op
	require.NoError(t, seeder.SeedAll(ctx, fixture, "admin@learnhub.dev", "s3cret-pass"))

	var levels, currencies, products, admins int64
	db.Model(&model.AccessLevel{}).Count(&levels)
	db.Model(&model.Currency{}).Count(&currencies)
	db.Model(&model.Product{}).Count(&products)
	db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&admins)

	assert.Equal(t, int64(2), levels)
	assert.Equal(t, int64(2), currencies)
	assert.Equal(t, int64(2), products)
	assert.Equal(t, int64(1), admins)
}

func TestParseFixtureRejectsBadYAML(t *testing.T) {
	_, err := database.ParseFixture([]byte("access_levels: [unclosed"))
	assert.Error(t, err)
}
