package discount

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/database/dbtest"
	"github.com/sahilchouksey/learnhub-api/handlers/handlertest"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var checkNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*fiber.App, *gorm.DB, string, model.Product, model.AccessLevel) {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.Nop()

	h := NewDiscountHandler(discount.NewPresetService(db, nil, log), discount.NewPromoService(db, nil, log), log)
	h.now = func() time.Time { return checkNow }

	m := handlertest.AuthMiddleware(db)
	app := fiber.New()
	app.Post("/promo-codes/check", m.Required(), h.CheckPromo)
	staff := app.Group("/", m.Required(), middleware.RequireStaff())
	staff.Post("/discount-presets", h.CreatePreset)
	staff.Post("/discount-presets/:id/activate", h.ActivatePreset)
	staff.Post("/discount-presets/:id/deactivate", h.DeactivatePreset)
	staff.Post("/promo-codes", h.CreatePromo)

	level := model.AccessLevel{Name: "vanilla"}
	require.NoError(t, db.Create(&level).Error)
	product := model.Product{Name: "SQL course", AccessLevelID: level.ID, Price: 80, Available: true}
	require.NoError(t, db.Create(&product).Error)

	admin := handlertest.User(t, db, "admin@learnhub.test", model.RoleAdmin)
	return app, db, handlertest.Token(t, admin), product, level
}

func TestPresetActivationWritesPrices(t *testing.T) {
	app, db, token, product, _ := setup(t)

	body := discount.PresetInput{Name: "Spring sale", Items: []discount.PresetItemInput{{ProductID: product.ID, DiscountPercent: 25}}}
	resp, env := handlertest.Do(t, app, "POST", "/discount-presets", token, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var preset model.DiscountPreset
	handlertest.Decode(t, env, &preset)

	resp, _ = handlertest.Do(t, app, "POST", "/discount-presets", token, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "names are unique")

	resp, _ = handlertest.Do(t, app, "POST", fmt.Sprintf("/discount-presets/%d/activate", preset.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p model.Product
	require.NoError(t, db.First(&p, product.ID).Error)
	require.NotNil(t, p.DiscountedPrice)
	assert.Equal(t, 60.0, *p.DiscountedPrice)

	resp, _ = handlertest.Do(t, app, "POST", fmt.Sprintf("/discount-presets/%d/deactivate", preset.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, db.First(&p, product.ID).Error)
	assert.Nil(t, p.DiscountedPrice)
}

func TestPresetRejectsBadPercent(t *testing.T) {
	app, _, token, product, _ := setup(t)

	for _, pct := range []int{0, 101} {
		body := discount.PresetInput{Name: fmt.Sprintf("bad %d", pct), Items: []discount.PresetItemInput{{ProductID: product.ID, DiscountPercent: pct}}}
		resp, _ := handlertest.Do(t, app, "POST", "/discount-presets", token, body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "percent %d", pct)
	}
}

func TestCheckPromo(t *testing.T) {
	app, db, token, product, level := setup(t)
	yesterday := checkNow.Add(-24 * time.Hour)
	targets := []discount.PromoTargetInput{{ProductID: product.ID, AccessLevelID: level.ID}}

	for _, in := range []discount.PromoInput{
		{Name: "WELCOME10", DiscountPercent: 10, Targets: targets},
		{Name: "OLD50", DiscountPercent: 50, ExpiryDate: &yesterday, Targets: targets},
	} {
		resp, _ := handlertest.Do(t, app, "POST", "/promo-codes", token, in)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	tests := []struct {
		name   string
		code   string
		status int
		amount float64
	}{
		{"valid code, any case", "welcome10", http.StatusOK, 72},
		{"expired code", "OLD50", http.StatusUnprocessableEntity, 0},
		{"unknown code", "NOPE", http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := handlertest.Do(t, app, "POST", "/promo-codes/check", token, CheckPromoRequest{Code: tt.code, ProductID: product.ID})
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				var quote discount.Quote
				handlertest.Decode(t, env, &quote)
				assert.Equal(t, tt.amount, quote.Amount)
			}
		})
	}

	var expired model.PromoCode
	require.NoError(t, db.Where("name = ?", "OLD50").First(&expired).Error)
	assert.False(t, expired.Available, "lazy re-check persists the expiry")
}
