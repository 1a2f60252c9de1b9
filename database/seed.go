package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is the YAML seed document
type Fixture struct {
	AccessLevels []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"access_levels"`
	Currencies []struct {
		Code   string  `yaml:"code"`
		Symbol string  `yaml:"symbol"`
		Rate   float64 `yaml:"rate"`
	} `yaml:"currencies"`
	Products []struct {
		Name        string  `yaml:"name"`
		AccessLevel string  `yaml:"access_level"`
		Price       float64 `yaml:"price"`
	} `yaml:"products"`
}

// LoadFixture reads a YAML seed file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML seed document
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *logger.Logger) *Seeder {
	return &Seeder{db: db, log: log}
}

// SeedAll seeds the fixture and the bootstrap admin. Existing rows are left alone.
func (s *Seeder) SeedAll(ctx context.Context, f *Fixture, adminEmail, adminPassword string) error {
	if err := s.SeedAdminUser(ctx, adminEmail, adminPassword); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if f == nil {
		return nil
	}

	for _, al := range f.AccessLevels {
		level := model.AccessLevel{Name: al.Name, Description: al.Description}
		if err := s.db.WithContext(ctx).Where(model.AccessLevel{Name: al.Name}).FirstOrCreate(&level).Error; err != nil {
			return fmt.Errorf("failed to seed access level %q: %w", al.Name, err)
		}
	}

	for _, c := range f.Currencies {
		cur := model.Currency{Code: c.Code, Symbol: c.Symbol, Rate: c.Rate}
		if err := s.db.WithContext(ctx).Where(model.Currency{Code: c.Code}).FirstOrCreate(&cur).Error; err != nil {
			return fmt.Errorf("failed to seed currency %q: %w", c.Code, err)
		}
	}

	for _, p := range f.Products {
		var level model.AccessLevel
		if err := s.db.WithContext(ctx).Where("name = ?", p.AccessLevel).First(&level).Error; err != nil {
			return fmt.Errorf("product %q references unknown access level %q: %w", p.Name, p.AccessLevel, err)
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Product{}).Where("name = ?", p.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		product := model.Product{Name: p.Name, AccessLevelID: level.ID, Price: p.Price, Available: true}
		if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
		}
	}

	s.log.Info("seeding completed",
		"access_levels", len(f.AccessLevels),
		"currencies", len(f.Currencies),
		"products", len(f.Products),
	)
	return nil
}

// SeedAdminUser creates the bootstrap admin when no admin exists yet
func (s *Seeder) SeedAdminUser(ctx context.Context, email, password string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("admin user already exists, skipping")
		return nil
	}

	if email == "" || password == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "System Administrator",
		Role:         model.RoleAdmin,
	}
	if err := s.db.WithContext(ctx).Create(admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %s exists without the admin role", email)
		}
		return err
	}

	s.log.Info("created admin user", "email", admin.Email)
	return nil
}
