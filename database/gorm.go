package database

import (
	"fmt"
	"time"

	"github.com/sahilchouksey/learnhub-api/config"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(env *config.EnviornmentVariable, log *logger.Logger) (*GORMStore, error) {
	// Configure GORM logger
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if env.IsProduction() {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(postgres.Open(env.DSN()), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		log.Error("unable to connect to PostgreSQL", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to PostgreSQL", "host", env.DB_HOST, "db", env.DB_NAME)

	return &GORMStore{db: db, log: log}, nil
}

// NewGORMStore wraps an already opened connection (tests open SQLite)
func NewGORMStore(db *gorm.DB, log *logger.Logger) *GORMStore {
	return &GORMStore{db: db, log: log}
}

// Models lists every table the service owns, in foreign key order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.AccessLevel{},
		&model.Currency{},

		&model.Course{},
		&model.CourseModule{},
		&model.Lesson{},
		&model.PurchasedCourse{},
		&model.Certificate{},

		&model.Product{},
		&model.DiscountPreset{},
		&model.PresetItem{},
		&model.PromoCode{},
		&model.PromoTarget{},
		&model.Order{},
		&model.Timer{},

		&model.UserNotification{},

		&model.RevokedToken{},
		&model.CronJobLog{},
		&model.AdminAuditLog{},
	}
}

// Migrate runs AutoMigrate for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	s.log.Info("running AutoMigrate")
	if err := Migrate(s.db); err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	s.log.Info("closing database connection")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in repositories/handlers
func (s *GORMStore) GetDB() interface{} {
	return s.db
}

// DB returns the typed GORM handle
func (s *GORMStore) DB() *gorm.DB {
	return s.db
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
