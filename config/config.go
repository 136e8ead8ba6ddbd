package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PinguinGuard/models"

	firebase "firebase.google.com/go/v4"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8000"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"pinguin"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBSSLMode  string `env:"DB_SSLMODE"`

	// UseMockDB keeps everything in memory and seeds a demo family.
	UseMockDB bool `env:"USE_MOCK_DB"`

	// Timezone of the children's calendar days and allowed time windows.
	Timezone string `env:"APP_TIMEZONE" envDefault:"Asia/Almaty"`

	JWTSecret               string `env:"JWT_SECRET"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`
	// AuthProvider selects how bearer tokens are verified: "jwt" or "firebase".
	AuthProvider string `env:"AUTH_PROVIDER" envDefault:"jwt"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	GinMode  string `env:"GIN_MODE" envDefault:"release"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_PROVIDER is jwt")
		}
	case "firebase":
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_PROVIDER is firebase")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// SSLMode falls back to "require" for Render-hosted databases and "disable"
// elsewhere.
func (c Config) SSLMode() string {
	if c.DBSSLMode != "" {
		return c.DBSSLMode
	}
	if strings.Contains(c.DBHost, "render.com") {
		return "require"
	}
	return "disable"
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.SSLMode(), c.Timezone)
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func InitDatabase(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	logger.Info("connecting to database",
		zap.String("host", cfg.DBHost),
		zap.String("user", cfg.DBUser),
		zap.String("dbname", cfg.DBName),
		zap.String("port", cfg.DBPort),
		zap.String("sslmode", cfg.SSLMode()))

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&models.Parent{},
		&models.Child{},
		&models.ChildPolicy{},
		&models.UsageRecord{},
		&models.UnblockRequest{},
		&models.HistoryEntry{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	// At most one pending request per child, also across instances.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_unblock_requests_one_pending
		ON unblock_requests (child_id) WHERE status = 'pending'`).Error
	if err != nil {
		return nil, fmt.Errorf("create pending index: %w", err)
	}

	logger.Info("successfully connected to database")
	return db, nil
}

// InitFirebase returns nil when no credentials are configured.
func InitFirebase(ctx context.Context, cfg Config) (*firebase.App, error) {
	if cfg.FirebaseCredentialsPath == "" {
		return nil, nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FirebaseCredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}
