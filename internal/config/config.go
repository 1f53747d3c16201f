package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"arenapanel/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig        `yaml:"app"`
	Database    DatabaseConfig   `yaml:"database"`
	Redis       RedisConfig      `yaml:"redis"`
	Backup      BackupConfig     `yaml:"backup"`
	Monitoring  MonitoringConfig `yaml:"monitoring"`
	Logging     LoggingConfig    `yaml:"logging"`
	API         APIConfig        `yaml:"api"`
	Uploads     UploadsConfig    `yaml:"uploads"`
	Google      GoogleConfig     `yaml:"google"`
	Telegram    TelegramConfig   `yaml:"telegram"`
	Bookings    BookingsConfig   `yaml:"bookings"`
	Superadmins []BootstrapUser  `yaml:"superadmins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port"`
	Reflection bool `yaml:"reflection"`
}

type APIAuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	Issuer           string `yaml:"issuer"`
	SessionTTL       int    `yaml:"session_ttl"`
	BcryptCost       int    `yaml:"bcrypt_cost"`
	LoginAttempts    int    `yaml:"login_attempts"`
	LoginWindow      int    `yaml:"login_window"`
	OpenRegistration bool   `yaml:"open_registration"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type UploadsConfig struct {
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir"`
	BaseURL  string `yaml:"base_url"`
	Bucket   string `yaml:"bucket"`
	MaxBytes int64  `yaml:"max_bytes"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	BookingsSheetName    string `yaml:"bookings_sheet_name"`
}

type TelegramConfig struct {
	BotToken       string  `yaml:"bot_token"`
	ManagerChatIDs []int64 `yaml:"manager_chat_ids"`
	Debug          bool    `yaml:"debug"`
}

type BookingsConfig struct {
	MaxBookingDays int  `yaml:"max_booking_days"`
	AllowPastDates bool `yaml:"allow_past_dates"`
}

// BootstrapUser is a superadmin account ensured at startup.
type BootstrapUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if len(c.API.Auth.JWTSecret) < 32 {
		return errors.New("api.auth.jwt_secret must be at least 32 characters")
	}

	switch c.Uploads.Backend {
	case "local":
		if c.Uploads.Dir == "" {
			return errors.New("uploads.dir is required for the local backend")
		}
	case "gcs":
		if c.Uploads.Bucket == "" {
			return errors.New("uploads.bucket is required for the gcs backend")
		}
		if c.Google.CredentialsFile == "" {
			return errors.New("google.credentials_file is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown uploads.backend %q", c.Uploads.Backend)
	}

	if c.Uploads.MaxBytes > models.MaxUploadBytes {
		return fmt.Errorf("uploads.max_bytes may not exceed %d", models.MaxUploadBytes)
	}

	return ValidateSuperadmins(c.Superadmins)
}

func ValidateSuperadmins(users []BootstrapUser) error {
	seen := make(map[string]bool)
	for _, u := range users {
		email := models.NormalizeEmail(u.Email)
		if email == "" || !strings.Contains(email, "@") {
			return fmt.Errorf("superadmin '%s' has invalid email", u.Name)
		}
		if seen[email] {
			return fmt.Errorf("duplicate superadmin email: %s", email)
		}
		if len(u.Password) < 8 {
			return fmt.Errorf("superadmin %s password is too short", email)
		}
		seen[email] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.API.Auth.Issuer == "" {
		c.API.Auth.Issuer = "arenapanel"
	}
	if c.API.Auth.SessionTTL == 0 {
		c.API.Auth.SessionTTL = models.DefaultSessionTTL
	}
	if c.API.Auth.BcryptCost == 0 {
		c.API.Auth.BcryptCost = 10
	}
	if c.API.Auth.LoginAttempts == 0 {
		c.API.Auth.LoginAttempts = models.LoginAttemptsLimit
	}
	if c.API.Auth.LoginWindow == 0 {
		c.API.Auth.LoginWindow = models.LoginAttemptsWindow
	}

	if c.Uploads.Backend == "" {
		c.Uploads.Backend = "local"
	}
	if c.Uploads.Dir == "" && c.Uploads.Backend == "local" {
		c.Uploads.Dir = "data/uploads"
	}
	if c.Uploads.BaseURL == "" {
		c.Uploads.BaseURL = "/uploads"
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = models.MaxUploadBytes
	}

	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Google.BookingsSheetName == "" {
		c.Google.BookingsSheetName = "Bookings"
	}
	if c.Bookings.MaxBookingDays == 0 {
		c.Bookings.MaxBookingDays = models.MaxBookingDays
	}
}
