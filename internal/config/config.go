package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	sdk "github.com/matrixorigin/moi-go-sdk"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Agency   AgencyConfig   `yaml:"agency"`
	Flags    FlagsConfig    `yaml:"flags"`
	MOI      MOIConfig      `yaml:"moi"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // mysql | postgres
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"sslmode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// AgencyConfig holds the agency-wide settings of the time keeping module.
// Timezone is the fixed local zone every calendar day and week is computed in.
type AgencyConfig struct {
	Timezone           string   `yaml:"timezone"`
	EligibleCategories []string `yaml:"eligible_categories"`
	MinUnlockReason    int      `yaml:"min_unlock_reason"`
}

type FlagsConfig struct {
	MaxAccuracyMeters float64 `yaml:"max_accuracy_meters"`
	MinSessionMinutes int     `yaml:"min_session_minutes"`
	MaxSessionMinutes int     `yaml:"max_session_minutes"`
}

// MOIConfig points the payroll sync at a MatrixOne catalog table.
type MOIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	CatalogID      int64  `yaml:"catalog_id"`
	DatabaseID     int64  `yaml:"database_id"`
	PayrollTableID int64  `yaml:"payroll_table_id"`
}

func Defaults() *Config {
	return &Config{
		Server:   ServerConfig{Port: 9871, CORSOrigins: []string{"*"}},
		Log:      LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Driver: "mysql", Port: 3306, Name: "bac_hms", SSLMode: "disable", AutoMigrate: true},
		Auth:     AuthConfig{TokenTTLHours: 7 * 24},
		Agency: AgencyConfig{
			Timezone:           "America/New_York",
			EligibleCategories: []string{"DSP", "CNA", "HHA", "LPN", "RN"},
			MinUnlockReason:    5,
		},
		Flags: FlagsConfig{MaxAccuracyMeters: 100, MinSessionMinutes: 5, MaxSessionMinutes: 960},
		MOI:   MOIConfig{BaseURL: "https://freetier-01.cn-hangzhou.cluster.cn-dev.matrixone.tech", CatalogID: 1},
	}
}

func Load(configFile string) *Config {
	c := Defaults()

	paths := []string{"etc/config-dev.yaml", "/etc/bac-hms/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	envOverride(&c.Database.Driver, "DB_DRIVER")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASSWORD")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Database.SSLMode, "DB_SSLMODE")
	envOverride(&c.Auth.JWTSecret, "JWT_SECRET")
	envOverride(&c.Agency.Timezone, "AGENCY_TZ")
	envOverride(&c.MOI.BaseURL, "MOI_BASE_URL")
	envOverride(&c.MOI.APIKey, "MOI_API_KEY")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")
	envOverrideInt(&c.Agency.MinUnlockReason, "MIN_UNLOCK_REASON")

	return c
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Location resolves the agency time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Agency.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load agency timezone %q: %w", c.Agency.Timezone, err)
	}
	return loc, nil
}

func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "postgresql":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC application_name=bac-hms",
			c.Database.Host, c.Database.User, c.Database.Password, c.Database.Name, c.Database.Port, c.Database.SSLMode,
		)
		return gorm.Open(postgres.New(postgres.Config{DSN: dsn}), gcfg)
	case "", "mysql":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), gcfg)
}

// PayrollSyncEnabled reports whether approved weeks should be pushed to the catalog.
func (c *Config) PayrollSyncEnabled() bool {
	return c.MOI.APIKey != "" && c.MOI.DatabaseID != 0 && c.MOI.PayrollTableID != 0
}

func (c *Config) NewRawClient() (*sdk.RawClient, error) {
	return sdk.NewRawClient(c.MOI.BaseURL, c.MOI.APIKey)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
