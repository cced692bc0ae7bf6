package config

import (
	"fmt"
	"net/url"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int               `yaml:"port"`
		CORSOrigins []string          `yaml:"corsOrigins"`
		APIKeys     map[string]string `yaml:"apiKeys"` // key -> agency id
		RateLimit   struct {
			Requests int `yaml:"requests"`
			WindowS  int `yaml:"windowSeconds"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver"` // mysql | postgres | memory
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		Name            string `yaml:"name"`
		SSLMode         string `yaml:"sslmode"`
		MaxOpenConns    int    `yaml:"maxOpenConns"`
		MaxIdleConns    int    `yaml:"maxIdleConns"`
		ConnMaxLifetime int    `yaml:"connMaxLifetimeMinutes"`
		TimeoutSeconds  int    `yaml:"timeoutSeconds"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Notices struct {
		Mode           string `yaml:"mode"` // store | http
		BaseURL        string `yaml:"baseURL"`
		TimeoutSeconds int    `yaml:"timeoutSeconds"`
	} `yaml:"notices"`

	Sync struct {
		RetentionDays        int `yaml:"retentionDays"`
		ChangeTimeoutSeconds int `yaml:"changeTimeoutSeconds"`
	} `yaml:"sync"`

	Scheduling struct {
		// TimeZone is the IANA zone auto-route uses to decide an inspection's day.
		TimeZone string `yaml:"timeZone"`
	} `yaml:"scheduling"`

	Logging struct {
		Level   string `yaml:"level"`
		Format  string `yaml:"format"`
		Service string `yaml:"service"`
	} `yaml:"logging"`
}

// Load reads the YAML file, applies defaults, then environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.Requests == 0 {
		c.Server.RateLimit.Requests = 120
	}
	if c.Server.RateLimit.WindowS == 0 {
		c.Server.RateLimit.WindowS = 60
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.TimeoutSeconds == 0 {
		c.Database.TimeoutSeconds = 10
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "inspection-sync"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Notices.Mode == "" {
		c.Notices.Mode = "store"
	}
	if c.Notices.TimeoutSeconds == 0 {
		c.Notices.TimeoutSeconds = 10
	}
	if c.Sync.RetentionDays == 0 {
		c.Sync.RetentionDays = 90
	}
	if c.Sync.ChangeTimeoutSeconds == 0 {
		c.Sync.ChangeTimeoutSeconds = 10
	}
	if c.Scheduling.TimeZone == "" {
		c.Scheduling.TimeZone = "UTC"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "inspection-sync"
	}
}

// applyEnv lets secrets stay out of the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be mysql, postgres or memory, got %q", c.Database.Driver)
	}
	switch c.Notices.Mode {
	case "store":
	case "http":
		if c.Notices.BaseURL == "" {
			return fmt.Errorf("notices.baseURL is required in http mode")
		}
	default:
		return fmt.Errorf("notices.mode must be store or http, got %q", c.Notices.Mode)
	}
	if _, err := time.LoadLocation(c.Scheduling.TimeZone); err != nil {
		return fmt.Errorf("scheduling.timeZone: %w", err)
	}
	return nil
}

// MySQLDSN builds the go-sql-driver DSN. clientFoundRows makes UPDATE report
// matched rows, which the repositories use for not-found detection.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&clientFoundRows=true&timeout=%ds",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.TimeoutSeconds,
	)
}

func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:   "/" + c.Database.Name,
	}
	q := url.Values{}
	q.Set("sslmode", c.Database.SSLMode)
	q.Set("connect_timeout", fmt.Sprint(c.Database.TimeoutSeconds))
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) ChangeTimeout() time.Duration {
	return time.Duration(c.Sync.ChangeTimeoutSeconds) * time.Second
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Sync.RetentionDays) * 24 * time.Hour
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetime) * time.Minute
}

// Location is the agency time zone; validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
