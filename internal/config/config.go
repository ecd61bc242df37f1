package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"calendarium/pkg/token"
)

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"

	defaultEnvFile = ".env"
)

var ErrSecret = token.ErrSecret

type Config struct {
	JWTSecret   string `koanf:"jwt_secret"`
	NodeEnv     string `koanf:"node_env"`
	HTTPAddr    string `koanf:"http_addr"`
	StaticDir   string `koanf:"static_dir"`
	LogLevel    string `koanf:"log_level"`
	UserStore   string `koanf:"user_store"`
	MySQLDSN    string `koanf:"mysql_dsn"`
	MongoURI    string `koanf:"mongo_uri"`
	MongoDBName string `koanf:"mongo_db_name"`
}

func defaults() *Config {
	return &Config{
		NodeEnv:   "development",
		HTTPAddr:  ":8082",
		StaticDir: "./static",
		LogLevel:  "info",
		UserStore: StoreMySQL,
	}
}

// Production selects the Secure cookie flag.
func (c *Config) Production() bool {
	return c.NodeEnv == "production"
}

// Load reads envFile (or ./.env when empty and present) into the process
// environment, then maps the environment onto Config.
func Load(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("env file %s: %w", defaultEnvFile, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < token.MinSecretLen {
		return ErrSecret
	}

	switch c.UserStore {
	case StoreMemory:
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return errors.New("MYSQL_DSN is not set in environment")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is not set in environment")
		}
		if c.MongoDBName == "" {
			return errors.New("MONGO_DB_NAME is not set in environment")
		}
	default:
		return fmt.Errorf("unknown USER_STORE %q", c.UserStore)
	}
	return nil
}
