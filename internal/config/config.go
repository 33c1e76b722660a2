package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultPath    = "configs/server.toml"
	DefaultEnvFile = ".env"

	EnvProduction  = "production"
	EnvDevelopment = "development"

	// PlaceholderSecret ships in configs/server.toml and is refused in
	// production.
	PlaceholderSecret = "change-me"

	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Duration reads a toml string like "1h" or "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Server struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Env   string `toml:"env"`
	Debug bool   `toml:"debug_mode"`

	// TLS is served when both files are set, see cmd/certgen.
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

func (s Server) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

func (s Server) IsProduction() bool {
	return s.Env == EnvProduction
}

type Auth struct {
	SessionSecret        string   `toml:"session_secret"`
	SessionTTL           Duration `toml:"session_ttl"`
	HousekeepingInterval Duration `toml:"housekeeping_interval"`
	BcryptCost           int      `toml:"bcrypt_cost"`
	RootUsername         string   `toml:"root_username"`
	RootEmail            string   `toml:"root_email"`
	RootPassword         string   `toml:"root_password"`
}

type Postgres struct {
	URL      string `toml:"url"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	DBName   string `toml:"dbname"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

type Storage struct {
	Driver     string   `toml:"driver"`
	SqliteFile string   `toml:"sqlite_file"`
	Postgres   Postgres `toml:"postgres"`
}

type Config struct {
	Server  Server  `toml:"server"`
	Auth    Auth    `toml:"auth"`
	Storage Storage `toml:"storage"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port: 3000,
			Env:  EnvDevelopment,
		},
		Auth: Auth{
			SessionTTL:           Duration{time.Hour},
			HousekeepingInterval: Duration{10 * time.Minute},
			BcryptCost:           12,
			RootUsername:         "root",
		},
		Storage: Storage{
			Driver:     DriverSqlite,
			SqliteFile: "memberportal.sqlite",
			Postgres: Postgres{
				Host:    "localhost",
				Port:    5432,
				DBName:  "auth",
				SSLMode: "disable",
			},
		},
	}
}

// Load reads the toml file at path on top of Default, then the dotenv
// files (DefaultEnvFile when none given), then environment overrides.
// Missing files are skipped.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		_, err := toml.DecodeFile(path, &cfg)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("env file %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	setFromEnv(&c.Server.Env, "APP_ENV")
	setFromEnv(&c.Auth.SessionSecret, "SESSION_SECRET")
	setFromEnv(&c.Auth.RootEmail, "ROOT_EMAIL")
	setFromEnv(&c.Auth.RootPassword, "ROOT_PASSWORD")
	setFromEnv(&c.Storage.Driver, "STORAGE_DRIVER")
	setFromEnv(&c.Storage.Postgres.URL, "DATABASE_URL")
	setFromEnv(&c.Storage.SqliteFile, "SQLITE_FILE")
	return nil
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c Config) Validate() error {
	var err error
	if c.Auth.SessionSecret == "" {
		err = errors.Join(err, errors.New("auth.session_secret is required"))
	}
	if c.Server.IsProduction() && c.Auth.SessionSecret == PlaceholderSecret {
		err = errors.Join(err, errors.New("auth.session_secret is still the placeholder"))
	}
	if c.Auth.SessionTTL.Duration <= 0 {
		err = errors.Join(err, errors.New("auth.session_ttl must be positive"))
	}
	if c.Auth.HousekeepingInterval.Duration <= 0 {
		err = errors.Join(err, errors.New("auth.housekeeping_interval must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = errors.Join(err, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		err = errors.Join(err, errors.New("server.cert_file and server.key_file go together"))
	}
	switch c.Storage.Driver {
	case DriverSqlite:
		if c.Storage.SqliteFile == "" {
			err = errors.Join(err, errors.New("storage.sqlite_file is required for the sqlite driver"))
		}
	case DriverPostgres, DriverMemory:
	default:
		err = errors.Join(err, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return err
}
