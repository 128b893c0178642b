// Package config centralizes process configuration. Every tunable is a
// command-line flag whose default is seeded from an environment variable, so
// the job runs with no arguments at all and `--help` lists every knob.
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"--db-driver=sqlite"})
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMSSQL    = "mssql"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Config holds all process configuration derived from flags and environment
// variables.
type Config struct {
	// Input roots, walked recursively.
	SongDataDir string
	LogDataDir  string
	FilePattern string

	// DB describes the target database. DSN wins when set; otherwise the
	// Postgres and MySQL DSNs are built from the discrete parts and SQLite
	// uses <DBName>.db.
	DBDriver   string
	DSN        string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// CreateTables creates missing tables before loading.
	CreateTables bool

	LogLevel  string
	LogFormat string

	// PushgatewayURL enables the Prometheus push backend when set.
	PushgatewayURL string
}

// Register defines every flag on fs and returns the Config they write into.
// Environment values from getenv seed the defaults; flags parsed later
// override them.
func Register(fs *pflag.FlagSet, getenv func(string) string) *Config {
	cfg := &Config{}

	envOr := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	boolEnvOr := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	fs.StringVar(&cfg.SongDataDir, "song-data", envOr("SONG_DATA_DIR", "data/song_data"), "Root directory of the song metadata files")
	fs.StringVar(&cfg.LogDataDir, "log-data", envOr("LOG_DATA_DIR", "data/log_data"), "Root directory of the event log files")
	fs.StringVar(&cfg.FilePattern, "pattern", envOr("FILE_PATTERN", "*.json"), "Base-name glob of the input files")

	fs.StringVar(&cfg.DBDriver, "db-driver", envOr("DB_DRIVER", DriverPostgres), "Database driver: postgres, mysql, mssql or sqlite")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full connection string (required for mssql)")
	fs.StringVar(&cfg.DBHost, "db-host", envOr("DB_HOST", "127.0.0.1"), "DB host")
	fs.StringVar(&cfg.DBPort, "db-port", getenv("DB_PORT"), "DB port (default 5432 for postgres, 3306 for mysql)")
	fs.StringVar(&cfg.DBUser, "db-user", envOr("DB_USER", "student"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db-password", envOr("DB_PASSWORD", "student"), "DB password")
	fs.StringVar(&cfg.DBName, "db-name", envOr("DB_NAME", "sparkifydb"), "DB name")

	fs.BoolVar(&cfg.CreateTables, "create-tables", boolEnvOr("CREATE_TABLES", true), "Create missing tables before loading")

	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", "console"), "Log format: console or json")

	fs.StringVar(&cfg.PushgatewayURL, "pushgateway", getenv("PUSHGATEWAY_URL"), "Prometheus Pushgateway URL; metrics are pushed when the run ends")

	return cfg
}

// LoadFromArgs registers the flags on fs and parses args.
func LoadFromArgs(fs *pflag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := Register(fs, getenv)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ResolveDSN returns the connection string for the configured driver.
func (c *Config) ResolveDSN() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.DBDriver {
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.DBUser, c.DBPassword),
			Host:   net.JoinHostPort(c.DBHost, c.port("5432")),
			Path:   "/" + c.DBName,
		}
		return u.String(), nil
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = c.DBUser
		cfg.Passwd = c.DBPassword
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.DBHost, c.port("3306"))
		cfg.DBName = c.DBName
		return cfg.FormatDSN(), nil
	case DriverSQLite:
		return c.DBName + ".db", nil
	case DriverMSSQL:
		return "", fmt.Errorf("config: mssql requires --dsn or DB_DSN")
	default:
		return "", fmt.Errorf("config: unknown db driver %q", c.DBDriver)
	}
}

func (c *Config) port(def string) string {
	if c.DBPort == "" {
		return def
	}
	return c.DBPort
}
