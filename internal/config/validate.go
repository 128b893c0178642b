package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is logged and the run goes on.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path names the flag.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over c without touching the filesystem or
// the database.
func (c *Config) Validate() []Issue {
	var issues []Issue
	errorf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.SongDataDir) == "" {
		errorf("song-data", "song data directory must not be empty")
	}
	if strings.TrimSpace(c.LogDataDir) == "" {
		errorf("log-data", "log data directory must not be empty")
	}
	if c.SongDataDir != "" && filepath.Clean(c.SongDataDir) == filepath.Clean(c.LogDataDir) {
		warnf("log-data", "song and log data share the directory %s", c.SongDataDir)
	}
	if _, err := filepath.Match(c.FilePattern, ""); err != nil || c.FilePattern == "" {
		errorf("pattern", "invalid file pattern %q", c.FilePattern)
	}

	switch c.DBDriver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	case DriverMSSQL:
		if c.DSN == "" {
			errorf("dsn", "mssql requires a full DSN")
		}
	default:
		errorf("db-driver", "unsupported driver %q (want postgres, mysql, mssql or sqlite)", c.DBDriver)
	}

	if c.PushgatewayURL != "" {
		if u, err := url.Parse(c.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			errorf("pushgateway", "invalid URL %q", c.PushgatewayURL)
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		warnf("log-format", "unknown format %q, using json", c.LogFormat)
	}
	return issues
}

// Err joins the error-severity issues, or returns nil when there are none.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}
