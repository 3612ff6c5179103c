// Package config provides configuration file parsing for projclean.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/projclean/internal/cleaner"
	"github.com/blackwell-systems/projclean/internal/logging"
)

// FileName is the name of the config file inside Dir().
const FileName = "config"

// Dir returns the projclean config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/projclean if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "projclean"), nil
}

// Config holds the user's settings. Command-line flags override it.
type Config struct {
	Workers         int
	RulesFile       string
	Protect         []string
	Trash           bool
	OneFilesystem   bool
	LogLevel        logging.Level
	LogMaxSizeMB    int
	LogMaxAgeDays   int
	LogMaxBackups   int
	TrashMaxAgeDays int

	// Path is the file the config was read from, empty when none existed.
	Path string
	// Warnings lists lines that were skipped, for the doctor command.
	Warnings []string
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Workers:         cleaner.DefaultWorkers,
		LogLevel:        logging.LevelInfo,
		LogMaxSizeMB:    10,
		LogMaxAgeDays:   28,
		LogMaxBackups:   3,
		TrashMaxAgeDays: 30,
	}
}

// Load reads {dir}/config and returns the parsed config layered over the
// defaults. If the file does not exist, the defaults are returned without
// an error. Malformed lines, unknown keys and bad values are skipped and
// recorded in Warnings.
//
// The format is one "key = value" per line; "#" starts a comment line.
// protect takes a comma-separated list and may be repeated.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	cfg.Path = path

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			cfg.warnf(lineNo, "expected key = value")
			continue
		}

		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		if err := cfg.set(key, value); err != nil {
			cfg.warnf(lineNo, "%s: %v", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	return cfg, nil
}

func (c *Config) warnf(line int, format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

func (c *Config) set(key, value string) error {
	switch key {
	case "workers":
		n, err := positiveInt(value)
		if err != nil {
			return err
		}
		c.Workers = n
	case "rules_file":
		c.RulesFile = expandHome(value)
	case "protect":
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Protect = append(c.Protect, expandHome(p))
			}
		}
	case "trash":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		c.Trash = b
	case "one_filesystem":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		c.OneFilesystem = b
	case "log_level":
		lvl, err := logging.ParseLevel(value)
		if err != nil {
			return err
		}
		c.LogLevel = lvl
	case "log_max_size_mb":
		return setInt(&c.LogMaxSizeMB, value)
	case "log_max_age_days":
		return setInt(&c.LogMaxAgeDays, value)
	case "log_max_backups":
		return setInt(&c.LogMaxBackups, value)
	case "trash_max_age_days":
		return setInt(&c.TrashMaxAgeDays, value)
	default:
		return fmt.Errorf("unknown key")
	}
	return nil
}

func setInt(dst *int, value string) error {
	n, err := positiveInt(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func positiveInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", value)
	}
	return n, nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// TrashMaxAge returns how long trashed cleans are kept.
func (c *Config) TrashMaxAge() time.Duration {
	return time.Duration(c.TrashMaxAgeDays) * 24 * time.Hour
}

// LogOptions returns the logger settings for filename.
func (c *Config) LogOptions(filename string) logging.Options {
	return logging.Options{
		Filename:   filename,
		Level:      c.LogLevel,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxAgeDays: c.LogMaxAgeDays,
		MaxBackups: c.LogMaxBackups,
		Compress:   true,
	}
}
