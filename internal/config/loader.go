package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".docketrocket"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .docketrocket configuration file.
// Every field is optional; only fields present in the file override defaults.
//
// Example:
//
//	startUrl: https://restructuring.ra.kroll.com/bbby/Home-DocketInfo
//	downloadDir: /home/alice/Downloads/DocketRocketSource
//	pageDelay:
//	  min: 3s
//	  max: 7s
//	selectors:
//	  nextPage: "nav.pagination > a.next"
type File struct {
	StartURL       string         `yaml:"startUrl,omitempty"`
	DownloadDir    string         `yaml:"downloadDir,omitempty"`
	LedgerFile     string         `yaml:"ledgerFile,omitempty"`
	Selectors      Selectors      `yaml:"selectors,omitempty"`
	RowWaitTimeout time.Duration  `yaml:"rowWaitTimeout,omitempty"`
	NextWait       time.Duration  `yaml:"nextWaitTimeout,omitempty"`
	InitialDelay   *DelayRange    `yaml:"initialLoadDelay,omitempty"`
	PageDelay      *DelayRange    `yaml:"pageDelay,omitempty"`
	DownloadDelay  *DelayRange    `yaml:"downloadDelay,omitempty"`
	SettleDelay    *DelayRange    `yaml:"settleDelay,omitempty"`
	PollAttempts   int            `yaml:"pollAttempts,omitempty"`
	PollInterval   time.Duration  `yaml:"pollInterval,omitempty"`
	Headless       *bool          `yaml:"headless,omitempty"`
	SkipExisting   *bool          `yaml:"skipExisting,omitempty"`
	SaveHistory    *bool          `yaml:"saveHistory,omitempty"`
	ChromePath     string         `yaml:"chromePath,omitempty"`
	LogFile        *string        `yaml:"logFile,omitempty"`
	Extra          map[string]any `yaml:",inline"`
}

// LoadConfigFile loads a configuration file from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply overrides cfg with every field set in the file.
// Selectors are merged one by one so a file can replace a single selector.
func (f *File) Apply(cfg *Config) {
	if f == nil || cfg == nil {
		return
	}

	setString(&cfg.StartURL, f.StartURL)
	setString(&cfg.DownloadDir, f.DownloadDir)
	setString(&cfg.LedgerFile, f.LedgerFile)
	setString(&cfg.ChromePath, f.ChromePath)

	setString(&cfg.Selectors.Rows, f.Selectors.Rows)
	setString(&cfg.Selectors.Link, f.Selectors.Link)
	setString(&cfg.Selectors.DocketNumber, f.Selectors.DocketNumber)
	setString(&cfg.Selectors.DateFiled, f.Selectors.DateFiled)
	setString(&cfg.Selectors.NextPage, f.Selectors.NextPage)

	if f.RowWaitTimeout > 0 {
		cfg.RowWaitTimeout = f.RowWaitTimeout
	}
	if f.NextWait > 0 {
		cfg.NextWaitTimeout = f.NextWait
	}
	if f.InitialDelay != nil {
		cfg.InitialLoadDelay = *f.InitialDelay
	}
	if f.PageDelay != nil {
		cfg.PageDelay = *f.PageDelay
	}
	if f.DownloadDelay != nil {
		cfg.DownloadDelay = *f.DownloadDelay
	}
	if f.SettleDelay != nil {
		cfg.SettleDelay = *f.SettleDelay
	}
	if f.PollAttempts > 0 {
		cfg.PollAttempts = f.PollAttempts
	}
	if f.PollInterval > 0 {
		cfg.PollInterval = f.PollInterval
	}

	if f.Headless != nil {
		cfg.Headless = *f.Headless
	}
	if f.SkipExisting != nil {
		cfg.SkipExisting = *f.SkipExisting
	}
	if f.SaveHistory != nil {
		cfg.SaveHistory = *f.SaveHistory
	}
	if f.LogFile != nil {
		cfg.LogFile = *f.LogFile
	}
}

// UnknownKeys returns top-level keys in the file that docketrocket does not use.
func (f *File) UnknownKeys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		keys = append(keys, k)
	}
	return keys
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .docketrocket in the current directory
// 3. Look for .docketrocket in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
