package filehashlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the fhl configuration
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Default string // Default hash algorithm
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // Default verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // Default debug flags (comma-separated)
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	HashWorkers int    // Number of concurrent hash workers (default: 4)
	HashBuffer  string // Read buffer per hash worker (default: "2M")
	QueueSize   int    // Capacity of the worker to collector channel (default: 100)
}

// ProgressConfig represents status line configuration
type ProgressConfig struct {
	Every int // Records between status lines, 0 disables (default: 1000)
}

// ScanConfig represents directory walk configuration
type ScanConfig struct {
	FollowLinks bool
	Exclude     []string // doublestar patterns
	IgnoreFile  string   // gitignore syntax file
}

// AllConfig represents all configuration options
type AllConfig struct {
	Hash        *HashConfig
	Verbose     *VerboseConfig
	Performance *PerformanceConfig
	Progress    *ProgressConfig
	Scan        *ScanConfig
}

// DefaultConfigPath returns ~/.config/fhl/config, or "" when there is no home directory
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "fhl", "config")
	}
	return ""
}

// LoadConfig loads configuration from an INI file. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if configPath == "" {
		cfg.ini = ini.Empty()
		return cfg, cfg.setDefaults()
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		if err := cfg.setDefaults(); err != nil {
			return nil, fmt.Errorf("failed to set default config: %w", err)
		}
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ini = iniFile
	return cfg, nil
}

// setDefaults sets default configuration values
func (c *Config) setDefaults() error {
	defaults := []struct {
		section, key, value string
	}{
		{"filehash", "default", DefaultHashAlgorithm},
		{"performance", "hash_workers", fmt.Sprintf("%d", DefaultHashWorkers)},
		{"performance", "hash_buffer", DefaultHashBuffer},
		{"performance", "queue_size", fmt.Sprintf("%d", DefaultQueueSize)},
		{"progress", "every", fmt.Sprintf("%d", DefaultProgressEvery)},
		{"scan", "follow_links", "false"},
		{"scan", "exclude", ""},
		{"scan", "ignore_file", ""},
		{"verbose", "level", "0"},
		{"verbose", "debug", ""},
	}
	for _, d := range defaults {
		if _, err := c.ini.Section(d.section).NewKey(d.key, d.value); err != nil {
			return fmt.Errorf("failed to set default %s.%s: %w", d.section, d.key, err)
		}
	}
	return nil
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Default: DefaultHashAlgorithm,
	}

	if c.ini.HasSection("filehash") {
		section := c.ini.Section("filehash")
		if section.HasKey("default") {
			if v := section.Key("default").String(); v != "" {
				hashConfig.Default = v
			}
		}
	}

	return hashConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		HashWorkers: DefaultHashWorkers,
		HashBuffer:  DefaultHashBuffer,
		QueueSize:   DefaultQueueSize,
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("hash_workers") {
			if workers, err := section.Key("hash_workers").Int(); err == nil {
				performanceConfig.HashWorkers = workers
			}
		}
		if section.HasKey("hash_buffer") {
			if bufferSize := section.Key("hash_buffer").String(); bufferSize != "" {
				performanceConfig.HashBuffer = bufferSize
			}
		}
		if section.HasKey("queue_size") {
			if size, err := section.Key("queue_size").Int(); err == nil {
				performanceConfig.QueueSize = size
			}
		}
	}

	return performanceConfig
}

// GetProgressConfig returns the status line configuration
func (c *Config) GetProgressConfig() *ProgressConfig {
	progressConfig := &ProgressConfig{
		Every: DefaultProgressEvery,
	}

	if c.ini.HasSection("progress") {
		section := c.ini.Section("progress")
		if section.HasKey("every") {
			if every, err := section.Key("every").Int(); err == nil {
				progressConfig.Every = every
			}
		}
	}

	return progressConfig
}

// GetScanConfig returns the directory walk configuration
func (c *Config) GetScanConfig() *ScanConfig {
	scanConfig := &ScanConfig{}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("follow_links") {
			if follow, err := section.Key("follow_links").Bool(); err == nil {
				scanConfig.FollowLinks = follow
			}
		}
		if section.HasKey("exclude") {
			scanConfig.Exclude = SplitPatternList(section.Key("exclude").String())
		}
		if section.HasKey("ignore_file") {
			scanConfig.IgnoreFile = section.Key("ignore_file").String()
		}
	}

	return scanConfig
}

// GetAllConfig returns all configuration options
func (c *Config) GetAllConfig() *AllConfig {
	return &AllConfig{
		Hash:        c.GetHashConfig(),
		Verbose:     c.GetVerboseConfig(),
		Performance: c.GetPerformanceConfig(),
		Progress:    c.GetProgressConfig(),
		Scan:        c.GetScanConfig(),
	}
}

// overrideKeys maps override keys to their INI section
var overrideKeys = map[string]string{
	"default":      "filehash",
	"hash_workers": "performance",
	"hash_buffer":  "performance",
	"queue_size":   "performance",
	"every":        "progress",
	"follow_links": "scan",
	"exclude":      "scan",
	"ignore_file":  "scan",
	"level":        "verbose",
	"debug":        "verbose",
}

// ApplyOverrides applies command-line overrides to the configuration
// Accepts strings like "default:sha256", "hash_workers:8", "level:2", "debug:scan"
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		sectionName, ok := overrideKeys[key]
		if !ok {
			return fmt.Errorf("unsupported override key '%s' (supported: default, hash_workers, hash_buffer, queue_size, every, follow_links, exclude, ignore_file, level, debug)", key)
		}
		c.ini.Section(sectionName).Key(key).SetValue(value)
	}

	return nil
}

// Validate checks every configured value
func (c *Config) Validate() error {
	all := c.GetAllConfig()
	if err := ValidateHashAlgorithm(all.Hash.Default); err != nil {
		return err
	}
	if err := ValidateHashWorkers(all.Performance.HashWorkers); err != nil {
		return err
	}
	if _, err := ParseHumanSize(all.Performance.HashBuffer); err != nil {
		return fmt.Errorf("invalid hash_buffer: %w", err)
	}
	if err := ValidateQueueSize(all.Performance.QueueSize); err != nil {
		return err
	}
	if all.Progress.Every < 0 {
		return fmt.Errorf("progress every must not be negative, got: %d", all.Progress.Every)
	}
	if err := ValidateExcludePatterns(all.Scan.Exclude); err != nil {
		return err
	}
	return ValidateVerboseLevel(all.Verbose.Level)
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, err := GetHashAlgorithm(algorithm); err != nil {
		return fmt.Errorf("%w (supported: %s)", err, strings.Join(SupportedHashAlgorithms(), ", "))
	}
	return nil
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateHashWorkers validates that the hash worker count is reasonable
func ValidateHashWorkers(workers int) error {
	if workers < 1 {
		return fmt.Errorf("hash workers must be at least 1, got: %d", workers)
	}
	if workers > 64 {
		return fmt.Errorf("hash workers should not exceed 64, got: %d", workers)
	}
	return nil
}

// ValidateQueueSize validates the worker to collector channel capacity
func ValidateQueueSize(size int) error {
	if size < 1 {
		return fmt.Errorf("queue size must be at least 1, got: %d", size)
	}
	return nil
}
