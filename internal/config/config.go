package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultMaxFileSize    = 100 * 1024 * 1024 // 100MB
	DefaultLineTolerance  = 0.1
	DefaultFontSize       = 11.0
	DefaultDiffThreshold  = 0.9
	DefaultCropMargin     = 2.0
	DefaultExtractTimeout = 30 * time.Second
	DefaultCacheSize      = 32

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. MCP_PDF_LAYOUT_DIR
	EnvPrefix = "MCP_PDF_LAYOUT"
)

// Config holds all configuration for the PDF layout MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// File configuration
	PDFDirectory    string
	OutputDirectory string // empty means PDFDirectory

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes

	// Layout configuration
	LineTolerance   float64 // points; baselines this close share a line
	TopDown         bool
	DefaultFontSize float64
	DefaultBold     bool
	DiffThreshold   float64
	CropMargin      float64 // preview pixels
	ExtractTimeout  time.Duration
	CacheSize       int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio, // Default to stdio mode for MCP compatibility
		Host:            DefaultHost,
		Port:            DefaultPort,
		PDFDirectory:    currentDir,
		Version:         "1.0.0",
		ServerName:      "mcp-pdf-layout",
		LogLevel:        DefaultLogLevel,
		MaxFileSize:     DefaultMaxFileSize,
		LineTolerance:   DefaultLineTolerance,
		TopDown:         true,
		DefaultFontSize: DefaultFontSize,
		DefaultBold:     false,
		DiffThreshold:   DefaultDiffThreshold,
		CropMargin:      DefaultCropMargin,
		ExtractTimeout:  DefaultExtractTimeout,
		CacheSize:       DefaultCacheSize,
	}
}

// LoadFromFlags parses command line flags, environment variables and an
// optional config file, in decreasing order of precedence
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	if file := viper.GetString("config"); file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	populateConfigFromViper(cfg)

	// Expand paths if needed
	cfg.PDFDirectory = absPath(cfg.PDFDirectory)
	cfg.OutputDirectory = absPath(cfg.OutputDirectory)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	if expanded, err := filepath.Abs(p); err == nil {
		return expanded
	}
	return p
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("output-dir", cfg.OutputDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("line-tolerance", cfg.LineTolerance)
	viper.SetDefault("top-down", cfg.TopDown)
	viper.SetDefault("default-font-size", cfg.DefaultFontSize)
	viper.SetDefault("default-bold", cfg.DefaultBold)
	viper.SetDefault("diff-threshold", cfg.DiffThreshold)
	viper.SetDefault("crop-margin", cfg.CropMargin)
	viper.SetDefault("extract-timeout", cfg.ExtractTimeout)
	viper.SetDefault("cache-size", cfg.CacheSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("config", "", "Optional config file (YAML, TOML or JSON)")
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	pflag.String("output-dir", cfg.OutputDirectory, "Directory for written files (defaults to --dir)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	pflag.Float64("line-tolerance", cfg.LineTolerance, "Baseline distance in points under which text shares a line")
	pflag.Bool("top-down", cfg.TopDown, "Order lines from the top of the page down")
	pflag.Float64("default-font-size", cfg.DefaultFontSize, "Font size used for rows without one")
	pflag.Bool("default-bold", cfg.DefaultBold, "Weight used for rows without one")
	pflag.Float64("diff-threshold", cfg.DiffThreshold, "Similarity under which compared lines are reported")
	pflag.Float64("crop-margin", cfg.CropMargin, "Margin in preview pixels added around crop selections")
	pflag.Duration("extract-timeout", cfg.ExtractTimeout, "Time limit for text extraction")
	pflag.Int("cache-size", cfg.CacheSize, "Number of extracted documents kept in memory")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	pflag.VisitAll(func(f *pflag.Flag) {
		_ = viper.BindPFlag(f.Name, f)
	})
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Layout - A Model Context Protocol server for PDF coordinates, layout and comparison\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs --output-dir=/tmp   "+
			"# custom input and output directories\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs       # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config=layout.yaml                    # settings from a file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  Every flag can be set as %s_<FLAG>, with dashes as underscores,\n", EnvPrefix)
		fmt.Fprintf(os.Stderr, "  e.g. %s_DIR or %s_LINE_TOLERANCE\n", EnvPrefix, EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output-dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.LineTolerance = viper.GetFloat64("line-tolerance")
	cfg.TopDown = viper.GetBool("top-down")
	cfg.DefaultFontSize = viper.GetFloat64("default-font-size")
	cfg.DefaultBold = viper.GetBool("default-bold")
	cfg.DiffThreshold = viper.GetFloat64("diff-threshold")
	cfg.CropMargin = viper.GetFloat64("crop-margin")
	cfg.ExtractTimeout = viper.GetDuration("extract-timeout")
	cfg.CacheSize = viper.GetInt("cache-size")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDirectory(c.PDFDirectory, "PDF"); err != nil {
		return err
	}
	if c.OutputDirectory != "" {
		if err := ensureDirectory(c.OutputDirectory, "output"); err != nil {
			return err
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	// Validate layout settings
	if !positiveFinite(c.LineTolerance) {
		return fmt.Errorf("line tolerance must be a positive number of points, got %v", c.LineTolerance)
	}
	if !positiveFinite(c.DefaultFontSize) {
		return fmt.Errorf("default font size must be positive, got %v", c.DefaultFontSize)
	}
	if math.IsNaN(c.DiffThreshold) || c.DiffThreshold < 0 || c.DiffThreshold > 1 {
		return fmt.Errorf("diff threshold must be between 0 and 1, got %v", c.DiffThreshold)
	}
	if math.IsNaN(c.CropMargin) || math.IsInf(c.CropMargin, 0) || c.CropMargin < 0 {
		return fmt.Errorf("crop margin must be zero or positive, got %v", c.CropMargin)
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract timeout must be positive, got %v", c.ExtractTimeout)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be at least 1, got %d", c.CacheSize)
	}

	return nil
}

// ensureDirectory creates dir when missing
func ensureDirectory(dir, label string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create %s directory %s: %w", label, dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access %s directory %s: %w", label, dir, err)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, LineTolerance: %g, TopDown: %t, DiffThreshold: %g}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.LogLevel, c.MaxFileSize, c.LineTolerance, c.TopDown, c.DiffThreshold)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
