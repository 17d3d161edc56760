package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeCLI    = "cli"
	ModeWatch  = "watch"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultPolicy      = "lenient"
	DefaultMonthSearch = "anchored"
	DefaultWorkers     = 1
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultArchiveName = "cotizaciones_separadas.zip"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "COTIZACIONES"
)

// ErrVersionRequested is returned by LoadFromFlags when --version was passed
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the statement splitter
type Config struct {
	// Delivery configuration
	Mode string // "stdio", "server", "cli" or "watch"
	Host string
	Port int

	// PDFDirectory confines every input and output path
	PDFDirectory string

	// CLI mode: source batch and archive destination
	Input  string
	Output string

	// Processing configuration
	Policy      string // "lenient" or "strict"
	MonthSearch string // "anchored", "anchored-only" or "page"
	Workers     int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	LogFormat   string // "text" or "json"
	MaxFileSize int64  // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		Policy:       DefaultPolicy,
		MonthSearch:  DefaultMonthSearch,
		Workers:      DefaultWorkers,
		Version:      "1.0.0",
		ServerName:   "cotizaciones-splitter",
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
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

	populateConfigFromViper(cfg)

	// A positional argument is the cli input
	if cfg.Input == "" && pflag.NArg() > 0 {
		cfg.Input = pflag.Arg(0)
	}

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if cfg.Mode == ModeCLI {
		cfg.applyCLIDefaults()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyCLIDefaults places the archive beside the input unless told otherwise.
// A relative input is taken relative to PDFDirectory.
func (c *Config) applyCLIDefaults() {
	if c.Input == "" {
		return
	}
	if !filepath.IsAbs(c.Input) {
		c.Input = filepath.Join(c.PDFDirectory, c.Input)
	}
	if c.Output == "" {
		c.Output = filepath.Join(filepath.Dir(c.Input), DefaultArchiveName)
	}
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("input", cfg.Input)
	viper.SetDefault("output", cfg.Output)
	viper.SetDefault("policy", cfg.Policy)
	viper.SetDefault("month-search", cfg.MonthSearch)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("log-format", cfg.LogFormat)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' (MCP over standard I/O), 'server' (MCP over HTTP/SSE), "+
		"'cli' (split one file) or 'watch' (split every PDF dropped into --dir)")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory containing statement batches; all paths are confined to it")
	pflag.StringP("input", "i", cfg.Input, "Statement batch to split (cli mode)")
	pflag.StringP("output", "o", cfg.Output, "Archive destination (cli mode, default "+DefaultArchiveName+" beside the input)")
	pflag.String("policy", cfg.Policy, "Naming policy: 'lenient' uses fallback names, 'strict' drops incomplete pages")
	pflag.String("month-search", cfg.MonthSearch, "Month search: 'anchored', 'anchored-only' or 'page'")
	pflag.Int("workers", cfg.Workers, "Pages processed in parallel (1 = sequential)")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("log-format", cfg.LogFormat, "Log format (text, json)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "input", "output", "policy",
		"month-search", "workers", "log-level", "log-format", "max-file-size",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nCotizaciones Splitter - splits a batch of pension contribution statements into "+
			"one named PDF per page\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# MCP stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=cli lote.pdf                      "+
			"# write cotizaciones_separadas.zip beside lote.pdf\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=cli -i lote.pdf -o marzo.zip --policy=strict\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=watch --dir=/srv/entrada          "+
			"# split every PDF dropped into the directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # MCP over HTTP\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_MODE           Run mode\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_HOST           Server host\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_PORT           Server port\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_DIR            PDF directory\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_POLICY         Naming policy\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_MONTH_SEARCH   Month search\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_WORKERS        Parallel pages\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_LOG_LEVEL      Log level\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_LOG_FORMAT     Log format\n")
		fmt.Fprintf(os.Stderr, "  COTIZACIONES_MAX_FILE_SIZE  Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
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
	cfg.Input = viper.GetString("input")
	cfg.Output = viper.GetString("output")
	cfg.Policy = viper.GetString("policy")
	cfg.MonthSearch = viper.GetString("month-search")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.LogFormat = viper.GetString("log-format")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio, ModeServer, ModeCLI, ModeWatch:
	default:
		return errors.New("mode must be one of 'stdio', 'server', 'cli' or 'watch'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Mode == ModeCLI && c.Input == "" {
		return errors.New("cli mode requires an input file")
	}

	// Validate PDF directory
	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}

	// Check if PDF directory exists, create if it doesn't
	if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.Policy != "lenient" && c.Policy != "strict" {
		return fmt.Errorf("invalid policy: %s (must be one of: lenient, strict)", c.Policy)
	}

	validMonthSearch := map[string]bool{
		"anchored":      true,
		"anchored-only": true,
		"page":          true,
	}
	if !validMonthSearch[c.MonthSearch] {
		return fmt.Errorf("invalid month search: %s (must be one of: anchored, anchored-only, page)", c.MonthSearch)
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

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be one of: text, json)", c.LogFormat)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, Policy: %s, MonthSearch: %s, "+
		"Workers: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.Policy, c.MonthSearch, c.Workers, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
