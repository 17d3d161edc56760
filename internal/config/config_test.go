package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "stdio" {
		t.Errorf("Expected default mode to be 'stdio', got '%s'", cfg.Mode)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}
	if cfg.ServerName != "cotizaciones-splitter" {
		t.Errorf("Expected default server name to be 'cotizaciones-splitter', got '%s'", cfg.ServerName)
	}
	if cfg.Policy != "lenient" {
		t.Errorf("Expected default policy to be 'lenient', got '%s'", cfg.Policy)
	}
	if cfg.MonthSearch != "anchored" {
		t.Errorf("Expected default month search to be 'anchored', got '%s'", cfg.MonthSearch)
	}
	if cfg.Workers != 1 {
		t.Errorf("Expected default workers to be 1, got %d", cfg.Workers)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("Expected default logging info/text, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected default max file size to be 100MB, got %d", cfg.MaxFileSize)
	}

	currentDir, _ := os.Getwd()
	if cfg.PDFDirectory != currentDir {
		t.Errorf("Expected default PDF directory to be '%s', got '%s'", currentDir, cfg.PDFDirectory)
	}
}

func TestConfigValidate(t *testing.T) {
	tempDir := t.TempDir()

	withDir := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		cfg.PDFDirectory = tempDir
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{name: "valid config - stdio mode", config: withDir(func(*Config) {})},
		{name: "valid config - server mode", config: withDir(func(c *Config) { c.Mode = ModeServer })},
		{name: "valid config - watch mode", config: withDir(func(c *Config) { c.Mode = ModeWatch })},
		{
			name:   "valid config - cli mode",
			config: withDir(func(c *Config) { c.Mode = ModeCLI; c.Input = "lote.pdf" }),
		},
		{
			name:    "invalid mode",
			config:  withDir(func(c *Config) { c.Mode = "batch" }),
			wantErr: "mode must be one of",
		},
		{
			name:    "cli mode without input",
			config:  withDir(func(c *Config) { c.Mode = ModeCLI }),
			wantErr: "requires an input file",
		},
		{
			name:    "invalid port in server mode",
			config:  withDir(func(c *Config) { c.Mode = ModeServer; c.Port = 0 }),
			wantErr: "port must be between",
		},
		{
			name:   "port ignored outside server mode",
			config: withDir(func(c *Config) { c.Port = 0 }),
		},
		{
			name:    "empty directory",
			config:  withDir(func(c *Config) { c.PDFDirectory = "" }),
			wantErr: "PDF directory cannot be empty",
		},
		{
			name:    "zero max file size",
			config:  withDir(func(c *Config) { c.MaxFileSize = 0 }),
			wantErr: "maximum file size must be positive",
		},
		{
			name:    "zero workers",
			config:  withDir(func(c *Config) { c.Workers = 0 }),
			wantErr: "workers must be at least 1",
		},
		{
			name:    "unknown policy",
			config:  withDir(func(c *Config) { c.Policy = "relaxed" }),
			wantErr: "invalid policy",
		},
		{
			name:   "strict policy",
			config: withDir(func(c *Config) { c.Policy = "strict" }),
		},
		{
			name:    "unknown month search",
			config:  withDir(func(c *Config) { c.MonthSearch = "header" }),
			wantErr: "invalid month search",
		},
		{
			name:   "page month search",
			config: withDir(func(c *Config) { c.MonthSearch = "page" }),
		},
		{
			name:    "unknown log format",
			config:  withDir(func(c *Config) { c.LogFormat = "xml" }),
			wantErr: "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidateDirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()
	newDir := filepath.Join(tempDir, "entrada", "marzo")

	cfg := DefaultConfig()
	cfg.PDFDirectory = newDir

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	info, err := os.Stat(newDir)
	if err != nil {
		t.Fatalf("Expected directory to be created: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}

func TestConfigValidateLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := DefaultConfig()
		cfg.PDFDirectory = tempDir
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with log level %q: unexpected error %v", level, err)
		}
	}

	cfg := DefaultConfig()
	cfg.PDFDirectory = tempDir
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for log level 'verbose'")
	}
}

func TestConfigApplyCLIDefaults(t *testing.T) {
	tests := []struct {
		name       string
		dir        string
		input      string
		output     string
		wantInput  string
		wantOutput string
	}{
		{
			name:       "relative input, default output",
			dir:        "/srv/entrada",
			input:      "marzo/lote.pdf",
			wantInput:  "/srv/entrada/marzo/lote.pdf",
			wantOutput: "/srv/entrada/marzo/cotizaciones_separadas.zip",
		},
		{
			name:       "absolute input keeps explicit output",
			dir:        "/srv/entrada",
			input:      "/srv/entrada/lote.pdf",
			output:     "/srv/entrada/salida.zip",
			wantInput:  "/srv/entrada/lote.pdf",
			wantOutput: "/srv/entrada/salida.zip",
		},
		{
			name: "no input",
			dir:  "/srv/entrada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{PDFDirectory: tt.dir, Input: tt.input, Output: tt.output}
			cfg.applyCLIDefaults()
			if cfg.Input != filepath.FromSlash(tt.wantInput) {
				t.Errorf("Input = %s, want %s", cfg.Input, tt.wantInput)
			}
			if cfg.Output != filepath.FromSlash(tt.wantOutput) {
				t.Errorf("Output = %s, want %s", cfg.Output, tt.wantOutput)
			}
		})
	}
}

func TestConfigAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 9090}
	if got := cfg.Address(); got != "localhost:9090" {
		t.Errorf("Address() = %s, want localhost:9090", got)
	}
}

func TestConfigIsDebug(t *testing.T) {
	if !(&Config{LogLevel: "debug"}).IsDebug() {
		t.Error("IsDebug() = false for debug level")
	}
	if !(&Config{LogLevel: "DEBUG"}).IsDebug() {
		t.Error("IsDebug() = false for upper-case debug level")
	}
	if (&Config{LogLevel: "info"}).IsDebug() {
		t.Error("IsDebug() = true for info level")
	}
}

func TestConfigString(t *testing.T) {
	cfg := &Config{
		Mode:         "cli",
		Host:         "localhost",
		Port:         8080,
		PDFDirectory: "/srv/entrada",
		Policy:       "strict",
		MonthSearch:  "page",
		Workers:      4,
		LogLevel:     "debug",
		MaxFileSize:  1024,
	}

	expected := "Config{Mode: cli, Host: localhost, Port: 8080, PDFDirectory: /srv/entrada, Policy: strict, " +
		"MonthSearch: page, Workers: 4, LogLevel: debug, MaxFileSize: 1024}"
	if got := cfg.String(); got != expected {
		t.Errorf("String() = %s, want %s", got, expected)
	}
}

func TestConfigModes(t *testing.T) {
	tests := []struct {
		mode       string
		wantServer bool
		wantStdio  bool
	}{
		{ModeStdio, false, true},
		{ModeServer, true, false},
		{ModeCLI, false, false},
		{ModeWatch, false, false},
	}

	for _, tt := range tests {
		cfg := &Config{Mode: tt.mode}
		if cfg.IsServerMode() != tt.wantServer {
			t.Errorf("IsServerMode() for %s = %v, want %v", tt.mode, cfg.IsServerMode(), tt.wantServer)
		}
		if cfg.IsStdioMode() != tt.wantStdio {
			t.Errorf("IsStdioMode() for %s = %v, want %v", tt.mode, cfg.IsStdioMode(), tt.wantStdio)
		}
	}
}
