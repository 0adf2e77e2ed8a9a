package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// loadWith runs LoadFromFlags with args and env, restoring global state afterwards
func loadWith(t *testing.T, args []string, env map[string]string) (*Config, error) {
	t.Helper()

	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		pflag.CommandLine = pflag.NewFlagSet(originalArgs[0], pflag.ExitOnError)
		viper.Reset()
	})

	pflag.CommandLine = pflag.NewFlagSet(args[0], pflag.ExitOnError)
	viper.Reset()
	for k, v := range env {
		t.Setenv(k, v)
	}
	os.Args = args

	return LoadFromFlags()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadWith(t, []string{"mcp-pdf-layout", "--dir=" + dir}, nil)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != ModeStdio {
		t.Errorf("Mode = %v, want %v", cfg.Mode, ModeStdio)
	}
	if cfg.PDFDirectory != dir {
		t.Errorf("PDFDirectory = %v, want %v", cfg.PDFDirectory, dir)
	}
	if cfg.LineTolerance != DefaultLineTolerance || !cfg.TopDown {
		t.Errorf("layout defaults = %v/%v, want %v/true", cfg.LineTolerance, cfg.TopDown, DefaultLineTolerance)
	}
	if cfg.ExtractTimeout != DefaultExtractTimeout {
		t.Errorf("ExtractTimeout = %v, want %v", cfg.ExtractTimeout, DefaultExtractTimeout)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")

	cfg, err := loadWith(t, []string{
		"mcp-pdf-layout",
		"--mode=server", "--host=0.0.0.0", "--port=9090",
		"--dir=" + dir, "--output-dir=" + out,
		"--loglevel=debug",
		"--line-tolerance=0.5", "--top-down=false",
		"--default-font-size=12", "--default-bold",
		"--diff-threshold=0.75", "--crop-margin=0",
		"--extract-timeout=5s", "--cache-size=4",
	}, nil)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Address() != "0.0.0.0:9090" || !cfg.IsServerMode() {
		t.Errorf("server settings = %s %s", cfg.Mode, cfg.Address())
	}
	if cfg.OutputDirectory != out {
		t.Errorf("OutputDirectory = %v, want %v", cfg.OutputDirectory, out)
	}
	if !cfg.IsDebug() {
		t.Error("expected debug logging")
	}
	if cfg.LineTolerance != 0.5 || cfg.TopDown {
		t.Errorf("line settings = %v/%v, want 0.5/false", cfg.LineTolerance, cfg.TopDown)
	}
	if cfg.DefaultFontSize != 12 || !cfg.DefaultBold {
		t.Errorf("row defaults = %v/%v, want 12/true", cfg.DefaultFontSize, cfg.DefaultBold)
	}
	if cfg.DiffThreshold != 0.75 || cfg.CropMargin != 0 {
		t.Errorf("threshold/margin = %v/%v, want 0.75/0", cfg.DiffThreshold, cfg.CropMargin)
	}
	if cfg.ExtractTimeout != 5*time.Second || cfg.CacheSize != 4 {
		t.Errorf("timeout/cache = %v/%v, want 5s/4", cfg.ExtractTimeout, cfg.CacheSize)
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadWith(t, []string{"mcp-pdf-layout"}, map[string]string{
		"MCP_PDF_LAYOUT_DIR":            dir,
		"MCP_PDF_LAYOUT_LINE_TOLERANCE": "0.25",
		"MCP_PDF_LAYOUT_DIFF_THRESHOLD": "0.5",
	})
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.PDFDirectory != dir {
		t.Errorf("PDFDirectory = %v, want %v", cfg.PDFDirectory, dir)
	}
	if cfg.LineTolerance != 0.25 {
		t.Errorf("LineTolerance = %v, want 0.25", cfg.LineTolerance)
	}
	if cfg.DiffThreshold != 0.5 {
		t.Errorf("DiffThreshold = %v, want 0.5", cfg.DiffThreshold)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadWith(t, []string{"mcp-pdf-layout", "--dir=" + dir, "--line-tolerance=0.3"},
		map[string]string{"MCP_PDF_LAYOUT_LINE_TOLERANCE": "0.9"})
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.LineTolerance != 0.3 {
		t.Errorf("LineTolerance = %v, want flag value 0.3", cfg.LineTolerance)
	}
}

func TestLoadFromFlags_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "layout.yaml")
	content := "dir: " + dir + "\ncrop-margin: 4\ncache-size: 8\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := loadWith(t, []string{"mcp-pdf-layout", "--config=" + file}, nil)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.PDFDirectory != dir || cfg.CropMargin != 4 || cfg.CacheSize != 8 {
		t.Errorf("config file values not applied: %s", cfg)
	}

	_, err = loadWith(t, []string{"mcp-pdf-layout", "--config=" + filepath.Join(dir, "missing.yaml")}, nil)
	if err == nil || !strings.Contains(err.Error(), "config file") {
		t.Errorf("expected config file error, got %v", err)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"mode", "--mode=invalid", "mode"},
		{"port", "--mode=server --port=0", "port"},
		{"log level", "--loglevel=verbose", "log level"},
		{"tolerance", "--line-tolerance=0", "tolerance"},
		{"threshold", "--diff-threshold=2", "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"mcp-pdf-layout", "--dir=" + dir}, strings.Fields(tt.arg)...)
			_, err := loadWith(t, args, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFromFlags() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	for _, flag := range []string{"--version", "-version", "-v"} {
		_, err := loadWith(t, []string{"mcp-pdf-layout", flag}, nil)
		if err == nil || err.Error() != "version requested" {
			t.Errorf("%s: expected version requested error, got %v", flag, err)
		}
	}
}
