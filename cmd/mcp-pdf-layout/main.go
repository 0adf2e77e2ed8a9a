package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-layout/internal/config"
	"github.com/a3tai/mcp-pdf-layout/internal/layout"
	"github.com/a3tai/mcp-pdf-layout/internal/mcp"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode, redirect log output to stderr to avoid interfering with MCP protocol
		log.SetOutput(os.Stderr)
		// Reduce log verbosity in stdio mode unless debug is enabled
		if !cfg.IsDebug() {
			log.SetOutput(os.NewFile(0, os.DevNull))
		}
	} else {
		// In server mode, use normal stdout logging with more detail
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// serviceOptions maps the loaded configuration onto the layout service
func serviceOptions(cfg *config.Config) pdf.Options {
	return pdf.Options{
		MaxFileSize:     cfg.MaxFileSize,
		PDFDirectory:    cfg.PDFDirectory,
		OutputDirectory: cfg.OutputDirectory,
		Table: layout.TableOptions{
			Cluster: layout.ClusterOptions{
				Tolerance: cfg.LineTolerance,
				TopDown:   cfg.TopDown,
			},
			DefaultFontSizePt: cfg.DefaultFontSize,
			DefaultBold:       cfg.DefaultBold,
		},
		DiffThreshold:  cfg.DiffThreshold,
		CropMargin:     cfg.CropMargin,
		ExtractTimeout: cfg.ExtractTimeout,
		CacheSize:      cfg.CacheSize,
	}
}

// newServer wires the layout service into an MCP server
func newServer(cfg *config.Config) (*mcp.Server, error) {
	// Create PDF service
	pdfService, err := pdf.NewService(serviceOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	// Create MCP server
	server, err := mcp.NewServer(cfg, pdfService)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server, nil
}

// runServerMode runs the SSE server until it fails or a signal arrives on
// signalCh, then shuts it down gracefully
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, signalCh <-chan os.Signal) error {
	// Start server in a goroutine
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		// Wait for server to shutdown
		if err := <-serverErrCh; err != nil {
			return fmt.Errorf("server shutdown with error: %w", err)
		}

	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Println("Server stopped successfully")
	return nil
}

// runStdioMode handles stdio mode execution
func runStdioMode(ctx context.Context, server *mcp.Server) error {
	// In stdio mode, the parent process controls our lifecycle
	// and we exit when stdin is closed

	// Start server and wait for it to complete
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging based on mode
	setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	server, err := newServer(cfg)
	if err != nil {
		log.Fatal(err)
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle different modes
	if cfg.IsServerMode() {
		// Set up signal handling for graceful shutdown
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(signalCh)

		if err := runServerMode(ctx, cancel, server, signalCh); err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := runStdioMode(ctx, server); err != nil {
		// Only log to stderr in debug mode to avoid protocol interference
		if os.Getenv("DEBUG") != "" {
			log.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Layout\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
