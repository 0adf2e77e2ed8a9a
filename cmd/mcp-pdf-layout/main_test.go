package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/a3tai/mcp-pdf-layout/internal/config"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf"
)

func captureVersion(t *testing.T) string {
	t.Helper()

	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		printVersion()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() { version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit }()

	version = "1.2.3"
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	output := captureVersion(t)
	for _, expected := range []string{
		"MCP PDF Layout",
		"Version: 1.2.3",
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestSetupLogging_StdioMode(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "debug"})
	if log.Writer() != os.Stderr {
		t.Errorf("setupLogging() for stdio debug mode should set output to stderr")
	}

	setupLogging(&config.Config{Mode: config.ModeStdio, LogLevel: "info"})
	if log.Writer() == os.Stderr {
		t.Errorf("setupLogging() for stdio non-debug mode should not use stderr")
	}
}

func TestSetupLogging_ServerMode(t *testing.T) {
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	defer func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
	}()

	setupLogging(&config.Config{Mode: config.ModeServer, LogLevel: "info"})

	if got, want := log.Flags(), log.LstdFlags|log.Lshortfile; got != want {
		t.Errorf("setupLogging() for server mode: flags = %v, want %v", got, want)
	}
}

func TestServiceOptions(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = dir
	cfg.LineTolerance = 2.5
	cfg.TopDown = false
	cfg.DefaultFontSize = 9
	cfg.DefaultBold = true
	cfg.DiffThreshold = 0.75
	cfg.CropMargin = 4
	cfg.ExtractTimeout = 5 * time.Second
	cfg.CacheSize = 8

	opts := serviceOptions(cfg)

	if opts.PDFDirectory != dir || opts.MaxFileSize != cfg.MaxFileSize {
		t.Errorf("directory/size not carried over: %+v", opts)
	}
	if opts.Table.Cluster.Tolerance != 2.5 || opts.Table.Cluster.TopDown {
		t.Errorf("cluster options = %+v", opts.Table.Cluster)
	}
	if opts.Table.DefaultFontSizePt != 9 || !opts.Table.DefaultBold {
		t.Errorf("style defaults = %+v", opts.Table)
	}
	if opts.DiffThreshold != 0.75 || opts.CropMargin != 4 || opts.ExtractTimeout != 5*time.Second || opts.CacheSize != 8 {
		t.Errorf("service options = %+v", opts)
	}

	if _, err := pdf.NewService(opts); err != nil {
		t.Fatalf("NewService() with mapped options: %v", err)
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = t.TempDir()
	if _, err := newServer(cfg); err != nil {
		t.Fatalf("newServer() error = %v", err)
	}

	cfg.MaxFileSize = 0
	if _, err := newServer(cfg); err == nil {
		t.Error("newServer() with zero max file size should fail")
	}
}

func TestRunServerMode_Signal(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.PDFDirectory = t.TempDir()

	server, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- runServerMode(ctx, cancel, server, signalCh)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", cfg.Address(), 50*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start listening on %s", cfg.Address())
		}
		time.Sleep(20 * time.Millisecond)
	}

	signalCh <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runServerMode() after signal = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runServerMode() did not return after a signal")
	}
}

func TestRunServerMode_BindError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	defer l.Close()

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.Host = "127.0.0.1"
	cfg.Port = l.Addr().(*net.TCPAddr).Port
	cfg.PDFDirectory = t.TempDir()

	server, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runServerMode(ctx, cancel, server, make(chan os.Signal)); err == nil {
		t.Error("runServerMode() on a busy port should fail")
	}
}
