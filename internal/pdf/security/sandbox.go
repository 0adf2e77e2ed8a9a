// Package security confines tool file access to configured directories.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideSandbox is returned for paths that escape every allowed root
var ErrOutsideSandbox = errors.New("path is outside configured directory")

// Sandbox resolves tool paths. Inputs must live under the input root;
// outputs under the output root, which defaults to the input root.
type Sandbox struct {
	inputDir  string
	outputDir string
}

// NewSandbox creates a sandbox. Roots need not exist yet.
func NewSandbox(inputDir, outputDir string) (*Sandbox, error) {
	if inputDir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	in, err := filepath.Abs(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	out := in
	if outputDir != "" {
		out, err = filepath.Abs(outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
	}

	return &Sandbox{inputDir: in, outputDir: out}, nil
}

// InputDir returns the absolute input root
func (s *Sandbox) InputDir() string {
	return s.inputDir
}

// OutputDir returns the absolute output root
func (s *Sandbox) OutputDir() string {
	return s.outputDir
}

// ResolveInput returns the absolute path of an existing regular file under
// the input root. Relative paths are taken relative to the input root.
func (s *Sandbox) ResolveInput(path string) (string, error) {
	abs, err := s.resolve(path, s.inputDir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", path)
	}
	return abs, nil
}

// ResolveOutput returns where to write a result. An empty path means
// fallbackName inside the output root. The parent directory is created.
func (s *Sandbox) ResolveOutput(path, fallbackName string) (string, error) {
	if strings.TrimSpace(path) == "" {
		if fallbackName == "" {
			return "", fmt.Errorf("output path cannot be empty")
		}
		path = filepath.Join(s.outputDir, filepath.Base(fallbackName))
	}

	abs, err := s.resolve(path, s.outputDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return abs, nil
}

// Contains reports whether path lies within root, following symlinks on
// both sides when they exist
func Contains(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)

	candidates := []string{root}
	if real, err := filepath.EvalSymlinks(root); err == nil && real != root {
		candidates = append(candidates, real)
	}

	realPath := path
	if real, err := filepath.EvalSymlinks(path); err == nil {
		realPath = real
	}

	within := func(p string) bool {
		for _, r := range candidates {
			if p == r || strings.HasPrefix(p, r+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}
	return within(path) && within(realPath)
}

func (s *Sandbox) resolve(path, base string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !Contains(base, abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSandbox, path)
	}
	return abs, nil
}
