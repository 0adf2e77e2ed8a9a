package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSandbox(t *testing.T) {
	dir := t.TempDir()

	_, err := NewSandbox("", "")
	assert.Error(t, err)

	s, err := NewSandbox(dir, "")
	require.NoError(t, err)
	assert.Equal(t, s.InputDir(), s.OutputDir(), "output defaults to input root")

	out := filepath.Join(dir, "out")
	s, err = NewSandbox(dir, out)
	require.NoError(t, err)
	assert.Equal(t, out, s.OutputDir())
}

func TestSandbox_ResolveInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	file := filepath.Join(dir, "sub", "doc.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o644))

	outside := filepath.Join(t.TempDir(), "other.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("%PDF-1.4"), 0o644))

	s, err := NewSandbox(dir, "")
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{name: "absolute", path: file, want: file},
		{name: "relative", path: "sub/doc.pdf", want: file},
		{name: "null byte stripped", path: "sub/doc.pdf\x00", want: file},
		{name: "traversal", path: "../" + filepath.Base(filepath.Dir(outside)) + "/other.pdf", wantErr: ErrOutsideSandbox},
		{name: "outside", path: outside, wantErr: ErrOutsideSandbox},
		{name: "missing", path: "missing.pdf"},
		{name: "directory", path: "sub"},
		{name: "empty", path: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ResolveInput(tt.path)
			if tt.want == "" {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSandbox_ResolveInput_Symlink(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("%PDF-1.4"), 0o644))

	link := filepath.Join(dir, "link.pdf")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s, err := NewSandbox(dir, "")
	require.NoError(t, err)

	_, err = s.ResolveInput(link)
	assert.ErrorIs(t, err, ErrOutsideSandbox)
}

func TestSandbox_ResolveOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results")

	s, err := NewSandbox(dir, out)
	require.NoError(t, err)

	got, err := s.ResolveOutput("", "/somewhere/else/report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "report.xlsx"), got)
	assert.DirExists(t, out)

	got, err = s.ResolveOutput("nested/cropped.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "nested", "cropped.pdf"), got)

	_, err = s.ResolveOutput(filepath.Join(dir, "input-side.pdf"), "")
	assert.ErrorIs(t, err, ErrOutsideSandbox)

	_, err = s.ResolveOutput("", "")
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "data", "pdfs")

	assert.True(t, Contains(root, root))
	assert.True(t, Contains(root, filepath.Join(root, "a.pdf")))
	assert.False(t, Contains(root, filepath.Join(string(filepath.Separator), "data", "pdfs-other", "a.pdf")))
	assert.False(t, Contains(root, filepath.Join(root, "..", "a.pdf")))
}
