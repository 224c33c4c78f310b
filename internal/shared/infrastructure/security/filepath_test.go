package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabasePath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "new file", path: filepath.Join(dir, "journal.db")},
		{name: "dot segments", path: filepath.Join(dir, "sub", "..", "journal.db")},
		{name: "empty", path: "", wantErr: true},
		{name: "blank", path: "   ", wantErr: true},
		{name: "query", path: filepath.Join(dir, "journal.db?_pragma=foo"), wantErr: true},
		{name: "fragment", path: filepath.Join(dir, "journal.db#x"), wantErr: true},
		{name: "semicolon", path: filepath.Join(dir, "a;rm -rf"), wantErr: true},
		{name: "subshell", path: filepath.Join(dir, "$(id)"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DatabasePath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsafePath)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
			assert.Equal(t, "journal.db", filepath.Base(got))
		})
	}
}

func TestDatabasePath_Relative(t *testing.T) {
	got, err := DatabasePath("journal.db")
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "journal.db"), got)
}

func TestDatabasePath_ResolvesSymlink(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	target := filepath.Join(dir, "real.db")
	require.NoError(t, os.WriteFile(target, nil, 0o600))
	link := filepath.Join(dir, "link.db")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := DatabasePath(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}
