package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/housekeep/pkg/fserr"
)

func TestExistingDir(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "existing_directory",
			input: filepath.Join(root, "sub"),
			want:  filepath.Join(root, "sub"),
		},
		{
			name:  "unclean_path",
			input: filepath.Join(root, "sub", "..", "sub") + string(filepath.Separator),
			want:  filepath.Join(root, "sub"),
		},
		{
			name:    "missing_directory",
			input:   filepath.Join(root, "nope"),
			wantErr: fserr.ErrNotFound,
		},
		{
			name:    "file_instead_of_directory",
			input:   file,
			wantErr: fserr.ErrNotADirectory,
		},
		{
			name:    "empty_input",
			input:   "  ",
			wantErr: fserr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExistingDir(tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathFollowsSymlinks(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	target := filepath.Join(root, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(root, "link")
	require.NoError(t, os.Symlink(target, link))

	got, err := Path(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestPathExpandsHome(t *testing.T) {
	home, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	t.Setenv("HOME", home)

	got, err := Path("~/not-created-yet")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "not-created-yet"), got)

	got, err = Path("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)
}

func TestEnsureDir(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	t.Run("creates_nested", func(t *testing.T) {
		got, err := EnsureDir(filepath.Join(root, "a", "b", "c"))
		require.NoError(t, err)
		assert.DirExists(t, got)
		assert.Equal(t, filepath.Join(root, "a", "b", "c"), got)
	})

	t.Run("existing_is_kept", func(t *testing.T) {
		got, err := EnsureDir(root)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("file_in_the_way", func(t *testing.T) {
		file := filepath.Join(root, "blocker")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		_, err := EnsureDir(file)
		assert.ErrorIs(t, err, fserr.ErrNotADirectory)
	})
}

func TestWithin(t *testing.T) {
	tests := []struct {
		name  string
		root  string
		child string
		want  bool
	}{
		{name: "same_path", root: "/data", child: "/data", want: true},
		{name: "nested", root: "/data", child: "/data/a/b", want: true},
		{name: "sibling_with_prefix", root: "/data", child: "/database", want: false},
		{name: "parent", root: "/data/a", child: "/data", want: false},
		{name: "dotdot_named_child", root: "/data", child: "/data/..hidden", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.root, tt.child))
		})
	}

	assert.True(t, Disjoint("/data/a", "/data/b"))
	assert.False(t, Disjoint("/data", "/data/b"))
}
