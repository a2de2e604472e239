package organize

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/housekeep/pkg/fserr"
	"github.com/walteh/housekeep/pkg/oplog"
	"github.com/walteh/housekeep/pkg/status"
)

var fixedNow = time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

func clock() time.Time { return fixedNow }

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, filepath.FromSlash(n))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(n), 0o644))
	}
}

func TestOrganizeDefaultRules(t *testing.T) {
	ctx := testContext(t)
	dir := tempDir(t)
	touch(t, dir, "report.pdf", "photo.JPG", "song.mp3", "main.cpp", "archive.tar.gz", "notes.unknown", ".bashrc", "README")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0o755))

	res, err := Organize(ctx, Options{Dir: dir, Now: clock})
	require.NoError(t, err)

	for _, want := range []string{
		"Documents/PDFs/report.pdf",
		"Images/photo.JPG",
		"Media/Audio/song.mp3",
		"Code/C++/main.cpp",
		"Files/Compressed/archive.tar.gz",
	} {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(want)))
	}
	for _, stay := range []string{"notes.unknown", ".bashrc", "README"} {
		assert.FileExists(t, filepath.Join(dir, stay))
	}
	assert.DirExists(t, filepath.Join(dir, "folder.pdf"))

	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 3, res.Skipped)
	assert.Zero(t, res.Failed)
}

func TestOrganizeIsIdempotent(t *testing.T) {
	ctx := testContext(t)
	dir := tempDir(t)
	touch(t, dir, "report.pdf")

	first, err := Organize(ctx, Options{Dir: dir, Now: clock})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)
	assert.FileExists(t, filepath.Join(dir, "Documents", "PDFs", "report.pdf"))

	second, err := Organize(ctx, Options{Dir: dir, Now: clock})
	require.NoError(t, err)
	assert.Zero(t, second.Processed)
	assert.Empty(t, second.Filter(status.StatusMoved))
}

func TestOrganizeCollision(t *testing.T) {
	ctx := testContext(t)
	dir := tempDir(t)
	stamp := fixedNow.Format(timestampLayout)

	touch(t, dir, "Documents/PDFs/report.pdf")
	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte{byte(i)}, 0o644))
		_, err := Organize(ctx, Options{Dir: dir, Now: clock})
		require.NoError(t, err)
	}

	pdfs := filepath.Join(dir, "Documents", "PDFs")
	original, err := os.ReadFile(filepath.Join(pdfs, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "Documents/PDFs/report.pdf", string(original), "existing file must never be overwritten")

	first, err := os.ReadFile(filepath.Join(pdfs, "report_"+stamp+".pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, first)

	second, err := os.ReadFile(filepath.Join(pdfs, "report_"+stamp+"_1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, second)

	third, err := os.ReadFile(filepath.Join(pdfs, "report_"+stamp+"_2.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, third)
}

func TestOrganizeCustomRules(t *testing.T) {
	ctx := testContext(t)
	dir := tempDir(t)
	touch(t, dir, "a.log", "b.LOG", "c.txt")
	mem := &oplog.MemorySink{}

	res, err := Organize(ctx, Options{
		Dir:   dir,
		Rules: Rules{{Ext: ".log", Dest: "logs/app"}, {Ext: "log", Dest: "ignored"}},
		Sink:  mem,
		Now:   clock,
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "logs", "app", "a.log"))
	assert.FileExists(t, filepath.Join(dir, "logs", "app", "b.LOG"))
	assert.NoDirExists(t, filepath.Join(dir, "ignored"))
	assert.FileExists(t, filepath.Join(dir, "c.txt"))
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, []string{"started", "moved", "moved", "skipped", "finished"}, mem.Actions())
}

func TestOrganizeMoveFailureIsRecovered(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	ctx := testContext(t)
	dir := tempDir(t)
	touch(t, dir, "a.pdf", "b.png")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Documents", "PDFs"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(dir, "Documents", "PDFs"), 0o555))
	t.Cleanup(func() { os.Chmod(filepath.Join(dir, "Documents", "PDFs"), 0o755) })

	res, err := Organize(ctx, Options{Dir: dir, Now: clock})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Processed)
	assert.FileExists(t, filepath.Join(dir, "a.pdf"))
	assert.FileExists(t, filepath.Join(dir, "Images", "b.png"))
	assert.ErrorIs(t, res.Err(), fserr.ErrIO)
}

func TestOrganizeErrors(t *testing.T) {
	ctx := testContext(t)
	dir := tempDir(t)
	touch(t, dir, "file.txt")

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{name: "missing_dir", opts: Options{Dir: filepath.Join(dir, "nope")}, wantErr: fserr.ErrNotFound},
		{name: "file_not_dir", opts: Options{Dir: filepath.Join(dir, "file.txt")}, wantErr: fserr.ErrNotADirectory},
		{name: "escaping_rule", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: "../elsewhere"}}}, wantErr: ErrInvalidRule},
		{name: "absolute_rule", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: "/tmp/x"}}}, wantErr: ErrInvalidRule},
		{name: "empty_ext", opts: Options{Dir: dir, Rules: Rules{{Ext: ".", Dest: "x"}}}, wantErr: ErrInvalidRule},
		{name: "empty_dest", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: " "}}}, wantErr: ErrInvalidRule},
		{name: "dest_back_to_dir", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: "sub/.."}}}, wantErr: ErrInvalidRule},
		{name: "dest_dot_slash", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: "./"}}}, wantErr: ErrInvalidRule},
		{name: "dest_dotted_path", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: "a/../."}}}, wantErr: ErrInvalidRule},
		{name: "dest_escapes_after_clean", opts: Options{Dir: dir, Rules: Rules{{Ext: "txt", Dest: "a/../../x"}}}, wantErr: ErrInvalidRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Organize(ctx, tt.opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.FileExists(t, filepath.Join(dir, "file.txt"))
}

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name     string
		wantStem string
		wantExt  string
	}{
		{"report.pdf", "report", ".pdf"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{".config.yaml", ".config", ".yaml"},
		{"README", "README", ""},
		{"trailing.", "trailing.", ""},
		{"Photo.JPEG", "Photo", ".JPEG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitExt(tt.name)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestDefaultRulesIsAFreshCopy(t *testing.T) {
	a := DefaultRules()
	a[0].Dest = "Elsewhere"

	dest, ok := DefaultRules().Lookup("pdf")
	require.True(t, ok)
	assert.Equal(t, "Documents/PDFs", dest)
	require.NoError(t, DefaultRules().Validate())

	_, ok = DefaultRules().Lookup("xyz")
	assert.False(t, ok)
	assert.Contains(t, DefaultRules().Destinations(), "Code/C++")
}

func TestCopyThenRemove(t *testing.T) {
	dir := tempDir(t)
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))

	require.NoError(t, copyThenRemove(src, dst))
	assert.NoFileExists(t, src)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.NoError(t, os.WriteFile(src, []byte("again"), 0o640))
	err = copyThenRemove(src, dst)
	assert.ErrorIs(t, err, fserr.ErrIO)
	assert.FileExists(t, src, "source stays when the target exists")
}
