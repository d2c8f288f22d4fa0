package fileops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/project", 0o755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, "/project/"+name, []byte(content), 0o644))
	}
	ws, err := New("/project", WithFs(fs))
	require.NoError(t, err)
	return ws
}

func readFile(t *testing.T, ws *Workspace, name string) string {
	t.Helper()
	data, err := afero.ReadFile(ws.Fs(), "/project/"+name)
	require.NoError(t, err)
	return string(data)
}

func TestResolve_RejectsEscapes(t *testing.T) {
	ws := newTestWorkspace(t, nil)

	for _, p := range []string{"../etc/passwd", "a/../../b", "/etc/passwd", "", "  "} {
		_, err := ws.Resolve(p)
		assert.ErrorIs(t, err, domain.ErrValidation, p)
	}

	abs, err := ws.Resolve("src/../main.go")
	require.NoError(t, err)
	assert.Equal(t, "/project/main.go", abs)

	abs, err = ws.Resolve("/project/nested/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "/project/nested/file.txt", abs)
}

func TestResolve_RejectsSymlinkEscapes(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("TOP SECRET"), 0o644))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone.txt"), filepath.Join(root, "dangling")))
	require.NoError(t, os.Symlink("main.go", filepath.Join(root, "src", "alias.go")))

	ws, err := New(root)
	require.NoError(t, err)

	_, err = ws.Read("link/secret.txt")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ws.Write("link/pwned.txt", "x")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoFileExists(t, filepath.Join(outside, "pwned.txt"))

	_, err = ws.Write("dangling", "x")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoFileExists(t, filepath.Join(outside, "gone.txt"))

	// Links that stay inside the root are fine, as are paths not created yet.
	_, err = ws.Write("src/alias.go", "package main\n")
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(root, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(got))

	_, err = ws.Write("new/dir/file.txt", "ok")
	assert.NoError(t, err)
}

func TestWrite_CreatesParents(t *testing.T) {
	ws := newTestWorkspace(t, nil)

	st, err := ws.Write("a/b/c.txt", "one\ntwo\n")
	require.NoError(t, err)
	assert.True(t, st.Created)
	assert.Equal(t, 8, st.Bytes)
	assert.Equal(t, 2, st.Lines)
	assert.Equal(t, "a/b/c.txt", st.Path)
	assert.Equal(t, "one\ntwo\n", readFile(t, ws, "a/b/c.txt"))

	st, err = ws.Write("a/b/c.txt", "x")
	require.NoError(t, err)
	assert.False(t, st.Created)
	assert.Equal(t, 1, st.Lines)
}

func TestWrite_SizeLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	ws, err := New("/project", WithFs(fs), WithMaxFileSize(4))
	require.NoError(t, err)

	_, err = ws.Write("big.txt", "12345")
	assert.ErrorIs(t, err, domain.ErrLimitExceeded)
}

func TestAppendPrepend(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"log.txt": "middle\n"})

	_, err := ws.Append("log.txt", "end\n")
	require.NoError(t, err)
	_, err = ws.Prepend("log.txt", "start\n")
	require.NoError(t, err)
	assert.Equal(t, "start\nmiddle\nend\n", readFile(t, ws, "log.txt"))

	_, err = ws.Append("fresh.txt", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", readFile(t, ws, "fresh.txt"))
}

func TestDelete(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"dir/a.txt": "a", "dir/sub/b.txt": "b", "c.txt": "c"})

	isDir, err := ws.Delete("dir")
	require.NoError(t, err)
	assert.True(t, isDir)
	assert.False(t, ws.Exists("dir/sub/b.txt"))

	_, err = ws.Delete("missing.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ws.Delete(".")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRenameCopyMove(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"a.txt": "A", "b.txt": "B", "tree/x.txt": "X"})

	err := ws.Rename("a.txt", "b.txt")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "A", readFile(t, ws, "a.txt"))

	require.NoError(t, ws.Rename("a.txt", "moved/a.txt"))
	assert.False(t, ws.Exists("a.txt"))
	assert.Equal(t, "A", readFile(t, ws, "moved/a.txt"))

	require.NoError(t, ws.Copy("tree", "tree2"))
	assert.Equal(t, "X", readFile(t, ws, "tree2/x.txt"))
	assert.Equal(t, "X", readFile(t, ws, "tree/x.txt"))

	assert.ErrorIs(t, ws.Copy("tree", "tree/inner"), domain.ErrValidation)
	assert.ErrorIs(t, ws.Copy("nope", "x"), domain.ErrNotFound)

	require.NoError(t, ws.Move("b.txt", "c.txt"))
	assert.Equal(t, "B", readFile(t, ws, "c.txt"))
}

func TestNotFound_Suggests(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"src/main.go": "package main"})

	_, err := ws.Read("src/mn.go")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "src/main.go")
}

func TestEditLines(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"f.txt": "1\n2\n3\n4"})

	_, err := ws.EditLines("f.txt", 2, 2, []string{"two", "three", "extra"})
	require.NoError(t, err)
	assert.Equal(t, "1\ntwo\nthree\nextra\n4", readFile(t, ws, "f.txt"))

	_, err = ws.EditLines("f.txt", 0, 1, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = ws.EditLines("f.txt", 5, 3, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReplaceBlocks_ExactlyOnce(t *testing.T) {
	original := "alpha\nbeta\ngamma\nbeta\n"
	tests := []struct {
		name    string
		search  string
		wantErr error
		want    string
	}{
		{"unique", "gamma", nil, "alpha\nbeta\nGAMMA\nbeta\n"},
		{"absent", "delta", domain.ErrConflict, original},
		{"ambiguous", "beta", domain.ErrConflict, original},
		{"empty", "", domain.ErrValidation, original},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newTestWorkspace(t, map[string]string{"f.txt": original})
			_, err := ws.ReplaceOnce("f.txt", tt.search, "GAMMA")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, readFile(t, ws, "f.txt"))
		})
	}
}

func TestReplaceBlocks_AllOrNothing(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"f.txt": "a\nb\nc\n"})

	_, err := ws.ReplaceBlocks("f.txt", []Block{{Search: "a", Replace: "A"}, {Search: "zzz", Replace: "Z"}})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "a\nb\nc\n", readFile(t, ws, "f.txt"))
}

func TestParseBlocks(t *testing.T) {
	text := "<<<<<<< SEARCH\n  indented\nline\n=======\nreplacement\n>>>>>>> REPLACE\n" +
		"<<<<<<< SEARCH  \nsecond\n=======\n\n>>>>>>> REPLACE"
	blocks, err := ParseBlocks(text)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Search: "  indented\nline", Replace: "replacement"}, blocks[0])
	assert.Equal(t, Block{Search: "second", Replace: ""}, blocks[1])

	_, err = ParseBlocks("<<<<<<< SEARCH\nfoo\n=======\nbar")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ParseBlocks("no markers here")
	assert.ErrorIs(t, err, domain.ErrValidation)

	round, err := ParseBlocks(FormatBlock(Block{Search: "x", Replace: "y"}))
	require.NoError(t, err)
	assert.Equal(t, []Block{{Search: "x", Replace: "y"}}, round)
}

func TestList(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"a.txt": "hello", "b/inner.txt": "x", ".git/HEAD": "ref", "node_modules/m/index.js": "x"})

	entries, err := ws.List(".", false)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "a.txt")
	assert.Contains(t, names, "b")

	recursive, err := ws.List(".", true)
	require.NoError(t, err)
	var paths []string
	for _, e := range recursive {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"a.txt", "b", "b/inner.txt"}, paths)

	_, err = ws.List("a.txt", false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPatch(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{"f.txt": "a\nb\nc\n"})

	_, err := ws.Patch("f.txt", "@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n")
	require.NoError(t, err)
	assert.Equal(t, "a\nB\nc\n", readFile(t, ws, "f.txt"))
}
