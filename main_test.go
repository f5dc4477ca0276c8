package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleCrate(t *testing.T, dir string) string {
	t.Helper()
	writeTestFile(t, dir, "Cargo.toml", "[package]\nname = \"oxidoc\"\nversion = \"0.1.0\"\n")
	writeTestFile(t, dir, "src/lib.rs", "pub mod store;\n")
	writeTestFile(t, dir, "src/store.rs", `use std::path::PathBuf;

pub fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf {
    path.join(&fn_doc.name)
}

/// Loads a cached page.
pub fn load_page() {}
`)
	return dir
}

func runArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// generated returns a store holding the sample crate.
func generated(t *testing.T) string {
	t.Helper()
	docRoot := t.TempDir()
	crate := createSampleCrate(t, t.TempDir())
	out, stderr, err := runArgs(t, "-doc-root", docRoot, "-g", crate)
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "oxidoc-0.1.0 (2 items)")
	return docRoot
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out, _, err := runArgs(t, "-V")
	require.NoError(t, err)
	assert.Equal(t, "oxidoc dev\n", out)
}

func TestRunQueryExactPath(t *testing.T) {
	t.Parallel()
	docRoot := generated(t)

	out, _, err := runArgs(t, "oxidoc::store::get_fn_file", "-doc-root", docRoot)
	require.NoError(t, err)

	rule := strings.Repeat("-", 78)
	assert.Equal(t, "= oxidoc::store::get_fn_file\n\n"+
		"(from crate oxidoc-0.1.0)\n"+
		"=== oxidoc::store::get_fn_file()\n"+
		rule+"\n"+
		"  fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf\n\n"+
		rule+"\n\n"+
		"(no documentation available)\n", out)
}

func TestRunQueryBareName(t *testing.T) {
	t.Parallel()
	docRoot := generated(t)

	out, _, err := runArgs(t, "-doc-root", docRoot, "load_page")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "= oxidoc::store::load_page\n"))
	assert.True(t, strings.HasSuffix(out, "\nLoads a cached page.\n"))
}

func TestRunQueryNoMatch(t *testing.T) {
	t.Parallel()
	docRoot := generated(t)

	out, _, err := runArgs(t, "-doc-root", docRoot, "nothing_here")
	require.NoError(t, err)
	assert.Equal(t, "No documentation found for \"nothing_here\".\n", out)
}

func TestRunQueryMatcherAndLimit(t *testing.T) {
	t.Parallel()
	docRoot := generated(t)

	out, _, err := runArgs(t, "-doc-root", docRoot, "-match", "substring", "-format", "toon", "_")
	require.NoError(t, err)
	assert.Contains(t, out, "matches[2]{tier,path,crate,kind,signature}:")

	out, _, err = runArgs(t, "-doc-root", docRoot, "-match", "substring", "-format", "toon", "-n", "1", "_")
	require.NoError(t, err)
	assert.Contains(t, out, "matches[1]{tier,path,crate,kind,signature}:")
	assert.Contains(t, out, `"oxidoc::store::get_fn_file"`)
}

func TestRunList(t *testing.T) {
	t.Parallel()
	docRoot := generated(t)

	out, _, err := runArgs(t, "-doc-root", docRoot, "-list", "oxidoc::store")
	require.NoError(t, err)
	assert.Equal(t, "oxidoc::store::get_fn_file (oxidoc-0.1.0)\noxidoc::store::load_page (oxidoc-0.1.0)\n", out)

	out, _, err = runArgs(t, "-doc-root", docRoot, "-list", "-format", "toon")
	require.NoError(t, err)
	assert.Contains(t, out, "items[2]{path,crate,kind,visibility,file,line}:")
}

func TestRunGenerateSkipsFresh(t *testing.T) {
	t.Parallel()

	docRoot := t.TempDir()
	crate := createSampleCrate(t, t.TempDir())
	_, _, err := runArgs(t, "-doc-root", docRoot, "-g", crate)
	require.NoError(t, err)

	out, _, err := runArgs(t, "-doc-root", docRoot, "-g", crate)
	require.NoError(t, err)
	assert.Contains(t, out, "fresh")

	out, _, err = runArgs(t, "-doc-root", docRoot, "-g", crate, "-force")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}

func TestRunGenerateAll(t *testing.T) {
	t.Parallel()

	registry := t.TempDir()
	createSampleCrate(t, filepath.Join(registry, "index-abc", "oxidoc-0.1.0"))
	docRoot := t.TempDir()

	out, stderr, err := runArgs(t, "-doc-root", docRoot, "-registry", registry, "-g", "all", "-format", "toon")
	require.NoError(t, err, stderr)
	assert.Contains(t, out, "crates[1]{crate,status,items}:")
	assert.Contains(t, out, "oxidoc-0.1.0,ok,2")
}

func TestRunGenerateFailure(t *testing.T) {
	t.Parallel()

	crate := t.TempDir()
	writeTestFile(t, crate, "src/lib.rs", "pub fn f() {}\n")

	out, _, err := runArgs(t, "-doc-root", t.TempDir(), "-g", crate)
	require.Error(t, err)
	assert.ErrorContains(t, err, "Cargo.toml")
	assert.Contains(t, out, "failed")
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	docRoot := generated(t)

	cfg := filepath.Join(t.TempDir(), "oxidoc.conf")
	writeTestFile(t, filepath.Dir(cfg), filepath.Base(cfg), "doc-root "+docRoot+"\nformat toon\n")

	out, _, err := runArgs(t, "-config", cfg, "get_fn_file")
	require.NoError(t, err)
	assert.Contains(t, out, "query: get_fn_file")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	docRoot := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no query", []string{"-doc-root", docRoot}, "no query given"},
		{"bad matcher", []string{"-doc-root", docRoot, "-match", "nope", "x"}, `unknown matcher "nope"`},
		{"bad format", []string{"-doc-root", docRoot, "-format", "html", "x"}, `unknown format "html"`},
		{"bad exclude", []string{"-doc-root", docRoot, "-exclude", "[", "x"}, "exclude pattern"},
		{"watch all", []string{"-doc-root", docRoot, "-g", "all", "-watch"}, "-watch needs a crate directory"},
		{"missing crate", []string{"-doc-root", docRoot, "-g", filepath.Join(docRoot, "nope")}, "crate path"},
		{"bad list prefix", []string{"-doc-root", docRoot, "-list", "a::::b"}, "invalid path"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := runArgs(t, tt.args...)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"-n", "5", "get"}, []string{"-n", "5", "--", "get"}},
		{"positional first", []string{"get", "-n", "5"}, []string{"-n", "5", "--", "get"}},
		{"mixed", []string{"-match", "glob", "get_*", "-n", "5"}, []string{"-match", "glob", "-n", "5", "--", "get_*"}},
		{"generate", []string{"-g", "all", "-v"}, []string{"-g", "all", "-v"}},
		{"no flags", []string{"a::b"}, []string{"--", "a::b"}},
		{"no args", nil, nil},
		{"bool flag", []string{"-V"}, []string{"-V"}},
		{"explicit terminator", []string{"-list", "--", "-odd"}, []string{"-list", "--", "-odd"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, reorderArgs(tt.in))
		})
	}
}
