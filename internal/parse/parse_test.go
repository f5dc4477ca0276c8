package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ruin0x11/oxidoc/internal/lang"
	"github.com/Ruin0x11/oxidoc/internal/model"
)

func extract(t *testing.T, source string) *File {
	t.Helper()
	f, err := Extract(context.Background(), lang.Rust.NewParser(), []byte(source), "src/lib.rs")
	require.NoError(t, err)
	return f
}

func TestExtractFunction(t *testing.T) {
	t.Parallel()

	f := extract(t, `use std::path::PathBuf;

/// Computes where a function's docs live.
pub fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf {
    path.join(&fn_doc.name)
}
`)
	require.Len(t, f.Decls, 1)
	d := f.Decls[0]
	assert.Equal(t, "get_fn_file", d.Name)
	assert.Equal(t, model.Function, d.Kind)
	assert.Equal(t, "fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf", d.Signature)
	assert.Equal(t, "pub", d.Visibility)
	assert.Equal(t, "Computes where a function's docs live.", d.Doc)
	assert.Equal(t, 4, d.Line)
	assert.Empty(t, d.Module)
}

func TestExtractInlineModules(t *testing.T) {
	t.Parallel()

	f := extract(t, `
pub mod a {
    pub mod b {
        pub fn test() {}
    }
    fn helper() {}
}
fn top() {}
`)
	got := make(map[string][]string)
	for _, d := range f.Decls {
		got[d.Name] = d.Module
	}
	assert.Equal(t, map[string][]string{
		"test":   {"a", "b"},
		"helper": {"a"},
		"top":    nil,
	}, got)
}

func TestExtractSkipsImplAndTrait(t *testing.T) {
	t.Parallel()

	f := extract(t, `
pub struct Store;
impl Store {
    pub fn new() -> Self { Store }
}
pub trait Render {
    fn render(&self) -> String;
    fn default_impl(&self) {}
}
pub const MAX: usize = 3;
pub fn free() {}
`)
	require.Len(t, f.Decls, 1)
	assert.Equal(t, "free", f.Decls[0].Name)
}

func TestExtractOutOfLineModules(t *testing.T) {
	t.Parallel()

	f := extract(t, `
pub mod store;
mod paths;
pub mod nested {
    pub mod deeper;
}
`)
	assert.Equal(t, [][]string{{"store"}, {"paths"}, {"nested", "deeper"}}, f.Mods)
	assert.Empty(t, f.Decls)
}

func TestExtractSkipsTestModules(t *testing.T) {
	t.Parallel()

	f := extract(t, `
pub fn real() {}

#[cfg(test)]
mod tests {
    #[test]
    fn it_works() {}
}

#[cfg(test)]
mod fixtures;
`)
	require.Len(t, f.Decls, 1)
	assert.Equal(t, "real", f.Decls[0].Name)
	assert.Empty(t, f.Mods)
}

func TestExtractEmpty(t *testing.T) {
	t.Parallel()

	f := extract(t, "")
	assert.Empty(t, f.Decls)
	assert.Empty(t, f.Mods)
}

func TestExtractSyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Extract(context.Background(), lang.Rust.NewParser(),
		[]byte("fn ok() {}\n\nfn broken( {\n"), "src/broken.rs")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "src/broken.rs", perr.File)
	assert.Contains(t, err.Error(), "src/broken.rs")
}

func TestExtractInvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := Extract(context.Background(), lang.Rust.NewParser(), []byte{0xff, 0xfe, 'f'}, "src/bin.rs")
	assert.ErrorIs(t, err, ErrParse)
}
