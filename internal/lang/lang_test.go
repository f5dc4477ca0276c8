package lang

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"src/lib.rs", true},
		{"main.rs", true},
		{"build.go", false},
		{"Cargo.toml", false},
		{"", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Rust.Matches(tt.path))
		})
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	require.NotNil(t, Rust.GetLanguage())
	require.NotNil(t, Rust.NewParser())
}

// firstOfType parses source and returns the first top-level node of type typ.
func firstOfType(t *testing.T, source, typ string) (*sitter.Node, []byte) {
	t.Helper()

	src := []byte(source)
	tree, err := Rust.NewParser().ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)
	t.Cleanup(tree.Close)

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		if n := root.NamedChild(i); n.Type() == typ {
			return n, src
		}
	}
	t.Fatalf("no %s in %q", typ, source)
	return nil, nil
}

func TestFunctionSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "simple",
			src:  "pub fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf { unimplemented!() }",
			want: "fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf",
		},
		{
			name: "no return",
			src:  "fn main() {}",
			want: "fn main()",
		},
		{
			name: "generics and where",
			src:  "fn first<T>(v: &[T]) -> Option<&T>\nwhere\n    T: Clone\n{ v.first() }",
			want: "fn first<T>(v: &[T]) -> Option<&T> where T: Clone",
		},
		{
			name: "multiline params",
			src:  "fn wide(\n    a: u32,\n    b: u32,\n) -> u32 { a + b }",
			want: "fn wide(a: u32, b: u32) -> u32",
		},
		{
			name: "modifiers",
			src:  "pub async unsafe fn go() {}",
			want: "async unsafe fn go()",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			node, src := firstOfType(t, tt.src, "function_item")
			assert.Equal(t, tt.want, FunctionSignature(node, src))
		})
	}
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	node, src := firstOfType(t, "pub(crate) fn f() {}", "function_item")
	assert.Equal(t, "pub(crate)", Visibility(node, src))

	node, src = firstOfType(t, "fn f() {}", "function_item")
	assert.Equal(t, "", Visibility(node, src))
}

func TestDocComment(t *testing.T) {
	t.Parallel()

	src := `// not a doc comment

/// Returns the file.
///
/// Second paragraph.
#[inline]
fn f() {}
`
	node, b := firstOfType(t, src, "function_item")
	assert.Equal(t, "Returns the file.\n\nSecond paragraph.", DocComment(node, b))

	node, b = firstOfType(t, "/** Block\n * docs */\nfn g() {}", "function_item")
	assert.Equal(t, "Block\ndocs", DocComment(node, b))

	node, b = firstOfType(t, "//// banner\nfn h() {}", "function_item")
	assert.Equal(t, "", DocComment(node, b))
}

func TestIsTestOnly(t *testing.T) {
	t.Parallel()

	node, src := firstOfType(t, "#[cfg(test)]\nmod tests {}", "mod_item")
	assert.True(t, IsTestOnly(node, src))

	node, src = firstOfType(t, "#[cfg(feature = \"x\")]\nmod x {}", "mod_item")
	assert.False(t, IsTestOnly(node, src))
}
