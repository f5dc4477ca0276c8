package toon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ruin0x11/oxidoc/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"carriage return", "a\rb", `"a\rb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "3.14", "3.14"},
		{"comma", "a,b", `"a,b"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"bracket", "&[T]", `"&[T]"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"qualified path", "oxidoc::store", `"oxidoc::store"`},
		{"crate dir", "oxidoc-0.1.0", "oxidoc-0.1.0"},
		{"file", "src/store.rs", "src/store.rs"},
		{"signature no special", "fn run() -> bool", "fn run() -> bool"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func item(path model.Path, signature string) model.Item {
	return model.Item{
		Kind:       model.Function,
		Name:       path.Last(),
		Path:       path,
		Signature:  signature,
		Visibility: "pub",
		Source:     model.Location{Crate: "oxidoc", Version: "0.1.0", File: "src/store.rs", Line: 3},
	}
}

func TestEncodeMatches(t *testing.T) {
	t.Parallel()

	got := EncodeMatches("get_fn_file", []model.Match{
		{Item: item(model.Path{"oxidoc", "store", "get_fn_file"}, "fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf"), Tier: model.BareName},
		{Item: item(model.Path{"oxidoc", "run"}, "fn run()"), Tier: model.BareName},
	})

	assert.Equal(t, []string{
		"query: get_fn_file",
		"matches[2]{tier,path,crate,kind,signature}:",
		`  name,"oxidoc::store::get_fn_file",oxidoc-0.1.0,fn,"fn get_fn_file(path: &PathBuf, fn_doc: &Function) -> PathBuf"`,
		`  name,"oxidoc::run",oxidoc-0.1.0,fn,fn run()`,
	}, strings.Split(got, "\n"))
}

func TestEncodeListing(t *testing.T) {
	t.Parallel()

	got := EncodeListing(model.Path{"oxidoc"}, []model.Item{item(model.Path{"oxidoc", "run"}, "fn run()")})
	assert.Equal(t, []string{
		"prefix: oxidoc",
		"items[1]{path,crate,kind,visibility,file,line}:",
		`  "oxidoc::run",oxidoc-0.1.0,fn,pub,src/store.rs,3`,
	}, strings.Split(got, "\n"))
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "query: nothing\nmatches[0]{tier,path,crate,kind,signature}:", EncodeMatches("nothing", nil))
	assert.Equal(t, `prefix: ""`+"\nitems[0]{path,crate,kind,visibility,file,line}:", EncodeListing(nil, nil))
}

func TestTable(t *testing.T) {
	t.Parallel()

	got := Table("crates", []string{"crate", "items"}, [][]string{{"oxidoc-0.1.0", "3"}})
	assert.Equal(t, "crates[1]{crate,items}:\n  oxidoc-0.1.0,3", got)
}
