package codegen

import (
	"strings"
	"testing"
)

func TestWriterIndentation(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.Block("func hello() {", "}", func() {
		w.Writef("x := 1")
		w.Block("if x > 0 {", "}", func() {
			w.Writef("x++")
		})
	})

	want := "func hello() {\n\tx := 1\n\tif x > 0 {\n\t\tx++\n\t}\n}\n"
	if got := w.String(); got != want {
		t.Fatalf("body mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriterBlankLinesCarryNoIndent(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.Indent()
	w.Writef("")
	w.Outdent()
	if got := w.String(); got != "\n" {
		t.Fatalf("expected bare newline, got %q", got)
	}
}

func TestWriterFinishGroupsImports(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.Writef("var _ = %s{}", w.Use(DepNetHTTP.Symbol("Header")))
	w.Writef("var _ = %s", w.Use(DepCmp.Symbol("Diff")))
	w.Writef("var _ = %s", w.Use(DepHTTPTransport.Symbol("ClientDoFunc")))

	out := string(w.Finish("widgets"))
	if !strings.HasPrefix(out, "// Code generated by sdkgen. DO NOT EDIT.\n\npackage widgets\n") {
		t.Fatalf("unexpected header: %s", out)
	}

	stdIdx := strings.Index(out, `"net/http"`)
	extIdx := strings.Index(out, `"github.com/google/go-cmp/cmp"`)
	aliasIdx := strings.Index(out, `sdkhttp "`+RuntimeModule+`/transport/http"`)
	if stdIdx < 0 || extIdx < 0 || aliasIdx < 0 {
		t.Fatalf("missing imports in:\n%s", out)
	}
	if stdIdx > extIdx {
		t.Fatalf("stdlib imports must come before module imports:\n%s", out)
	}
}

func TestWriterUseRegistersQualifier(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	if got := w.Use(Symbol{Name: "GetWidgetInput"}); got != "GetWidgetInput" {
		t.Errorf("local symbol: got %q", got)
	}
	if got := w.Use(DepErrors.Symbol("As")); got != "errors.As" {
		t.Errorf("stdlib symbol: got %q", got)
	}
	if got := w.Ptr(Symbol{Name: "NotFoundException", ImportPath: "example.com/widgets/types", Alias: "types"}); got != "*types.NotFoundException" {
		t.Errorf("aliased pointer symbol: got %q", got)
	}
}

func TestAddImportKeepsFirstAlias(t *testing.T) {
	t.Parallel()
	w := NewWriter()
	w.AddImport("example.com/a", "")
	w.AddImport("example.com/a", "alias")
	out := string(w.Finish("p"))
	if !strings.Contains(out, `alias "example.com/a"`) {
		t.Fatalf("empty alias should be upgraded: %s", out)
	}

	w2 := NewWriter()
	w2.AddImport("example.com/a", "one")
	w2.AddImport("example.com/a", "two")
	out2 := string(w2.Finish("p"))
	if !strings.Contains(out2, `one "example.com/a"`) || strings.Contains(out2, `two "`) {
		t.Fatalf("first non-empty alias should win: %s", out2)
	}
}
