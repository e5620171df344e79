package protocoltest

import (
	"fmt"

	"github.com/apiforge/sdkgen/internal/codegen"
	"github.com/apiforge/sdkgen/internal/model"
)

// Config carries everything a protocol test generator needs for one
// operation. Error is only set for error-response generators.
type Config struct {
	Model     *model.Model
	Symbols   codegen.SymbolProvider
	Protocol  string
	Operation *model.Operation
	Error     *model.Shape
	Cases     []model.ResponseTestCase
}

// ResponseGenerator emits the unit test asserting an operation's success
// response deserializes into the expected output values.
type ResponseGenerator struct {
	cfg   Config
	opSym codegen.Symbol
}

func NewResponseGenerator(cfg Config) *ResponseGenerator {
	return &ResponseGenerator{
		cfg:   cfg,
		opSym: cfg.Symbols.OperationSymbol(cfg.Operation),
	}
}

// Generate writes the complete test function for the configured cases.
func (g *ResponseGenerator) Generate(w *codegen.Writer) error {
	return NewDriver(g, g.cfg.Cases).Generate(w)
}

func (g *ResponseGenerator) FuncName() string {
	return fmt.Sprintf("TestClient_%s%sDeserialize", g.opSym.Name, g.cfg.Protocol)
}

func (g *ResponseGenerator) WriteParams(w *codegen.Writer) error {
	w.Writef("StatusCode int")
	w.Writef("Header %s", w.Use(codegen.DepNetHTTP.Symbol("Header")))
	w.Writef("BodyMediaType string")
	w.Writef("Body []byte")
	w.Writef("ExpectResult *%sOutput", g.opSym.Name)
	return nil
}

func (g *ResponseGenerator) WriteCaseValues(w *codegen.Writer, tc model.ResponseTestCase) error {
	w.Writef("StatusCode: %d,", tc.StatusCode)
	writeHeaderField(w, "Header", tc.Headers)
	if tc.BodyMediaType != nil {
		w.Writef("BodyMediaType: %q,", *tc.BodyMediaType)
	}
	if tc.Body != nil {
		w.Writef("Body: []byte(`%s`),", *tc.Body)
	}
	params := tc.Params
	if params == nil {
		params = map[string]any{}
	}
	return codegen.WriteFieldValue(w, g.cfg.Symbols, "ExpectResult", g.cfg.Operation.Output, false, params)
}

func (g *ResponseGenerator) WriteInvocation(w *codegen.Writer) error {
	writeStubClientInvocation(w, g.opSym.Name)
	return nil
}

func (g *ResponseGenerator) WriteAssertions(w *codegen.Writer) error {
	w.Block("if err != nil {", "}", func() {
		w.Writef(`t.Fatalf("expect no error, got %%v", err)`)
	})
	writeAssertNotNil(w, "result")
	diff := fmt.Sprintf("if diff := %s(c.ExpectResult, result, %s(%s{})); diff != \"\" {",
		w.Use(codegen.DepCmp.Symbol("Diff")),
		w.Use(codegen.DepCmpopts.Symbol("IgnoreTypes")),
		w.Use(codegen.DepMiddleware.Symbol("Metadata")))
	w.Block(diff, "}", func() {
		w.Writef("t.Errorf(\"expect result value match:\\n%%s\", diff)")
	})
	return nil
}
