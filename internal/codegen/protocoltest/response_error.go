package protocoltest

import (
	"fmt"

	"github.com/apiforge/sdkgen/internal/codegen"
	"github.com/apiforge/sdkgen/internal/model"
)

// ResponseErrorGenerator emits the unit test asserting an operation's error
// response deserializes into the declared error shape: the call must fail,
// the error must carry the service and operation identity, it must downcast
// to the declared error type, and the decoded field values must deep-equal
// the case's expected values (response metadata excluded).
type ResponseErrorGenerator struct {
	cfg    Config
	opSym  codegen.Symbol
	errSym codegen.Symbol
}

func NewResponseErrorGenerator(cfg Config) (*ResponseErrorGenerator, error) {
	if cfg.Error == nil {
		return nil, fmt.Errorf("protocoltest: error shape is required")
	}
	return &ResponseErrorGenerator{
		cfg:    cfg,
		opSym:  cfg.Symbols.OperationSymbol(cfg.Operation),
		errSym: cfg.Symbols.ShapeSymbol(cfg.Error),
	}, nil
}

// Generate writes the complete test function for the configured cases.
func (g *ResponseErrorGenerator) Generate(w *codegen.Writer) error {
	return NewDriver(g, g.cfg.Cases).Generate(w)
}

func (g *ResponseErrorGenerator) FuncName() string {
	return fmt.Sprintf("TestClient_%s%s%sDeserialize", g.opSym.Name, g.errSym.Name, g.cfg.Protocol)
}

// WriteParams declares the case fields in fixed order, independent of which
// cases populate them.
func (g *ResponseErrorGenerator) WriteParams(w *codegen.Writer) error {
	w.Writef("StatusCode int")
	w.Writef("Header %s", w.Use(codegen.DepNetHTTP.Symbol("Header")))
	w.Writef("BodyMediaType string")
	w.Writef("Body []byte")
	w.Writef("ExpectError %s", w.Ptr(g.errSym))
	return nil
}

// WriteCaseValues populates one case. Absent optional values produce no
// line; only present values are emitted.
func (g *ResponseErrorGenerator) WriteCaseValues(w *codegen.Writer, tc model.ResponseTestCase) error {
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
	return codegen.WriteFieldValue(w, g.cfg.Symbols, "ExpectError", g.cfg.Error, false, params)
}

func (g *ResponseErrorGenerator) WriteInvocation(w *codegen.Writer) error {
	writeStubClientInvocation(w, g.opSym.Name)
	return nil
}

func (g *ResponseErrorGenerator) WriteAssertions(w *codegen.Writer) error {
	writeAssertNotNil(w, "err")
	writeAssertNil(w, "result")

	// Operation identity carried by the error chain.
	w.Block("var opErr interface {", "}", func() {
		w.Writef("Service() string")
		w.Writef("Operation() string")
	})
	errorsAs := w.Use(codegen.DepErrors.Symbol("As"))
	w.Block(fmt.Sprintf("if !%s(err, &opErr) {", errorsAs), "}", func() {
		w.Writef("t.Fatalf(\"expect %s operation error, got %%T\", err)", w.Ptr(g.errSym))
	})
	w.Block("if e, a := client.ServiceID(), opErr.Service(); e != a {", "}", func() {
		w.Writef(`t.Errorf("expect %%v operation service name, got %%v", e, a)`)
	})
	w.Block(fmt.Sprintf("if e, a := %q, opErr.Operation(); e != a {", g.opSym.Name), "}", func() {
		w.Writef(`t.Errorf("expect %%v operation name, got %%v", e, a)`)
	})

	// The declared API error type.
	w.Writef("var actualErr %s", w.Ptr(g.errSym))
	w.Block(fmt.Sprintf("if !%s(err, &actualErr) {", errorsAs), "}", func() {
		w.Writef("t.Fatalf(\"expect %s result error, got %%T\", err)", w.Ptr(g.errSym))
	})

	diff := fmt.Sprintf("if diff := %s(c.ExpectError, actualErr, %s(%s{})); diff != \"\" {",
		w.Use(codegen.DepCmp.Symbol("Diff")),
		w.Use(codegen.DepCmpopts.Symbol("IgnoreTypes")),
		w.Use(codegen.DepMiddleware.Symbol("Metadata")))
	w.Block(diff, "}", func() {
		w.Writef(`t.Errorf("expect error value match:\n%%s", diff)`)
	})
	return nil
}
