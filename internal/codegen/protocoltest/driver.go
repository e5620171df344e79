// Package protocoltest emits unit-test source for a generated HTTP client,
// driven by declarative protocol test cases. The shared Driver owns the test
// function's skeleton; Hooks implementations supply the operation-specific
// pieces (template method via dependency injection rather than embedding).
package protocoltest

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/apiforge/sdkgen/internal/codegen"
	"github.com/apiforge/sdkgen/internal/model"
)

// Hooks supplies the variable parts of one generated protocol test function.
type Hooks interface {
	// FuncName is the generated test function's name.
	FuncName() string
	// WriteParams declares the case struct's fields. All fields must be
	// declared before returning, regardless of which cases populate them.
	WriteParams(w *codegen.Writer) error
	// WriteCaseValues populates the case struct for one test case.
	WriteCaseValues(w *codegen.Writer, tc model.ResponseTestCase) error
	// WriteInvocation builds the client and invokes the operation. Should
	// not assert anything.
	WriteInvocation(w *codegen.Writer) error
	// WriteAssertions emits the per-case assertion statements.
	WriteAssertions(w *codegen.Writer) error
}

// Driver generates one test function per Hooks implementation: a cases map
// keyed by case id, then a range loop running each case as a subtest.
// Generation is a single pass and keeps no state between cases.
type Driver struct {
	hooks Hooks
	cases []model.ResponseTestCase
}

func NewDriver(hooks Hooks, cases []model.ResponseTestCase) *Driver {
	return &Driver{hooks: hooks, cases: cases}
}

func (d *Driver) Generate(w *codegen.Writer) error {
	var genErr error
	fail := func(err error) {
		if err != nil && genErr == nil {
			genErr = err
		}
	}

	w.Block(fmt.Sprintf("func %s(t %s) {", d.hooks.FuncName(), w.Ptr(codegen.DepTesting.Symbol("T"))), "}", func() {
		w.Writef("cases := map[string]struct {")
		w.Indent()
		fail(d.hooks.WriteParams(w))
		w.Outdent()
		w.Writef("}{")
		w.Indent()
		for _, tc := range d.cases {
			w.Block(fmt.Sprintf("%q: {", tc.ID), "},", func() {
				fail(d.hooks.WriteCaseValues(w, tc))
			})
		}
		w.Outdent()
		w.Writef("}")

		w.Block("for name, c := range cases {", "}", func() {
			w.Block("t.Run(name, func(t *testing.T) {", "})", func() {
				fail(d.hooks.WriteInvocation(w))
				fail(d.hooks.WriteAssertions(w))
			})
		})
	})
	return genErr
}

// writeStubClientInvocation emits the shared test body: a client whose HTTP
// transport replays the case's response, then the operation call.
func writeStubClientInvocation(w *codegen.Writer, opName string) {
	w.Writef("serverURL := %q", "http://localhost:8888/")
	w.Block("client := New(Options{", "})", func() {
		doFunc := fmt.Sprintf("HTTPClient: %s(func(r %s) (%s, error) {",
			w.Use(codegen.DepHTTPTransport.Symbol("ClientDoFunc")),
			w.Ptr(codegen.DepNetHTTP.Symbol("Request")),
			w.Ptr(codegen.DepNetHTTP.Symbol("Response")),
		)
		w.Block(doFunc, "}),", func() {
			w.Writef("headers := %s{}", w.Use(codegen.DepNetHTTP.Symbol("Header")))
			w.Block("for k, vs := range c.Header {", "}", func() {
				w.Block("for _, v := range vs {", "}", func() {
					w.Writef("headers.Add(k, v)")
				})
			})
			w.Block(`if len(c.BodyMediaType) != 0 && len(headers.Values("Content-Type")) == 0 {`, "}", func() {
				w.Writef(`headers.Set("Content-Type", c.BodyMediaType)`)
			})
			w.Block(fmt.Sprintf("response := &%s{", w.Use(codegen.DepNetHTTP.Symbol("Response"))), "}", func() {
				w.Writef("StatusCode: c.StatusCode,")
				w.Writef("Header:     headers,")
				w.Writef("Request:    r,")
				w.Writef("Body:       %s(%s(c.Body)),",
					w.Use(codegen.DepIO.Symbol("NopCloser")),
					w.Use(codegen.DepBytes.Symbol("NewReader")))
			})
			w.Writef("return response, nil")
		})
		w.Writef("Endpoint: serverURL,")
	})
	w.Writef("result, err := client.%s(%s(), &%sInput{})",
		opName, w.Use(codegen.DepContext.Symbol("Background")), opName)
}

// writeHeaderField always emits the Header field, empty or not, matching the
// fixed declaration order of the case struct.
func writeHeaderField(w *codegen.Writer, name string, headers map[string]string) {
	headerType := w.Use(codegen.DepNetHTTP.Symbol("Header"))
	if len(headers) == 0 {
		w.Writef("%s: %s{},", name, headerType)
		return
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.Block(fmt.Sprintf("%s: %s{", name, headerType), "},", func() {
		for _, k := range keys {
			w.Writef("%q: []string{%q},", http.CanonicalHeaderKey(k), headers[k])
		}
	})
}

func writeAssertNotNil(w *codegen.Writer, expr string) {
	w.Block(fmt.Sprintf("if %s == nil {", expr), "}", func() {
		w.Writef("t.Fatalf(\"expect not nil %s\")", expr)
	})
}

func writeAssertNil(w *codegen.Writer, expr string) {
	w.Block(fmt.Sprintf("if %s != nil {", expr), "}", func() {
		w.Writef("t.Fatalf(\"expect nil %s, got %%v\", %s)", expr, expr)
	})
}
