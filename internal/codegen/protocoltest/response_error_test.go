package protocoltest

import (
	"strings"
	"testing"

	"github.com/apiforge/sdkgen/internal/codegen"
	"github.com/apiforge/sdkgen/internal/model"
)

func strPtr(s string) *string { return &s }

func widgetModel() (*model.Model, *model.Operation, *model.Shape) {
	str := &model.Shape{Type: model.StringType}
	errShape := &model.Shape{
		Name:       "NotFoundException",
		Type:       model.StructureType,
		IsError:    true,
		StatusCode: 404,
		Members: []*model.Member{
			{Name: "Message", Target: str},
		},
	}
	op := &model.Operation{
		Name:   "GetWidget",
		Method: "GET",
		Path:   "/widgets/{id}",
		Input:  &model.Shape{Name: "GetWidgetInput", Type: model.StructureType, Synthetic: true},
		Output: &model.Shape{
			Name:      "GetWidgetOutput",
			Type:      model.StructureType,
			Synthetic: true,
			Members: []*model.Member{
				{Name: "Name", Target: str},
			},
		},
		Errors: []*model.Shape{errShape},
	}
	m := &model.Model{
		Service: model.Service{
			Name:       "Widgets",
			ID:         "Widgets",
			Protocol:   "restJson",
			Operations: []*model.Operation{op},
		},
		Shapes: map[string]*model.Shape{"NotFoundException": errShape},
	}
	return m, op, errShape
}

func errorGenerator(t *testing.T, cases []model.ResponseTestCase) (*ResponseErrorGenerator, *codegen.Writer) {
	t.Helper()
	m, op, errShape := widgetModel()
	gen, err := NewResponseErrorGenerator(Config{
		Model:     m,
		Symbols:   codegen.NewSymbolProvider("example.com/widgets/types"),
		Protocol:  m.Service.Protocol,
		Operation: op,
		Error:     errShape,
		Cases:     cases,
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return gen, codegen.NewWriter()
}

func TestErrorTest_AbsentOptionalFieldsOmitted(t *testing.T) {
	t.Parallel()
	gen, w := errorGenerator(t, []model.ResponseTestCase{{
		ID:         "WidgetNotFound",
		StatusCode: 404,
		Params:     map[string]any{"Message": "not found"},
	}})
	if err := gen.Generate(w); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out := w.String()

	if !strings.Contains(out, "func TestClient_GetWidgetNotFoundExceptionrestJsonDeserialize(t *testing.T) {") {
		t.Errorf("missing test function name in:\n%s", out)
	}
	for _, want := range []string{
		`"WidgetNotFound": {`,
		"StatusCode: 404,",
		"Header: http.Header{},",
		"ExpectError: &types.NotFoundException{",
		`Message: ptr.String("not found"),`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	// Absent optional values produce no population line at all.
	if strings.Contains(out, "Body: []byte(") {
		t.Errorf("Body must not be populated when absent:\n%s", out)
	}
	if strings.Contains(out, `BodyMediaType: "`) {
		t.Errorf("BodyMediaType must not be populated when absent:\n%s", out)
	}
}

func TestErrorTest_PresentOptionalFieldsEmittedOnce(t *testing.T) {
	t.Parallel()
	gen, w := errorGenerator(t, []model.ResponseTestCase{{
		ID:            "WidgetNotFoundWithBody",
		StatusCode:    404,
		Headers:       map[string]string{"content-type": "application/json"},
		BodyMediaType: strPtr("application/json"),
		Body:          strPtr(`{"message":"not found"}`),
		Params:        map[string]any{"Message": "not found"},
	}})
	if err := gen.Generate(w); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out := w.String()

	if got := strings.Count(out, `BodyMediaType: "application/json",`); got != 1 {
		t.Errorf("BodyMediaType populated %d times, want 1:\n%s", got, out)
	}
	if got := strings.Count(out, "Body: []byte(`{\"message\":\"not found\"}`),"); got != 1 {
		t.Errorf("Body populated %d times, want 1:\n%s", got, out)
	}
	if !strings.Contains(out, `"Content-Type": []string{"application/json"},`) {
		t.Errorf("headers must be canonicalized:\n%s", out)
	}
}

// Field declarations keep a fixed order no matter which cases populate them.
func TestErrorTest_ParamDeclarationOrder(t *testing.T) {
	t.Parallel()
	gen, w := errorGenerator(t, []model.ResponseTestCase{{
		ID:         "WidgetNotFound",
		StatusCode: 404,
	}})
	if err := gen.Generate(w); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out := w.String()

	decls := []string{
		"StatusCode int",
		"Header http.Header",
		"BodyMediaType string",
		"Body []byte",
		"ExpectError *types.NotFoundException",
	}
	last := -1
	for _, d := range decls {
		idx := strings.Index(out, d)
		if idx < 0 {
			t.Fatalf("missing declaration %q in:\n%s", d, out)
		}
		if idx < last {
			t.Fatalf("declaration %q out of order in:\n%s", d, out)
		}
		last = idx
	}
}

func TestErrorTest_AssertionSequence(t *testing.T) {
	t.Parallel()
	gen, w := errorGenerator(t, []model.ResponseTestCase{{
		ID:         "WidgetNotFound",
		StatusCode: 404,
		Params:     map[string]any{"Message": "not found"},
	}})
	if err := gen.Generate(w); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out := w.String()

	steps := []string{
		"result, err := client.GetWidget(context.Background(), &GetWidgetInput{})",
		"if err == nil {",
		"if result != nil {",
		"var opErr interface {",
		"Service() string",
		"Operation() string",
		"if !errors.As(err, &opErr) {",
		"if e, a := client.ServiceID(), opErr.Service(); e != a {",
		`if e, a := "GetWidget", opErr.Operation(); e != a {`,
		"var actualErr *types.NotFoundException",
		"if !errors.As(err, &actualErr) {",
		`if diff := cmp.Diff(c.ExpectError, actualErr, cmpopts.IgnoreTypes(middleware.Metadata{})); diff != "" {`,
	}
	last := -1
	for _, s := range steps {
		idx := strings.Index(out, s)
		if idx < 0 {
			t.Fatalf("missing %q in:\n%s", s, out)
		}
		if idx < last {
			t.Fatalf("%q out of order in:\n%s", s, out)
		}
		last = idx
	}
}

func TestErrorTest_RenderedFileImports(t *testing.T) {
	t.Parallel()
	gen, w := errorGenerator(t, []model.ResponseTestCase{{
		ID:         "WidgetNotFound",
		StatusCode: 404,
		Params:     map[string]any{"Message": "not found"},
	}})
	if err := gen.Generate(w); err != nil {
		t.Fatalf("generate: %v", err)
	}

	rendered := string(w.Finish("widgets"))
	for _, imp := range []string{
		`"bytes"`,
		`"context"`,
		`"errors"`,
		`"io"`,
		`"net/http"`,
		`"testing"`,
		`"github.com/google/go-cmp/cmp"`,
		`"github.com/google/go-cmp/cmp/cmpopts"`,
		`"` + codegen.RuntimeModule + `/middleware"`,
		`"` + codegen.RuntimeModule + `/ptr"`,
		`sdkhttp "` + codegen.RuntimeModule + `/transport/http"`,
		`types "example.com/widgets/types"`,
	} {
		if !strings.Contains(rendered, imp) {
			t.Errorf("missing import %s in:\n%s", imp, rendered)
		}
	}
	if !strings.HasPrefix(rendered, "// Code generated by sdkgen. DO NOT EDIT.") {
		t.Errorf("missing generated-code header")
	}
}

func TestErrorTest_RequiresErrorShape(t *testing.T) {
	t.Parallel()
	m, op, _ := widgetModel()
	_, err := NewResponseErrorGenerator(Config{
		Model:     m,
		Symbols:   codegen.NewSymbolProvider("example.com/widgets/types"),
		Protocol:  m.Service.Protocol,
		Operation: op,
	})
	if err == nil {
		t.Fatalf("expected error when no error shape configured")
	}
}
