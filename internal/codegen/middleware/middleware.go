// Package middleware emits scaffolding for the generated client's request
// pipeline. Each pipeline stage is described by a StepMiddleware descriptor
// supplying the fixed lookups the shared handler template needs; the
// descriptors hold no state and never fail.
package middleware

import (
	"fmt"

	"github.com/apiforge/sdkgen/internal/codegen"
)

// StepMiddleware supplies the four lookups for one stage of the request
// pipeline: the handler method's name and the symbols for its input, next
// handler, and output types. Lookups are pure and constant.
type StepMiddleware interface {
	FuncName() string
	Input() codegen.Symbol
	Handler() codegen.Symbol
	Output() codegen.Symbol
}

// WriteHandler emits the ID method and the stage handler method for one
// middleware struct, delegating the handler body to body.
func WriteHandler(w *codegen.Writer, receiver, id string, step StepMiddleware, body func(*codegen.Writer)) {
	w.Block(fmt.Sprintf("func (m *%s) ID() string {", receiver), "}", func() {
		w.Writef("return %q", id)
	})
	w.Writef("")

	sig := fmt.Sprintf(
		"func (m *%s) %s(ctx %s, in %s, next %s) (out %s, metadata %s, err error) {",
		receiver,
		step.FuncName(),
		w.Use(codegen.DepContext.Symbol("Context")),
		w.Use(step.Input()),
		w.Use(step.Handler()),
		w.Use(step.Output()),
		w.Use(codegen.DepMiddleware.Symbol("Metadata")),
	)
	w.Block(sig, "}", func() {
		body(w)
	})
}
