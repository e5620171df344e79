package middleware

import "github.com/apiforge/sdkgen/internal/codegen"

// One descriptor per pipeline stage. The generated handler methods and their
// middleware types follow the runtime's Handle<Stage>/<Stage>Input naming.

type InitializeStep struct{}

func (InitializeStep) FuncName() string        { return "HandleInitialize" }
func (InitializeStep) Input() codegen.Symbol   { return codegen.DepMiddleware.Symbol("InitializeInput") }
func (InitializeStep) Handler() codegen.Symbol { return codegen.DepMiddleware.Symbol("InitializeHandler") }
func (InitializeStep) Output() codegen.Symbol  { return codegen.DepMiddleware.Symbol("InitializeOutput") }

type SerializeStep struct{}

func (SerializeStep) FuncName() string        { return "HandleSerialize" }
func (SerializeStep) Input() codegen.Symbol   { return codegen.DepMiddleware.Symbol("SerializeInput") }
func (SerializeStep) Handler() codegen.Symbol { return codegen.DepMiddleware.Symbol("SerializeHandler") }
func (SerializeStep) Output() codegen.Symbol  { return codegen.DepMiddleware.Symbol("SerializeOutput") }

type BuildStep struct{}

func (BuildStep) FuncName() string        { return "HandleBuild" }
func (BuildStep) Input() codegen.Symbol   { return codegen.DepMiddleware.Symbol("BuildInput") }
func (BuildStep) Handler() codegen.Symbol { return codegen.DepMiddleware.Symbol("BuildHandler") }
func (BuildStep) Output() codegen.Symbol  { return codegen.DepMiddleware.Symbol("BuildOutput") }

type FinalizeStep struct{}

func (FinalizeStep) FuncName() string        { return "HandleFinalize" }
func (FinalizeStep) Input() codegen.Symbol   { return codegen.DepMiddleware.Symbol("FinalizeInput") }
func (FinalizeStep) Handler() codegen.Symbol { return codegen.DepMiddleware.Symbol("FinalizeHandler") }
func (FinalizeStep) Output() codegen.Symbol  { return codegen.DepMiddleware.Symbol("FinalizeOutput") }

type DeserializeStep struct{}

func (DeserializeStep) FuncName() string      { return "HandleDeserialize" }
func (DeserializeStep) Input() codegen.Symbol { return codegen.DepMiddleware.Symbol("DeserializeInput") }
func (DeserializeStep) Handler() codegen.Symbol {
	return codegen.DepMiddleware.Symbol("DeserializeHandler")
}
func (DeserializeStep) Output() codegen.Symbol {
	return codegen.DepMiddleware.Symbol("DeserializeOutput")
}
