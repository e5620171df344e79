package codegen

import (
	"github.com/iancoleman/strcase"

	"github.com/apiforge/sdkgen/internal/model"
)

// Symbol is a resolved Go identifier for a shape or operation, carrying the
// import the emitted code needs to reference it.
type Symbol struct {
	Name       string
	ImportPath string // empty for identifiers in the generated package itself
	Alias      string
}

// Dependency is a package the emitted code may reference. Symbol produces a
// fixed lookup for a type exported by the dependency.
type Dependency struct {
	Path  string
	Alias string
}

func (d Dependency) Symbol(name string) Symbol {
	return Symbol{Name: name, ImportPath: d.Path, Alias: d.Alias}
}

// RuntimeModule is the SDK runtime the emitted code is compiled against.
const RuntimeModule = "github.com/apiforge/sdkruntime"

// Standard dependencies of emitted code. Generators reference these rather
// than spelling import paths inline.
var (
	DepContext = Dependency{Path: "context"}
	DepErrors  = Dependency{Path: "errors"}
	DepNetHTTP = Dependency{Path: "net/http"}
	DepTesting = Dependency{Path: "testing"}
	DepBytes   = Dependency{Path: "bytes"}
	DepIO      = Dependency{Path: "io"}

	DepCmp     = Dependency{Path: "github.com/google/go-cmp/cmp"}
	DepCmpopts = Dependency{Path: "github.com/google/go-cmp/cmp/cmpopts"}

	DepMiddleware    = Dependency{Path: RuntimeModule + "/middleware"}
	DepPtr           = Dependency{Path: RuntimeModule + "/ptr"}
	DepHTTPTransport = Dependency{Path: RuntimeModule + "/transport/http", Alias: "sdkhttp"}
)

// SymbolProvider resolves model entities to Go symbols. Resolution is pure:
// the same input always yields the same symbol.
type SymbolProvider interface {
	OperationSymbol(op *model.Operation) Symbol
	ShapeSymbol(shape *model.Shape) Symbol
}

// Provider resolves symbols for a generated client package whose named
// shapes live in a separate types package.
type Provider struct {
	TypesImportPath string
}

func NewSymbolProvider(typesImportPath string) *Provider {
	return &Provider{TypesImportPath: typesImportPath}
}

// OperationSymbol names the client method for an operation. The method and
// its synthesized input/output structs live in the client package, so the
// symbol carries no import.
func (p *Provider) OperationSymbol(op *model.Operation) Symbol {
	return Symbol{Name: strcase.ToCamel(op.Name)}
}

// ShapeSymbol names a shape. Named shapes resolve into the types package;
// synthesized operation input/output shapes stay in the client package.
func (p *Provider) ShapeSymbol(shape *model.Shape) Symbol {
	name := strcase.ToCamel(shape.Name)
	if shape.Synthetic {
		return Symbol{Name: name}
	}
	return Symbol{Name: name, ImportPath: p.TypesImportPath, Alias: "types"}
}
