package source

import (
	"fmt"
	"go/ast"
	"go/parser"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Cut is a compiled row filter. The expression is a Go boolean expression
// whose free identifiers name numeric branches, each bound as float64; the
// math package is available.
//
//	x > 0 && math.Abs(y) < 2.5
type Cut struct {
	expr  string
	names []string
	pass  func([]float64) bool
}

// cutArgs names the generated predicate's parameter. Leading underscores
// keep it clear of ROOT branch names.
const cutArgs = "__cut_args"

// CompileCut compiles expr. known reports whether an identifier names a
// scalar numeric branch; other identifiers are left to the interpreter.
func CompileCut(expr string, known func(string) bool) (*Cut, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing cut %q: %w", expr, err)
	}

	var (
		names []string
		seen  = map[string]bool{}
		bad   error
	)
	ast.Inspect(node, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			bad = fmt.Errorf("function literals are not allowed")
			return false
		case *ast.SelectorExpr:
			if pkg, ok := x.X.(*ast.Ident); !ok || pkg.Name != "math" {
				bad = fmt.Errorf("only math.* selectors are allowed")
			}
			return false
		case *ast.Ident:
			if x.Name == "math" || x.Name == cutArgs {
				bad = fmt.Errorf("identifier %q is reserved", x.Name)
				return false
			}
			if known(x.Name) && !seen[x.Name] {
				seen[x.Name] = true
				names = append(names, x.Name)
			}
		}
		return true
	})
	if bad != nil {
		return nil, fmt.Errorf("cut %q: %w", expr, bad)
	}

	var src strings.Builder
	fmt.Fprintf(&src, "package main\n\nimport \"math\"\n\nvar _ = math.Pi\n\nfunc Pass(%s []float64) bool {\n", cutArgs)
	for i, name := range names {
		fmt.Fprintf(&src, "\t%s := %s[%d]\n\t_ = %s\n", name, cutArgs, i, name)
	}
	fmt.Fprintf(&src, "\treturn %s\n}\n", expr)

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("loading stdlib: %w", err)
	}
	if _, err := i.Eval(src.String()); err != nil {
		return nil, fmt.Errorf("compiling cut %q: %w", expr, err)
	}
	v, err := i.Eval("main.Pass")
	if err != nil {
		return nil, fmt.Errorf("compiling cut %q: %w", expr, err)
	}
	pass, ok := v.Interface().(func([]float64) bool)
	if !ok {
		return nil, fmt.Errorf("cut %q: unexpected predicate type %T", expr, v.Interface())
	}
	return &Cut{expr: expr, names: names, pass: pass}, nil
}

// Names returns the branch names the cut reads, in argument order.
func (c *Cut) Names() []string {
	return c.names
}

// Pass evaluates the cut for one row; values follow Names.
func (c *Cut) Pass(values []float64) bool {
	return c.pass(values)
}

func (c *Cut) String() string {
	return c.expr
}
