package handle_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"
)

// TestHandlersAnnotated 测试每个导出的 gin 处理器都带有 swag 注解.
func TestHandlersAnnotated(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}

	fset := token.NewFileSet()
	checked := 0

	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}

		f, err := parser.ParseFile(fset, name, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}

		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || !fn.Name.IsExported() || !takesGinContext(fn) || fn.Name.Name == "NotFound" {
				continue
			}

			checked++

			doc := fn.Doc.Text()
			for _, tag := range []string{"@Summary", "@Tags", "@Produce", "@Success", "@Router"} {
				if !strings.Contains(doc, tag) {
					t.Errorf("%s: %s missing %s", name, fn.Name.Name, tag)
				}
			}
		}
	}

	if checked < 16 {
		t.Errorf("checked %d handlers, want at least 16", checked)
	}
}

func takesGinContext(fn *ast.FuncDecl) bool {
	params := fn.Type.Params.List
	if len(params) != 1 {
		return false
	}

	star, ok := params[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}

	sel, ok := star.X.(*ast.SelectorExpr)

	return ok && sel.Sel.Name == "Context"
}
