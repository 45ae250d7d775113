// Package filter provides AIP-160 filter expression parsing and SQL translation
// over the scalar fields of an entity schema.
package filter

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/tordrt/scaffold/internal/schema"
)

// Translator converts filter expressions for one schema.
type Translator struct {
	decls   *filtering.Declarations
	columns map[string]string
	quote   func(string) string
}

// NewTranslator declares every scalar field of s as a filterable identifier.
// quote renders a column name as a SQL identifier.
func NewTranslator(s *schema.Schema, quote func(string) string) (*Translator, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	columns := make(map[string]string)
	for _, f := range s.Scalars() {
		opts = append(opts, filtering.DeclareIdent(f.Key, identType(f.Type)))
		columns[f.Key] = f.ColumnName()
	}

	decls, err := filtering.NewDeclarations(opts...)
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	return &Translator{decls: decls, columns: columns, quote: quote}, nil
}

// identType maps a declared SQL type onto a filter type.
func identType(sqlType string) *expr.Type {
	t := strings.ToLower(sqlType)
	switch {
	case strings.Contains(t, "int") || t == "serial" || t == "bigserial":
		return filtering.TypeInt
	case strings.Contains(t, "real") || strings.Contains(t, "float") || strings.Contains(t, "double") || strings.Contains(t, "numeric") || strings.Contains(t, "decimal"):
		return filtering.TypeFloat
	case strings.HasPrefix(t, "bool"):
		return filtering.TypeBool
	case strings.HasPrefix(t, "timestamp") || t == "datetime" || t == "date":
		return filtering.TypeTimestamp
	default:
		return filtering.TypeString
	}
}

// Parse parses a filter expression into a SQL condition.
// Returns nil for an empty filter string.
func (tr *Translator) Parse(filterStr string) (sq.Sqlizer, error) {
	if strings.TrimSpace(filterStr) == "" {
		return nil, nil
	}

	filter, err := filtering.ParseFilterString(filterStr, tr.decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}

	return tr.translateExpr(filter.CheckedExpr.GetExpr())
}

func (tr *Translator) translateExpr(e *expr.Expr) (sq.Sqlizer, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return tr.translateCall(kind.CallExpr)
	default:
		return nil, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func (tr *Translator) translateCall(call *expr.Expr_Call) (sq.Sqlizer, error) {
	switch call.Function {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd, "_&&_":
		return tr.translateJunction(call.Args, func(parts []sq.Sqlizer) sq.Sqlizer { return sq.And(parts) })
	case filtering.FunctionOr, "_||_":
		return tr.translateJunction(call.Args, func(parts []sq.Sqlizer) sq.Sqlizer { return sq.Or(parts) })
	case filtering.FunctionNot:
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := tr.translateExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		sql, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT ("+sql+")", args...), nil
	case filtering.FunctionEquals, "_==_":
		return tr.translateComparison(call.Args, "=")
	case filtering.FunctionNotEquals, "_!=_":
		return tr.translateComparison(call.Args, "<>")
	case filtering.FunctionLessThan, "_<_":
		return tr.translateComparison(call.Args, "<")
	case filtering.FunctionLessEquals, "_<=_":
		return tr.translateComparison(call.Args, "<=")
	case filtering.FunctionGreaterThan, "_>_":
		return tr.translateComparison(call.Args, ">")
	case filtering.FunctionGreaterEquals, "_>=_":
		return tr.translateComparison(call.Args, ">=")
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func (tr *Translator) translateJunction(args []*expr.Expr, join func([]sq.Sqlizer) sq.Sqlizer) (sq.Sqlizer, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("junction requires at least 2 arguments")
	}

	parts := make([]sq.Sqlizer, 0, len(args))
	for _, a := range args {
		part, err := tr.translateExpr(a)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return join(parts), nil
}

func (tr *Translator) translateComparison(args []*expr.Expr, op string) (sq.Sqlizer, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return nil, err
	}

	column, ok := tr.columns[field]
	if !ok {
		return nil, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return nil, err
	}

	return sq.Expr(fmt.Sprintf("%s %s ?", tr.quote(column), op), value), nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		// timestamp("...") literals
		if kind.CallExpr.Function == filtering.FunctionTimestamp && len(kind.CallExpr.Args) == 1 {
			return extractTimestampValue(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func extractTimestampValue(e *expr.Expr) (time.Time, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a constant string")
	}
	s, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a string")
	}

	t, err := time.Parse(time.RFC3339Nano, s.StringValue)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", s.StringValue)
	}
	return t.UTC(), nil
}
