// Package crud maps list/get/create/update/delete requests carrying a
// GraphQL-style field selection onto SQL against a single table.
//
// Each Crud owns one schema. Relations are resolved by the sibling Crud
// registered for the target schema:
//
//   - an Object field becomes a LEFT JOIN whose columns come back under dotted
//     aliases and are reassembled into a nested object;
//   - a List field is loaded in one batch per request with the child's
//     GetByIDs, keyed by the parent foreign key convention (todoListId).
//
// Mutations never return a Go error. They return a Payload carrying either the
// node or the accumulated field errors. Nested writes run one after another
// and are not wrapped in a transaction: a failed child leaves the parent and
// earlier siblings in place and is reported in Payload.Errors.
package crud

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/filter"
	"github.com/tordrt/scaffold/internal/schema"
)

// DefaultPageSize is used by Paginated when no limit is given.
const DefaultPageSize = 20

// baseAlias is the table alias of the entity's own table in every query.
const baseAlias = "t0"

// Node is one result object keyed by field key.
type Node = map[string]any

// Input is a mutation payload keyed by field key.
type Input = map[string]any

// Op names the mutation being validated.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// Validator inspects a mutation input before it is written. Returned errors
// abort the mutation and are reported in the payload.
type Validator func(ctx context.Context, op Op, input Input) []FieldError

// Option configures a Crud.
type Option func(*Crud)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Crud) { c.logger = l }
}

// WithValidator installs an input validator.
func WithValidator(v Validator) Option {
	return func(c *Crud) { c.validate = v }
}

// WithPageSize sets the default page size for Paginated.
func WithPageSize(n uint64) Option {
	return func(c *Crud) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Crud is the data access object for one schema.
type Crud struct {
	schema   *schema.Schema
	db       db.Querier
	dialect  db.Dialect
	registry *Registry
	filter   *filter.Translator
	logger   *zap.Logger
	tracer   trace.Tracer
	validate Validator
	pageSize uint64
}

// New builds a Crud for s. The schema must not be modified afterwards.
func New(s *schema.Schema, q db.Querier, opts ...Option) (*Crud, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c := &Crud{
		schema:   s,
		db:       q,
		dialect:  q.Dialect(),
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/tordrt/scaffold/internal/crud"),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("entity", s.Name))

	tr, err := filter.NewTranslator(s, func(col string) string {
		return c.dialect.Column(baseAlias, col)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build filter for %s: %w", s.Name, err)
	}
	c.filter = tr

	return c, nil
}

// Schema returns the schema this Crud serves.
func (c *Crud) Schema() *schema.Schema {
	return c.schema
}

func (c *Crud) table() string {
	return c.dialect.TableName(c.schema.Prefix, c.schema.Table)
}

func (c *Crud) from() string {
	return c.table() + " AS " + c.dialect.Quote(baseAlias)
}

func (c *Crud) pkColumn() string {
	return c.dialect.Column(baseAlias, c.schema.PrimaryKeyColumn())
}

// sibling returns the Crud owning the target of a relation field.
func (c *Crud) sibling(f *schema.Field) (*Crud, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("entity %s is not registered", c.schema.Name)
	}
	target, ok := c.registry.Lookup(f.Ref.Name)
	if !ok {
		return nil, fmt.Errorf("relation %s targets unregistered entity %s", f.Key, f.Ref.Name)
	}
	return target, nil
}

func (c *Crud) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, c.schema.Name+"."+op, trace.WithAttributes(
		attribute.String("crud.entity", c.schema.Name),
		attribute.String("crud.table", c.schema.Table),
	))
}

func endSpan(span trace.Span, errs []FieldError) {
	if len(errs) > 0 {
		span.SetStatus(codes.Error, errs[0].Error())
	}
	span.End()
}

// query runs a built statement and returns its rows
func (c *Crud) query(ctx context.Context, b sq.Sqlizer) ([]db.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	c.logger.Debug("query", zap.String("sql", query), zap.Int("args", len(args)))

	rows, err := c.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.schema.Table, err)
	}
	return rows, nil
}

// exec runs a built statement and returns the affected row count
func (c *Crud) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}
	c.logger.Debug("exec", zap.String("sql", query), zap.Int("args", len(args)))

	n, err := c.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", c.schema.Table, err)
	}
	return n, nil
}
