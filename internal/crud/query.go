package crud

import (
	"context"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/iancoleman/strcase"
	"go.einride.tech/aip/ordering"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/nest"
	"github.com/tordrt/scaffold/internal/schema"
	"github.com/tordrt/scaffold/internal/selection"
)

// Order sorts a list by one field.
type Order struct {
	Field string
	Desc  bool
}

// ParseOrder parses an AIP-132 order_by string such as "rank desc, title".
func ParseOrder(s string) ([]Order, error) {
	var ob ordering.OrderBy
	if err := ob.UnmarshalString(s); err != nil {
		return nil, fmt.Errorf("%w: order %q: %v", ErrInvalidQuery, s, err)
	}
	orders := make([]Order, 0, len(ob.Fields))
	for _, f := range ob.Fields {
		orders = append(orders, Order{Field: f.Path, Desc: f.Desc})
	}
	return orders, nil
}

// ListArgs are the arguments of List and Paginated.
type ListArgs struct {
	Limit  uint64
	Offset uint64

	// Order defaults to the primary key, ascending.
	Order []Order

	// Filter is free text matched with LIKE against every searchable field.
	Filter string

	// Where is an AIP-160 filter expression over scalar fields.
	Where string
}

// PageInfo describes a page of a Connection.
type PageInfo struct {
	// HasNextPage is true when the page came back full. It is an
	// approximation: a full last page also reports true.
	HasNextPage bool  `json:"hasNextPage"`
	TotalCount  int64 `json:"totalCount"`
}

// Connection is a page of nodes.
type Connection struct {
	Edges    []Node   `json:"edges"`
	PageInfo PageInfo `json:"pageInfo"`
}

type listField struct {
	field    *schema.Field
	children selection.Set
}

// projection is the column list and joins for one selection
type projection struct {
	columns []string
	joins   []string
	lists   []listField
	hidden  []string
}

func (c *Crud) addColumn(p *projection, alias, column, key string) {
	p.columns = append(p.columns, c.dialect.Column(alias, column)+" AS "+c.dialect.Quote(key))
}

// project maps a selection onto columns. Keys in required are selected even
// when the caller did not ask for them, and removed again by strip.
func (c *Crud) project(sel selection.Set, required ...string) (*projection, error) {
	if len(sel) == 0 {
		for _, f := range c.schema.Scalars() {
			sel = append(sel, selection.Field{Name: f.Key})
		}
	}

	p := &projection{}
	selected := make(map[string]bool)
	for _, s := range sel {
		f, ok := c.schema.Field(s.Name)
		if !ok {
			continue
		}

		switch f.Kind {
		case schema.Scalar:
			c.addColumn(p, baseAlias, f.ColumnName(), f.Key)
			selected[f.Key] = true
		case schema.Object:
			if err := c.projectObject(p, f, s.Children); err != nil {
				return nil, err
			}
			selected[f.Key] = true
		case schema.List:
			if _, err := c.sibling(f); err != nil {
				return nil, err
			}
			p.lists = append(p.lists, listField{field: f, children: s.Children})
		}
	}

	required = append(required, c.schema.PrimaryKeyField())
	for _, key := range required {
		if selected[key] {
			continue
		}
		col, ok := c.schema.ColumnFor(key)
		if !ok {
			col = strcase.ToSnake(key)
		}
		c.addColumn(p, baseAlias, col, key)
		p.hidden = append(p.hidden, key)
		selected[key] = true
	}

	return p, nil
}

// projectObject joins the target of a to-one relation and selects its
// columns under dotted aliases.
func (c *Crud) projectObject(p *projection, f *schema.Field, children selection.Set) error {
	target, err := c.sibling(f)
	if err != nil {
		return err
	}

	alias := "j_" + f.Key
	p.joins = append(p.joins, fmt.Sprintf("%s AS %s ON %s = %s",
		target.table(),
		c.dialect.Quote(alias),
		c.dialect.Column(alias, target.schema.PrimaryKeyColumn()),
		c.dialect.Column(baseAlias, f.ColumnName()),
	))

	if len(children) == 0 {
		for _, cf := range target.schema.Scalars() {
			children = append(children, selection.Field{Name: cf.Key})
		}
	}
	for _, cs := range children {
		cf, ok := target.schema.Field(cs.Name)
		if !ok || cf.Kind != schema.Scalar {
			continue
		}
		c.addColumn(p, alias, cf.ColumnName(), nest.Alias(f.Key, cf.Key))
	}
	return nil
}

func (p *projection) strip(nodes []Node) {
	for _, n := range nodes {
		for _, key := range p.hidden {
			delete(n, key)
		}
	}
}

func (c *Crud) selectBuilder(p *projection) sq.SelectBuilder {
	b := c.dialect.Builder().Select(p.columns...).From(c.from())
	for _, j := range p.joins {
		b = b.LeftJoin(j)
	}
	return b
}

// hydrate nests joined columns and loads list relations.
func (c *Crud) hydrate(ctx context.Context, rows []db.Row, p *projection) ([]Node, error) {
	nodes := nest.Rows(rows)
	if len(nodes) == 0 {
		return []Node{}, nil
	}

	pk := c.schema.PrimaryKeyField()
	for _, lf := range p.lists {
		target, err := c.sibling(lf.field)
		if err != nil {
			return nil, err
		}

		ids := make([]any, len(nodes))
		for i, n := range nodes {
			ids[i] = n[pk]
		}

		groups, err := target.getByIDs(ctx, c.schema.ForeignKey(), ids, lf.children)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s.%s: %w", c.schema.Name, lf.field.Key, err)
		}
		for i, n := range nodes {
			n[lf.field.Key] = groups[i]
		}
	}
	return nodes, nil
}

// conditions builds the WHERE clause shared by list and count queries.
func (c *Crud) conditions(args ListArgs) (sq.And, error) {
	var conds sq.And

	if args.Filter != "" {
		var search sq.Or
		for _, col := range c.schema.SearchableColumns() {
			search = append(search, sq.Expr(
				fmt.Sprintf("%s %s ?", c.dialect.Column(baseAlias, col), c.dialect.LikeOp),
				"%"+args.Filter+"%",
			))
		}
		if len(search) > 0 {
			conds = append(conds, search)
		}
	}

	where, err := c.filter.Parse(args.Where)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if where != nil {
		conds = append(conds, where)
	}

	return conds, nil
}

func (c *Crud) orderBy(orders []Order) ([]string, error) {
	if len(orders) == 0 {
		return []string{c.pkColumn() + " ASC"}, nil
	}

	clauses := make([]string, 0, len(orders))
	for _, o := range orders {
		f, ok := c.schema.Field(o.Field)
		if !ok || f.Kind != schema.Scalar {
			return nil, fmt.Errorf("%w: cannot order %s by %q", ErrInvalidQuery, c.schema.Name, o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		clauses = append(clauses, c.dialect.Column(baseAlias, f.ColumnName())+" "+dir)
	}
	return clauses, nil
}

// List returns the nodes matching args, projected onto sel.
func (c *Crud) List(ctx context.Context, args ListArgs, sel selection.Set) ([]Node, error) {
	ctx, span := c.startSpan(ctx, "list")
	defer span.End()

	return c.list(ctx, args, sel)
}

func (c *Crud) list(ctx context.Context, args ListArgs, sel selection.Set) ([]Node, error) {
	p, err := c.project(sel)
	if err != nil {
		return nil, err
	}

	conds, err := c.conditions(args)
	if err != nil {
		return nil, err
	}

	order, err := c.orderBy(args.Order)
	if err != nil {
		return nil, err
	}

	b := c.selectBuilder(p).OrderBy(order...)
	if len(conds) > 0 {
		b = b.Where(conds)
	}
	if args.Limit > 0 {
		b = b.Limit(args.Limit)
	}
	if args.Offset > 0 {
		b = b.Offset(args.Offset)
	}

	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, err
	}

	nodes, err := c.hydrate(ctx, rows, p)
	if err != nil {
		return nil, err
	}
	p.strip(nodes)
	return nodes, nil
}

// Paginated returns one page and the total count. The list and count queries
// run concurrently.
func (c *Crud) Paginated(ctx context.Context, args ListArgs, sel selection.Set) (*Connection, error) {
	ctx, span := c.startSpan(ctx, "paginated")
	defer span.End()

	if args.Limit == 0 {
		args.Limit = c.pageSize
	}

	var (
		edges []Node
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		edges, err = c.list(gctx, args, sel)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = c.count(gctx, args)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Connection{
		Edges: edges,
		PageInfo: PageInfo{
			HasNextPage: uint64(len(edges)) == args.Limit,
			TotalCount:  total,
		},
	}, nil
}

func (c *Crud) count(ctx context.Context, args ListArgs) (int64, error) {
	conds, err := c.conditions(args)
	if err != nil {
		return 0, err
	}

	b := c.dialect.Builder().Select("COUNT(*) AS total").From(c.from())
	if len(conds) > 0 {
		b = b.Where(conds)
	}

	rows, err := c.query(ctx, b)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return toInt64(rows[0]["total"])
}

// Get returns the node with the given primary key.
func (c *Crud) Get(ctx context.Context, id any, sel selection.Set) (Node, error) {
	ctx, span := c.startSpan(ctx, "get")
	defer span.End()

	return c.get(ctx, id, sel)
}

func (c *Crud) get(ctx context.Context, id any, sel selection.Set) (Node, error) {
	p, err := c.project(sel)
	if err != nil {
		return nil, err
	}

	b := c.selectBuilder(p).Where(sq.Eq{c.pkColumn(): id}).Limit(1)
	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %v: %w", c.schema.Name, id, ErrNotFound)
	}

	nodes, err := c.hydrate(ctx, rows, p)
	if err != nil {
		return nil, err
	}
	p.strip(nodes)
	return nodes[0], nil
}

// GetByIDs loads the nodes whose key field matches any of ids in one query
// and groups them per id. The result has one entry per input id, in input
// order; ids without rows get an empty group. Rows within a group follow
// the sort key, then the primary key.
func (c *Crud) GetByIDs(ctx context.Context, key string, ids []any, sel selection.Set) ([][]Node, error) {
	ctx, span := c.startSpan(ctx, "getByIds")
	defer span.End()

	return c.getByIDs(ctx, key, ids, sel)
}

func (c *Crud) getByIDs(ctx context.Context, key string, ids []any, sel selection.Set) ([][]Node, error) {
	out := make([][]Node, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	col, ok := c.schema.ColumnFor(key)
	if !ok {
		col = strcase.ToSnake(key)
	}

	p, err := c.project(sel, key)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]any, 0, len(ids))
	for _, id := range ids {
		if k := keyOf(id); !seen[k] {
			seen[k] = true
			unique = append(unique, id)
		}
	}

	order := []string{}
	if f, ok := c.schema.SortKey(); ok {
		order = append(order, c.dialect.Column(baseAlias, f.ColumnName())+" ASC")
	}
	order = append(order, c.pkColumn()+" ASC")

	b := c.selectBuilder(p).
		Where(sq.Eq{c.dialect.Column(baseAlias, col): unique}).
		OrderBy(order...)

	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, err
	}

	nodes, err := c.hydrate(ctx, rows, p)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]Node)
	for _, n := range nodes {
		k := keyOf(n[key])
		groups[k] = append(groups[k], n)
	}
	p.strip(nodes)

	for i, id := range ids {
		g := groups[keyOf(id)]
		if g == nil {
			g = []Node{}
		}
		out[i] = g
	}
	return out, nil
}

// keyOf normalizes ids so that 7, int64(7) and "7" group together.
func keyOf(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case []byte:
		return string(id)
	default:
		return fmt.Sprint(id)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
