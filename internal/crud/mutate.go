package crud

import (
	"context"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/schema"
	"github.com/tordrt/scaffold/internal/selection"
)

// DefaultSortColumn is the rank column swapped by Sort when the schema does
// not flag a sort key.
const DefaultSortColumn = "rank"

// NestedInput is the write set for a list relation. On Create only Create is
// allowed. A plain list of objects is read as Create.
type NestedInput struct {
	Create []Input `json:"create,omitempty"`
	Update []Input `json:"update,omitempty"`
	Delete []any   `json:"delete,omitempty"`
}

// SortArgs names the two rows whose ranks are swapped.
type SortArgs struct {
	ID       any `json:"id"`
	TargetID any `json:"targetId"`
}

type nestedWrite struct {
	field *schema.Field
	value any
}

// split separates an input into base columns and list relation writes.
func (c *Crud) split(input Input) (map[string]any, []nestedWrite, []FieldError) {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	base := make(map[string]any, len(input))
	var nested []nestedWrite
	var errs []FieldError
	for _, key := range keys {
		v := input[key]
		f, ok := c.schema.Field(key)
		switch {
		case ok && f.Kind == schema.List:
			nested = append(nested, nestedWrite{field: f, value: v})
		case ok && f.Kind == schema.Object:
			base[f.ColumnName()] = c.refID(f, v)
		default:
			col, ok := c.schema.ColumnFor(key)
			if !ok {
				errs = append(errs, FieldError{Path: key, Message: "unknown field"})
				continue
			}
			base[col] = v
		}
	}
	return base, nested, errs
}

// refID accepts either the target id or an object carrying it.
func (c *Crud) refID(f *schema.Field, v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	return m[f.Ref.PrimaryKeyField()]
}

func (c *Crud) quotedColumns(values map[string]any) ([]string, []any) {
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = values[col]
		cols[i] = c.dialect.Quote(col)
	}
	return cols, vals
}

// insert writes the base row and returns its primary key.
func (c *Crud) insert(ctx context.Context, base map[string]any) (any, error) {
	pk := c.schema.PrimaryKeyColumn()
	if c.schema.GenerateID {
		if _, ok := base[pk]; !ok {
			base[pk] = uuid.NewString()
		}
	}

	var stmt sq.Sqlizer
	if len(base) == 0 {
		values := " DEFAULT VALUES"
		if !c.dialect.Returning {
			values = " () VALUES ()"
		}
		query := "INSERT INTO " + c.table() + values
		if c.dialect.Returning {
			query += " RETURNING " + c.dialect.Quote(pk)
		}
		stmt = sq.Expr(query)
	} else {
		cols, vals := c.quotedColumns(base)
		ib := c.dialect.Builder().Insert(c.table()).Columns(cols...).Values(vals...)
		if c.dialect.Returning {
			ib = ib.Suffix("RETURNING " + c.dialect.Quote(pk))
		}
		stmt = ib
	}

	if c.dialect.Returning {
		rows, err := c.query(ctx, stmt)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("insert into %s returned no id", c.schema.Table)
		}
		return rows[0][pk], nil
	}

	if id, ok := base[pk]; ok {
		if _, err := c.exec(ctx, stmt); err != nil {
			return nil, err
		}
		return id, nil
	}

	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build statement: %w", err)
	}
	c.logger.Debug("insert", zap.String("sql", query), zap.Int("args", len(args)))
	id, err := c.db.Insert(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", c.schema.Table, err)
	}
	return id, nil
}

// createNode inserts input and its nested children. ok reports whether the
// base row was written; errs may still carry child failures.
func (c *Crud) createNode(ctx context.Context, input Input) (id any, ok bool, errs []FieldError) {
	if c.validate != nil {
		if errs := c.validate(ctx, OpCreate, input); len(errs) > 0 {
			return nil, false, errs
		}
	}

	base, nested, errs := c.split(input)
	if len(errs) > 0 {
		return nil, false, errs
	}

	id, err := c.insert(ctx, base)
	if err != nil {
		return nil, false, []FieldError{{Message: err.Error()}}
	}

	for _, nw := range nested {
		key := nw.field.Key
		ni, err := decodeNested(nw.value)
		if err != nil {
			errs = append(errs, FieldError{Path: key, Message: err.Error()})
			continue
		}
		if len(ni.Update) > 0 || len(ni.Delete) > 0 {
			errs = append(errs, FieldError{Path: key, Message: "only create is allowed on a new node"})
			continue
		}

		child, err := c.sibling(nw.field)
		if err != nil {
			errs = append(errs, FieldError{Path: key, Message: err.Error()})
			continue
		}
		for i, entry := range ni.Create {
			_, _, childErrs := child.createNode(ctx, withValue(entry, c.schema.ForeignKey(), id))
			errs = append(errs, prefixErrors(fmt.Sprintf("%s.%d", key, i), childErrs)...)
		}
	}

	return id, true, errs
}

// Create inserts the base row, then each nested child with the parent id
// injected under the foreign key convention. Children are written one after
// another and their failures do not undo the parent.
func (c *Crud) Create(ctx context.Context, input Input, sel selection.Set) Payload {
	ctx, span := c.startSpan(ctx, "create")

	id, ok, errs := c.createNode(ctx, input)
	if !ok {
		endSpan(span, errs)
		return Payload{Errors: errs}
	}

	node, err := c.get(ctx, id, sel)
	if err != nil {
		errs = append(errs, FieldError{Message: err.Error()})
	}
	endSpan(span, errs)
	return Payload{Node: node, Errors: errs}
}

// updateNode writes input to the row with the given id. scope further
// restricts the row, e.g. to children of one parent.
func (c *Crud) updateNode(ctx context.Context, id any, input Input, scope sq.Sqlizer) (bool, []FieldError) {
	if c.validate != nil {
		if errs := c.validate(ctx, OpUpdate, input); len(errs) > 0 {
			return false, errs
		}
	}

	base, nested, errs := c.split(input)
	if len(errs) > 0 {
		return false, errs
	}

	pk := c.schema.PrimaryKeyColumn()
	delete(base, pk)

	if len(base) > 0 {
		cols, vals := c.quotedColumns(base)
		ub := c.dialect.Builder().Update(c.table())
		for i, col := range cols {
			ub = ub.Set(col, vals[i])
		}
		ub = ub.Where(sq.Eq{c.dialect.Quote(pk): id})
		if scope != nil {
			ub = ub.Where(scope)
		}

		n, err := c.exec(ctx, ub)
		if err != nil {
			return false, []FieldError{{Message: err.Error()}}
		}
		if n == 0 {
			return false, []FieldError{{Message: ErrNotFound.Error()}}
		}
	} else {
		found, err := c.exists(ctx, id, scope)
		if err != nil {
			return false, []FieldError{{Message: err.Error()}}
		}
		if !found {
			return false, []FieldError{{Message: ErrNotFound.Error()}}
		}
	}

	for _, nw := range nested {
		errs = append(errs, c.updateNested(ctx, id, nw)...)
	}
	return true, errs
}

// exists reports whether the row with the given id matches scope. Nested
// writes must not run against a missing parent.
func (c *Crud) exists(ctx context.Context, id any, scope sq.Sqlizer) (bool, error) {
	b := c.dialect.Builder().Select("1").
		From(c.table()).
		Where(sq.Eq{c.dialect.Quote(c.schema.PrimaryKeyColumn()): id}).
		Limit(1)
	if scope != nil {
		b = b.Where(scope)
	}

	rows, err := c.query(ctx, b)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// updateNested dispatches the create, update and delete lists of one list
// relation to the child, scoped to children of parentID.
func (c *Crud) updateNested(ctx context.Context, parentID any, nw nestedWrite) []FieldError {
	key := nw.field.Key
	ni, err := decodeNested(nw.value)
	if err != nil {
		return []FieldError{{Path: key, Message: err.Error()}}
	}

	child, err := c.sibling(nw.field)
	if err != nil {
		return []FieldError{{Path: key, Message: err.Error()}}
	}

	fk := c.schema.ForeignKey()
	fkCol, ok := child.schema.ColumnFor(fk)
	if !ok {
		fkCol = c.schema.ForeignKeyColumn()
	}
	scope := sq.Eq{child.dialect.Quote(fkCol): parentID}

	var errs []FieldError
	for i, entry := range ni.Create {
		_, _, childErrs := child.createNode(ctx, withValue(entry, fk, parentID))
		errs = append(errs, prefixErrors(fmt.Sprintf("%s.create.%d", key, i), childErrs)...)
	}

	childPK := child.schema.PrimaryKeyField()
	for i, entry := range ni.Update {
		path := fmt.Sprintf("%s.update.%d", key, i)
		childID, ok := entry[childPK]
		if !ok {
			errs = append(errs, FieldError{Path: path, Message: "missing " + childPK})
			continue
		}
		rest := make(Input, len(entry))
		for k, v := range entry {
			if k != childPK {
				rest[k] = v
			}
		}
		_, childErrs := child.updateNode(ctx, childID, rest, scope)
		errs = append(errs, prefixErrors(path, childErrs)...)
	}

	if len(ni.Delete) > 0 {
		n, err := child.deleteRows(ctx, ni.Delete, scope)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Path: key + ".delete", Message: err.Error()})
		case n == 0:
			errs = append(errs, FieldError{Path: key + ".delete", Message: ErrNoRowsAffected.Error()})
		}
	}
	return errs
}

// Update writes the base row, then dispatches nested create, update and
// delete lists to the child entities.
func (c *Crud) Update(ctx context.Context, id any, input Input, sel selection.Set) Payload {
	ctx, span := c.startSpan(ctx, "update")

	ok, errs := c.updateNode(ctx, id, input, nil)
	if !ok {
		endSpan(span, errs)
		return Payload{Errors: errs}
	}

	node, err := c.get(ctx, id, sel)
	if err != nil {
		errs = append(errs, FieldError{Message: err.Error()})
	}
	endSpan(span, errs)
	return Payload{Node: node, Errors: errs}
}

func (c *Crud) deleteRows(ctx context.Context, ids []any, scope sq.Sqlizer) (int64, error) {
	b := c.dialect.Builder().Delete(c.table()).
		Where(sq.Eq{c.dialect.Quote(c.schema.PrimaryKeyColumn()): ids})
	if scope != nil {
		b = b.Where(scope)
	}
	return c.exec(ctx, b)
}

// Delete removes one row and returns it as it was before deletion.
func (c *Crud) Delete(ctx context.Context, id any, sel selection.Set) Payload {
	ctx, span := c.startSpan(ctx, "delete")

	node, err := c.get(ctx, id, sel)
	if err != nil {
		p := fail(err)
		endSpan(span, p.Errors)
		return p
	}

	n, err := c.deleteRows(ctx, []any{id}, nil)
	if err == nil && n == 0 {
		err = ErrNoRowsAffected
	}
	if err != nil {
		p := fail(err)
		endSpan(span, p.Errors)
		return p
	}

	span.End()
	return Payload{Node: node}
}

// DeleteMany removes every row in ids. The node carries the deleted count.
func (c *Crud) DeleteMany(ctx context.Context, ids []any) Payload {
	ctx, span := c.startSpan(ctx, "deleteMany")

	n, err := c.deleteRows(ctx, ids, nil)
	if err == nil && n == 0 {
		err = ErrNoRowsAffected
	}
	if err != nil {
		p := fail(err)
		endSpan(span, p.Errors)
		return p
	}

	span.End()
	return Payload{Node: Node{"count": n}}
}

// UpdateMany is not implemented and always reports so in the payload.
func (c *Crud) UpdateMany(ctx context.Context, ids []any, input Input) Payload {
	c.logger.Warn("updateMany called", zap.Int("ids", len(ids)))
	return fail(ErrNotImplemented)
}

func (c *Crud) sortColumn() string {
	if f, ok := c.schema.SortKey(); ok {
		return f.ColumnName()
	}
	return DefaultSortColumn
}

// Sort swaps the rank of two rows in one statement and returns the moved row.
func (c *Crud) Sort(ctx context.Context, args SortArgs, sel selection.Set) Payload {
	ctx, span := c.startSpan(ctx, "sort")

	if keyOf(args.ID) == keyOf(args.TargetID) {
		p := fail(ErrSameRow)
		endSpan(span, p.Errors)
		return p
	}

	n, err := c.swapRanks(ctx, args)
	if err == nil && n == 0 {
		err = ErrNoRowsAffected
	}
	if err != nil {
		p := fail(err)
		endSpan(span, p.Errors)
		return p
	}

	node, err := c.get(ctx, args.ID, sel)
	if err != nil {
		p := fail(err)
		endSpan(span, p.Errors)
		return p
	}
	span.End()
	return Payload{Node: node}
}

func (c *Crud) swapRanks(ctx context.Context, args SortArgs) (int64, error) {
	col := c.dialect.Quote(c.sortColumn())
	pk := c.dialect.Quote(c.schema.PrimaryKeyColumn())

	if c.dialect.Name == db.Postgres.Name {
		// Postgres can read the other row in the same statement.
		query := fmt.Sprintf(
			"UPDATE %[1]s AS a SET %[2]s = b.%[2]s FROM %[1]s AS b WHERE (a.%[3]s = $1 AND b.%[3]s = $2) OR (a.%[3]s = $2 AND b.%[3]s = $1)",
			c.table(), col, pk,
		)
		c.logger.Debug("exec", zap.String("sql", query))
		n, err := c.db.Exec(ctx, query, args.ID, args.TargetID)
		if err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", c.schema.Table, err)
		}
		return n, nil
	}

	ids := []any{args.ID, args.TargetID}
	rows, err := c.query(ctx, c.dialect.Builder().
		Select(pk+" AS "+c.dialect.Quote("id"), col+" AS "+c.dialect.Quote("rank")).
		From(c.table()).
		Where(sq.Eq{pk: ids}))
	if err != nil {
		return 0, err
	}
	if len(rows) < 2 {
		return 0, nil
	}

	ranks := make(map[string]any, 2)
	for _, r := range rows {
		ranks[keyOf(r["id"])] = r["rank"]
	}

	swap := sq.Case(pk).
		When(sq.Expr("?", args.ID), sq.Expr("?", ranks[keyOf(args.TargetID)])).
		When(sq.Expr("?", args.TargetID), sq.Expr("?", ranks[keyOf(args.ID)]))

	return c.exec(ctx, c.dialect.Builder().
		Update(c.table()).
		Set(col, swap).
		Where(sq.Eq{pk: ids}))
}

// decodeNested reads the value of a list relation in an input.
func decodeNested(v any) (NestedInput, error) {
	switch n := v.(type) {
	case NestedInput:
		return n, nil
	case *NestedInput:
		if n == nil {
			return NestedInput{}, nil
		}
		return *n, nil
	case nil:
		return NestedInput{}, nil
	case []map[string]any:
		return NestedInput{Create: n}, nil
	case []any:
		entries, err := toInputs(n)
		if err != nil {
			return NestedInput{}, err
		}
		return NestedInput{Create: entries}, nil
	case map[string]any:
		var ni NestedInput
		for k, val := range n {
			var err error
			switch k {
			case "create":
				ni.Create, err = toInputList(val)
			case "update":
				ni.Update, err = toInputList(val)
			case "delete":
				ni.Delete, err = toIDList(val)
			default:
				err = fmt.Errorf("unexpected key %q", k)
			}
			if err != nil {
				return NestedInput{}, err
			}
		}
		return ni, nil
	default:
		return NestedInput{}, fmt.Errorf("expected a list or an object with create, update and delete, got %T", v)
	}
}

func toInputList(v any) ([]Input, error) {
	switch n := v.(type) {
	case []map[string]any:
		return n, nil
	case []any:
		return toInputs(n)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list of objects, got %T", v)
	}
}

func toInputs(list []any) ([]Input, error) {
	out := make([]Input, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected an object, got %T", i, item)
		}
		out[i] = m
	}
	return out, nil
}

func toIDList(v any) ([]any, error) {
	switch n := v.(type) {
	case []any:
		return n, nil
	case []string:
		out := make([]any, len(n))
		for i, s := range n {
			out[i] = s
		}
		return out, nil
	case []int64:
		out := make([]any, len(n))
		for i, id := range n {
			out[i] = id
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list of ids, got %T", v)
	}
}

// withValue returns a copy of in with key set.
func withValue(in Input, key string, v any) Input {
	out := make(Input, len(in)+1)
	for k, val := range in {
		out[k] = val
	}
	out[key] = v
	return out
}
