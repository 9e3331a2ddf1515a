package record

import (
	"context"

	"github.com/quillsql/quill/engine"
	"github.com/quillsql/quill/query/builder"
	"github.com/quillsql/quill/result"
)

// Entity is implemented by domain types that embed a Record.
type Entity interface {
	Base() *Record
}

// Finder is the per-entity query surface: it binds a table, a primary
// key and an entity factory to the query builder's hydration hooks.
type Finder[T Entity] struct {
	eng     *engine.Engine
	table   string
	pk      string
	factory func(*engine.Engine) T
}

// NewFinder creates a finder for an entity type. The factory builds an
// empty entity bound to the engine; hydration fills it from a row.
func NewFinder[T Entity](eng *engine.Engine, table string, factory func(*engine.Engine) T) *Finder[T] {
	return &Finder[T]{eng: eng, table: table, pk: "id", factory: factory}
}

// WithPrimaryKey overrides the primary key column.
func (f *Finder[T]) WithPrimaryKey(pk string) *Finder[T] {
	f.pk = pk
	return f
}

func (f *Finder[T]) hydrator() result.Hydrator {
	return func(row result.Row) (interface{}, error) {
		e := f.factory(f.eng)
		e.Base().Hydrate(row)
		return e, nil
	}
}

// Query returns a builder pre-bound to the entity's table and hydrator.
func (f *Finder[T]) Query() *builder.Query {
	return builder.New(f.eng).Select().From(f.table).AsObject(f.hydrator())
}

// FindByID looks up one record by primary key. A missing row yields the
// zero value and no error.
func (f *Finder[T]) FindByID(ctx context.Context, id interface{}) (T, error) {
	var zero T
	v, err := f.Query().Where(f.pk, "=", id).One(ctx)
	if err != nil || v == nil {
		return zero, err
	}
	return v.(T), nil
}

// FindByIDOrFail looks up one record by primary key and fails with a
// NotFoundError when no row matches.
func (f *Finder[T]) FindByIDOrFail(ctx context.Context, id interface{}) (T, error) {
	e, err := f.FindByID(ctx, id)
	if err != nil {
		return e, err
	}
	var zero T
	if any(e) == any(zero) {
		return zero, &NotFoundError{Table: f.table, ID: id}
	}
	return e, nil
}

// One returns the first entity matching the configured query, or the
// zero value when nothing matched.
func (f *Finder[T]) One(ctx context.Context, q *builder.Query) (T, error) {
	var zero T
	v, err := q.One(ctx)
	if err != nil || v == nil {
		return zero, err
	}
	return v.(T), nil
}

// All materializes every entity matching the configured query.
func (f *Finder[T]) All(ctx context.Context, q *builder.Query) ([]T, error) {
	items, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = item.(T)
	}
	return out, nil
}

// Count counts the rows in the entity's table matching the query.
func (f *Finder[T]) Count(ctx context.Context) (int64, error) {
	return f.Query().Count(ctx)
}
