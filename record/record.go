// Package record implements an active-record mapper over the query
// builder: per-field change tracking, lazy JSON (de)serialization of
// designated fields, and the create/update/delete lifecycle.
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/quillsql/quill/engine"
	"github.com/quillsql/quill/query/builder"
	"github.com/quillsql/quill/result"
)

// State is the lifecycle state of a record. The explicit three-state
// tag keeps illegal transitions out of the type: change tracking only
// happens in Persisted, and bulk hydration happens in Constructing.
type State int

// Record lifecycle states.
const (
	// Constructing: being filled from a raw row; writes bypass change
	// tracking.
	Constructing State = iota
	// NewRecord: built in memory, not yet persisted.
	NewRecord
	// Persisted: loaded from or written to storage; writes are tracked.
	Persisted
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case Constructing:
		return "constructing"
	case Persisted:
		return "persisted"
	default:
		return "new"
	}
}

// Record is the active-record base embedded by entity types. It holds
// the attribute mapping, the changed-field set and the serialize cache.
// Two records mapped from the same row are independent copies; the last
// update wins.
type Record struct {
	eng        *engine.Engine
	table      string
	pk         string
	owner      interface{}
	attrs      map[string]interface{}
	changed    map[string]bool
	serialized []string
	cache      map[string]interface{}
	state      State
}

// New creates an empty, unsaved record bound to a table. The primary
// key defaults to "id".
func New(eng *engine.Engine, table string) *Record {
	return &Record{
		eng:     eng,
		table:   table,
		pk:      "id",
		attrs:   make(map[string]interface{}),
		changed: make(map[string]bool),
		cache:   make(map[string]interface{}),
		state:   NewRecord,
	}
}

// WithPrimaryKey overrides the primary key column.
func (r *Record) WithPrimaryKey(pk string) *Record {
	r.pk = pk
	return r
}

// WithSerialized designates fields whose stored form is a JSON string
// but whose in-memory form is a decoded structure.
func (r *Record) WithSerialized(fields ...string) *Record {
	r.serialized = append(r.serialized, fields...)
	return r
}

// WithOwner attaches the entity that embeds this record, making its
// lifecycle hooks visible.
func (r *Record) WithOwner(owner interface{}) *Record {
	r.owner = owner
	return r
}

// State returns the lifecycle state.
func (r *Record) State() State {
	return r.state
}

// Table returns the backing table name.
func (r *Record) Table() string {
	return r.table
}

// Loaded reports whether the record is persisted.
func (r *Record) Loaded() bool {
	return r.state == Persisted
}

// Hydrate fills the record from a raw result row and marks it
// persisted. The initial assignment bypasses change tracking.
func (r *Record) Hydrate(row result.Row) {
	r.state = Constructing
	for k, v := range row {
		r.attrs[k] = v
	}
	r.changed = make(map[string]bool)
	r.cache = make(map[string]interface{})
	r.state = Persisted
}

func (r *Record) isSerialized(field string) bool {
	for _, f := range r.serialized {
		if f == field {
			return true
		}
	}
	return false
}

// Set writes a field. Serialize-designated fields are staged in the
// cache and encoded only when the record is saved. Other fields are
// marked changed only when the record is persisted and the value
// actually differs.
func (r *Record) Set(field string, value interface{}) {
	if r.isSerialized(field) {
		r.cache[field] = value
		return
	}
	switch r.state {
	case Persisted:
		if !reflect.DeepEqual(r.attrs[field], value) {
			r.attrs[field] = value
			r.changed[field] = true
		}
	default:
		r.attrs[field] = value
	}
}

// Get reads a field. The first read of a serialize-designated field
// decodes the stored string once and caches the decoded structure.
func (r *Record) Get(field string) (interface{}, error) {
	if r.isSerialized(field) {
		if v, ok := r.cache[field]; ok {
			return v, nil
		}
		raw, ok := r.attrs[field]
		if !ok || raw == nil {
			return nil, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, &InvariantError{
				Field:  field,
				Reason: fmt.Sprintf("serialized value is %T, want string", raw),
			}
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, &InvariantError{Field: field, Reason: "invalid JSON: " + err.Error()}
		}
		r.cache[field] = decoded
		return decoded, nil
	}
	v, ok := r.attrs[field]
	if !ok {
		return nil, &result.FieldError{Field: field}
	}
	return v, nil
}

// GetString reads a field as a string, best effort.
func (r *Record) GetString(field string) string {
	v, err := r.Get(field)
	if err != nil || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// GetInt64 reads a field as an int64, best effort.
func (r *Record) GetInt64(field string) int64 {
	v, err := r.Get(field)
	if err != nil || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}

// IsChanged reports whether a field was mutated since load.
func (r *Record) IsChanged(field string) bool {
	return r.changed[field]
}

// Changed returns the names of the mutated fields, sorted.
func (r *Record) Changed() []string {
	fields := make([]string, 0, len(r.changed))
	for f := range r.changed {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ID returns the primary key value.
func (r *Record) ID() interface{} {
	return r.attrs[r.pk]
}

// Attributes returns a copy of the raw attribute mapping.
func (r *Record) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

// ToRow exports the record as a plain row. It implements the
// result.Exporter contract used by cursor materialization.
func (r *Record) ToRow() result.Row {
	return result.Row(r.Attributes())
}

// flushSerialized encodes pending serialize-cache entries into their
// attribute slots. A value that round-trips to the identical stored
// string does not dirty the field.
func (r *Record) flushSerialized() error {
	for _, field := range r.serialized {
		pending, ok := r.cache[field]
		if !ok {
			continue
		}
		encoded, err := encodeJSON(pending)
		if err != nil {
			return &InvariantError{Field: field, Reason: "cannot encode: " + err.Error()}
		}
		current, isString := r.attrs[field].(string)
		if isString && current == encoded {
			continue
		}
		r.attrs[field] = encoded
		if r.state == Persisted {
			r.changed[field] = true
		}
	}
	return nil
}

// encodeJSON produces the canonical stored form: JSON with non-ASCII
// preserved and HTML characters unescaped.
func encodeJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Create inserts the record. The before-create hook can cancel the
// insert, in which case Create reports a zero identifier and no error.
// On success the record becomes persisted and the engine-issued
// identifier is stored under the primary key.
func (r *Record) Create(ctx context.Context) (int64, error) {
	if r.state == Persisted {
		return 0, ErrAlreadyPersisted
	}
	if h, ok := r.owner.(BeforeCreateHook); ok && !h.BeforeCreate() {
		return 0, nil
	}
	if err := r.flushSerialized(); err != nil {
		return 0, err
	}

	id, err := builder.New(r.eng).Insert(r.table, r.attrs).Execute(ctx)
	if err != nil {
		return 0, err
	}

	r.state = Persisted
	r.attrs[r.pk] = id
	r.changed = make(map[string]bool)

	if h, ok := r.owner.(AfterCreateHook); ok {
		h.AfterCreate()
	}
	if h, ok := r.owner.(AfterChangeHook); ok {
		h.AfterChange()
	}
	return id, nil
}

// Update persists exactly the changed fields, keyed by primary key.
// With no pending changes it issues no SQL and reports zero affected
// rows. The before-update hook can cancel the update the same way.
func (r *Record) Update(ctx context.Context) (int64, error) {
	if r.state != Persisted {
		return 0, ErrNotLoaded
	}
	// Flush first so a change made only inside a cached serialized
	// value is still detected.
	if err := r.flushSerialized(); err != nil {
		return 0, err
	}
	if len(r.changed) == 0 {
		return 0, nil
	}
	if h, ok := r.owner.(BeforeUpdateHook); ok && !h.BeforeUpdate() {
		return 0, nil
	}

	set := make(map[string]interface{}, len(r.changed))
	for f := range r.changed {
		set[f] = r.attrs[f]
	}
	affected, err := builder.New(r.eng).
		Update(r.table).
		Set(set).
		Where(r.pk, "=", r.attrs[r.pk]).
		Execute(ctx)
	if err != nil {
		return 0, err
	}

	r.changed = make(map[string]bool)
	if h, ok := r.owner.(AfterUpdateHook); ok {
		h.AfterUpdate()
	}
	if h, ok := r.owner.(AfterChangeHook); ok {
		h.AfterChange()
	}
	return affected, nil
}

// Delete removes the backing row. The record becomes a detached handle:
// its attributes stay readable but it can no longer be updated without
// being re-created.
func (r *Record) Delete(ctx context.Context) error {
	if r.state != Persisted {
		return ErrNotLoaded
	}
	_, err := builder.New(r.eng).
		Delete(r.table).
		Where(r.pk, "=", r.attrs[r.pk]).
		Execute(ctx)
	if err != nil {
		return err
	}
	r.state = NewRecord
	if h, ok := r.owner.(AfterDeleteHook); ok {
		h.AfterDelete()
	}
	return nil
}
