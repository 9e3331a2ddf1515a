package record

// Lifecycle hooks are optional interfaces implemented by the entity
// that owns a Record. The before hooks can reject the operation by
// returning false; rejection is a normal no-op, not an error.

// BeforeCreateHook runs before a create. Returning false cancels the
// insert without touching storage.
type BeforeCreateHook interface {
	BeforeCreate() bool
}

// AfterCreateHook runs after a successful create.
type AfterCreateHook interface {
	AfterCreate()
}

// BeforeUpdateHook runs before an update with pending changes.
// Returning false cancels the update.
type BeforeUpdateHook interface {
	BeforeUpdate() bool
}

// AfterUpdateHook runs after a successful update.
type AfterUpdateHook interface {
	AfterUpdate()
}

// AfterDeleteHook runs after a successful delete.
type AfterDeleteHook interface {
	AfterDelete()
}

// AfterChangeHook runs after any successful create or update.
type AfterChangeHook interface {
	AfterChange()
}
