package ioc

import "context"

// Disposable is implemented by instances that hold resources. Singletons are
// closed when the container closes and scoped instances when their scope
// closes, in reverse creation order. Transient instances are never tracked.
//
// Example:
//
//	type Database struct {
//	    conn *sql.DB
//	}
//
//	func (d *Database) Close() error {
//	    return d.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is a Disposable that honors the context passed to
// Scope.CloseContext and Container.CloseContext.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}
