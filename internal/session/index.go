package session

import "context"

// Index mirrors session summaries into an externally queryable store. The
// file-based Store remains authoritative for session state; an Index is an
// optional fan-out target for deployments that want SQL-backed dashboards
// or search instead of scanning the .orchestra directory tree.
type Index interface {
	Upsert(ctx context.Context, s SessionSummary) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// WithIndex attaches idx to st; every subsequent Save and Clear call mirrors
// into idx on a best-effort basis (index failures never fail the caller,
// since the file store is the source of truth).
func (st *Store) WithIndex(idx Index) *Store {
	st.index = idx
	return st
}
