// Package store persists plugin states between runs of the host.
//
// Backends:
//
//   - sqlite3: a local database file, the default for a single host
//   - postgres: a shared database for several hosts
//   - redis: a hash keyed by plugin ID
//
// Usage:
//
//	st, err := store.Open("sqlite3", "/var/lib/modhost/plugins.db")
//	states, err := st.Load(ctx)
//	pm.Restore(states)
//	...
//	err = st.Save(ctx, pm.Snapshot())
package store
