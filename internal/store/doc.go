// Package store provides durable local storage for the console using SQLite.
//
// # Overview
//
// SQLiteStore plays the role of the browser's local storage: the session
// store keeps its serialized Session and the persisted auth state as
// key/value items. A second table records session lifecycle events
// (login, logout, refresh, expiry) for the admin CLI's history command.
//
// The driver is modernc.org/sqlite, so no cgo toolchain is needed.
//
// # Usage
//
//	st, err := store.NewSQLiteStore(filepath.Join(dataDir, "console.db"))
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	sessions := session.NewStore(st, mirror, logger)
package store
