// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases for local bot storage.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies the same
// pragmas and schema to every connection, so callers get a ready
// database from the first Take:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   "/var/lib/matrixbot/archive.db",
//	    Schema: archiveSchema,
//	    Logger: logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	err = pool.Do(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "INSERT ...", &sqlitex.ExecOptions{Args: args})
//	})
//
// # Pragmas
//
//   - busy_timeout=5000: wait up to five seconds for the write lock.
//   - journal_mode=WAL: readers never block the writer.
//   - synchronous=NORMAL: commits survive a process crash but not
//     power loss. The homeserver is the source of truth for anything
//     stored here.
//   - temp_store=MEMORY.
//
// Connections are not safe for concurrent use. Each goroutine takes
// its own and puts it back.
package sqlitepool
