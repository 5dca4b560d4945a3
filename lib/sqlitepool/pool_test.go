// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/matrixbot/lib/sqlitepool"
)

const testSchema = `CREATE TABLE IF NOT EXISTS positions (room_id TEXT PRIMARY KEY, since TEXT NOT NULL);`

func openTestPool(t *testing.T, schema string, size int) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		PoolSize: size,
		Schema:   schema,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}

func TestOpen_Pragmas(t *testing.T) {
	pool := openTestPool(t, "", 1)
	err := pool.Do(context.Background(), func(conn *sqlite.Conn) error {
		var journalMode string
		err := sqlitex.Execute(conn, "PRAGMA journal_mode", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				journalMode = stmt.ColumnText(0)
				return nil
			},
		})
		if err != nil {
			return err
		}
		if journalMode != "wal" {
			t.Errorf("journal_mode = %q, want wal", journalMode)
		}

		var busyTimeout int
		err = sqlitex.Execute(conn, "PRAGMA busy_timeout", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				busyTimeout = stmt.ColumnInt(0)
				return nil
			},
		})
		if busyTimeout != 5000 {
			t.Errorf("busy_timeout = %d, want 5000", busyTimeout)
		}
		return err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestOpen_SchemaOnEveryConnection(t *testing.T) {
	pool := openTestPool(t, testSchema, 3)
	ctx := context.Background()

	// Hold all three connections at once so each is prepared.
	var conns []*sqlite.Conn
	for range 3 {
		conn, err := pool.Take(ctx)
		if err != nil {
			t.Fatalf("Take: %v", err)
		}
		conns = append(conns, conn)
	}
	for index, conn := range conns {
		err := sqlitex.Execute(conn, "SELECT count(*) FROM positions", nil)
		if err != nil {
			t.Errorf("connection %d has no schema: %v", index, err)
		}
		pool.Put(conn)
	}
}

func TestPool_ConcurrentWritersAndReaders(t *testing.T) {
	pool := openTestPool(t, testSchema, 4)
	ctx := context.Background()

	var waitGroup sync.WaitGroup
	errs := make(chan error, 8)
	for index := range 8 {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			errs <- pool.Do(ctx, func(conn *sqlite.Conn) error {
				return sqlitex.Execute(conn, "INSERT INTO positions (room_id, since) VALUES (?, ?)", &sqlitex.ExecOptions{
					Args: []any{"!room" + string(rune('a'+index)) + ":example.org", "s1"},
				})
			})
		}()
	}
	waitGroup.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("insert: %v", err)
		}
	}

	var count int
	err := pool.Do(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT count(*) FROM positions", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt(0)
				return nil
			},
		})
	})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 8 {
		t.Errorf("count = %d, want 8", count)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Error("Open with empty Path succeeded")
	}

	pool := openTestPool(t, "CREATE TABLE broken (", 1)
	err := pool.Do(context.Background(), func(conn *sqlite.Conn) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Errorf("Take with a broken schema = %v, want schema error", err)
	}
}

func TestPool_TakeCancelled(t *testing.T) {
	pool := openTestPool(t, "", 1)
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Error("Take on an exhausted pool with a cancelled context succeeded")
	}
}
