// Package storetest abre stores SQLite temporales y migrados para tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feuc/declaraciones/internal/store"
	_ "github.com/feuc/declaraciones/internal/store/adapters/sqlite"
)

// Open abre una base SQLite en t.TempDir(), aplica el esquema y la cierra al terminar el test.
func Open(t testing.TB) store.Connection {
	t.Helper()
	ctx := context.Background()

	conn, err := store.Open(ctx, store.AdapterConfig{
		Name:         "sqlite",
		DSN:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 8,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Migrate(ctx)
	require.NoError(t, err)
	return conn
}
