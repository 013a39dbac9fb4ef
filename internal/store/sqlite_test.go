package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ashureev/chatrelay/internal/config"
	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	testRepositoryContract(t, newTestSQLite(t))
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	repo, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, domain.NewEntry(domain.AuthorUser, "hello")))
	require.NoError(t, repo.Close())

	repo, err = NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	entries, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Text)
}

func TestOpenSelectsSQLite(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.StoreSQLite, DBPath: filepath.Join(t.TempDir(), "chat.db")}

	repo, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	_, ok := repo.(*SQLiteStore)
	assert.True(t, ok, "expected *SQLiteStore, got %T", repo)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "mongo"}, nil)
	assert.Error(t, err)
}
