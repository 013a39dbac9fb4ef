package store

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRepositoryContract exercises the behavior every backend must share.
// repo must start empty.
func testRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("empty list is non-nil", func(t *testing.T) {
		entries, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})

	t.Run("ordered by timestamp regardless of insertion order", func(t *testing.T) {
		base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		seed := []*domain.ChatEntry{
			{Author: domain.AuthorBot, Text: "third", CreatedAt: base.Add(2 * time.Second)},
			{Author: domain.AuthorUser, Text: "first", CreatedAt: base},
			{Author: domain.AuthorUser, Text: "", CreatedAt: base.Add(3 * time.Second)},
			{Author: domain.AuthorBot, Text: "second", CreatedAt: base.Add(time.Second)},
		}
		for _, e := range seed {
			require.NoError(t, repo.Append(ctx, e))
		}

		entries, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 4)

		texts := make([]string, len(entries))
		for i, e := range entries {
			texts[i] = e.Text
		}
		assert.Equal(t, []string{"first", "second", "third", ""}, texts)
		assert.Equal(t, domain.AuthorUser, entries[0].Author)
		assert.Equal(t, domain.AuthorBot, entries[1].Author)
		assert.True(t, entries[0].CreatedAt.Equal(base), "got %v", entries[0].CreatedAt)
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		assert.ErrorIs(t, repo.Append(ctx, nil), ErrInvalidEntry)
		assert.ErrorIs(t, repo.Append(ctx, &domain.ChatEntry{Author: "Admin"}), ErrInvalidEntry)
	})

	t.Run("clear returns deleted count and empties the log", func(t *testing.T) {
		deleted, err := repo.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), deleted)

		entries, err := repo.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("clear on empty log is a no-op", func(t *testing.T) {
		deleted, err := repo.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)
	})

	t.Run("equal timestamps keep insertion order", func(t *testing.T) {
		ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		texts := []string{"a", "b", "c", "d", "e"}
		for _, text := range texts {
			require.NoError(t, repo.Append(ctx, &domain.ChatEntry{Author: domain.AuthorUser, Text: text, CreatedAt: ts}))
		}

		entries, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, entries, len(texts))
		for i, e := range entries {
			assert.Equal(t, texts[i], e.Text, "position %d", i)
		}

		deleted, err := repo.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(len(texts)), deleted)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}
