package backlog

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gameshelf/pkg/database"
	"gameshelf/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// one pooled connection, or every new conn would see a fresh empty db
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.MigrateFile(db, "../../docs/schema.sql"))

	// backlog rows reference both a user and a game
	_, err = db.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES ('u1', 'alice', 'a@example.com', 'x')`)
	require.NoError(t, err)
	for _, g := range []struct {
		appid int64
		title string
		slug  string
	}{
		{620, "Portal 2", "portal-2-620"},
		{440, "Team Fortress 2", "team-fortress-2-440"},
	} {
		_, err = db.Exec(`INSERT INTO games (appid, title, slug) VALUES (?, ?, ?)`, g.appid, g.title, g.slug)
		require.NoError(t, err)
	}
	return db
}

func TestUpsertAndGet(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	rating := 9
	require.NoError(t, repo.Upsert(ctx, models.BacklogItem{
		UserID: "u1", AppID: 620, Status: models.BacklogStatusPlaying, Rating: &rating, Notes: "great",
	}))

	got, err := repo.Get(ctx, "u1", 620)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.BacklogStatusPlaying, got.Status)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 9, *got.Rating)
	assert.Equal(t, "great", got.Notes)

	// second upsert replaces, never duplicates
	require.NoError(t, repo.Upsert(ctx, models.BacklogItem{
		UserID: "u1", AppID: 620, Status: models.BacklogStatusCompleted,
	}))

	got, err = repo.Get(ctx, "u1", 620)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.BacklogStatusCompleted, got.Status)
	assert.Nil(t, got.Rating)

	_, total, err := repo.List(ctx, "u1", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestGetMissing(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	got, err := repo.Get(context.Background(), "u1", 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.BacklogItem{UserID: "u1", AppID: 620, Status: models.BacklogStatusBacklog}))

	deleted, err := repo.Delete(ctx, "u1", 620)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "u1", 620)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListStatusFilter(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, models.BacklogItem{UserID: "u1", AppID: 620, Status: models.BacklogStatusPlaying}))
	require.NoError(t, repo.Upsert(ctx, models.BacklogItem{UserID: "u1", AppID: 440, Status: models.BacklogStatusDropped}))

	items, total, err := repo.List(ctx, "u1", models.BacklogStatusPlaying, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, int64(620), items[0].AppID)

	items, total, err = repo.List(ctx, "u1", "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)

	// a different user sees nothing
	items, total, err = repo.List(ctx, "u2", "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}
