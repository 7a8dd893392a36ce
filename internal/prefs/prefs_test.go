package prefs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/ioncon/internal/database"
)

type gridLayout struct {
	Columns []string `json:"columns"`
	Sort    string   `json:"sort"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqliteStore, err := NewSQLiteStore(ctx, db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"redis":  NewRedisStore(client, "user1"),
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, KeyTheme)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, KeyTheme, 3))
			n, ok, err := Int(ctx, s, KeyTheme)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 3, n)

			require.NoError(t, s.Set(ctx, KeyTheme, 5))
			n, _, _ = Int(ctx, s, KeyTheme)
			assert.Equal(t, 5, n, "set overwrites")

			require.NoError(t, s.Set(ctx, KeyLanguage, "fr-FR"))
			lang, ok, err := String(ctx, s, KeyLanguage)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "fr-FR", lang)

			layout := gridLayout{Columns: []string{"PK01", "AL30"}, Sort: "PK01"}
			require.NoError(t, s.Set(ctx, GridKey("IONCONList"), layout))
			var got gridLayout
			ok, err = Decode(ctx, s, GridKey("IONCONList"), &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, layout, got)
		})
	}
}

func TestInt_WrongType(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, KeyModule, "one"))
	_, ok, err := Int(ctx, s, KeyModule)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Namespace(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, NewRedisStore(client, "alice").Set(ctx, KeyTexture, 2))
	v, err := mr.Get("alice:" + KeyTexture)
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	_, ok, err := NewRedisStore(client, "bob").Get(ctx, KeyTexture)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "h5.app.ioncon.theme.selected", KeyTheme)
	assert.Equal(t, "h5.app.ioncon.texture.selected", KeyTexture)
	assert.Equal(t, "h5.app.ioncon.language.selected", KeyLanguage)
	assert.Equal(t, "h5.app.ioncon.module.selected", KeyModule)
	assert.Equal(t, "h5.app.ioncon.grid.IONCONList", GridKey("IONCONList"))
}
