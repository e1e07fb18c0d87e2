package auth_test

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	auth "github.com/goliatone/go-phone-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMigrationsFS(t *testing.T) {
	names, err := fs.Glob(auth.GetMigrationsFS(), "*.up.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users.up.sql", "0002_auth_sessions.up.sql"}, names)
}

func TestApplyMigrationsFS(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	fsys := fstest.MapFS{
		"0002_notes_index.up.sql": {Data: []byte("CREATE INDEX IF NOT EXISTS notes_body_idx ON notes (body);")},
		"0001_notes.up.sql":       {Data: []byte("CREATE TABLE IF NOT EXISTS notes (id INTEGER PRIMARY KEY, body TEXT);\nINSERT INTO notes (body) VALUES ('first');")},
		"0001_notes.down.sql":     {Data: []byte("DROP TABLE notes;")},
		"README.md":               {Data: []byte("not sql")},
	}

	require.NoError(t, auth.ApplyMigrationsFS(ctx, db, fsys), "the index runs after the table it needs")

	var count int
	require.NoError(t, db.NewRaw("SELECT COUNT(*) FROM notes").Scan(ctx, &count))
	assert.Equal(t, 1, count, "down files are never applied")

	broken := fstest.MapFS{"0001_broken.up.sql": {Data: []byte("CREATE TABLE ;")}}
	err := auth.ApplyMigrationsFS(ctx, db, broken)
	require.Error(t, err)
	assert.Equal(t, 500, auth.HTTPStatus(err))
}
