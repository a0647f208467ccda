package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenForTesting(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	assert.NoError(t, db.Ping())
}

func TestMigrationsCreateSchema(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='lots'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "lots", name)

	for _, idx := range []string{
		"idx_lots_material_status",
		"idx_lots_owner_created",
		"idx_lots_receiver_status",
		"idx_lots_day_status",
	} {
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		require.NoError(t, err, idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })

	// OpenForTesting already migrated once.
	assert.NoError(t, Migrate(db))
}

func TestDatabasesAreIsolated(t *testing.T) {
	a, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	b, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, b.Close()) })

	_, err = a.Exec(`INSERT INTO lots (pk, sk, id, material, weight_kg, scheme, price, owner_id, address_line1, created_at, updated_at, created_day)
		VALUES ('lot#x', 'meta', 'x', 'madera', 1, 'donacion', 0, 'U1', 'Calle 1', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z', '20250101')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, b.QueryRow("SELECT COUNT(*) FROM lots").Scan(&count))
	assert.Zero(t, count)
}
