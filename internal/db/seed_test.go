package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/db"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func count(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestSeedTestDataResetsAndPopulates(t *testing.T) {
	gdb := openMemory(t)

	// seeding twice leaves one demo group, not two
	require.NoError(t, db.SeedTestData(gdb))
	require.NoError(t, db.SeedTestData(gdb))

	assert.Equal(t, int64(1), count(t, gdb, &db.Group{}))
	assert.Equal(t, int64(20), count(t, gdb, &db.Member{}))
	assert.Equal(t, int64(15), count(t, gdb, &db.Question{}))
	assert.Equal(t, int64(6), count(t, gdb, &db.RelationshipStatus{}))
	assert.Equal(t, int64(1), count(t, gdb, &db.Connection{}))

	var invalid int64
	gdb.Model(&db.Answer{}).Where("status = ? AND value IS NULL", "answered").Count(&invalid)
	assert.Zero(t, invalid, "answered rows always carry a value")
}

func TestSeedMinimalTestData(t *testing.T) {
	gdb := openMemory(t)
	require.NoError(t, db.SeedMinimalTestData(gdb))

	assert.Equal(t, int64(3), count(t, gdb, &db.Member{}))
	assert.Equal(t, int64(5), count(t, gdb, &db.Question{}))
	assert.Equal(t, int64(12), count(t, gdb, &db.Answer{}))

	var x db.Member
	require.NoError(t, gdb.Where("user_id = 1").First(&x).Error)
	assert.Equal(t, int64(30), x.Balance)
}
