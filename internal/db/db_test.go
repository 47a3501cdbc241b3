package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlab/floralog/internal/models"
)

func TestOpen_SQLiteDefaultsToMemory(t *testing.T) {
	gdb, err := Open("sqlite", "")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(gdb))

	// The migrated schema is usable.
	require.NoError(t, gdb.Create(&models.Researcher{
		ResearcherID: "r-1",
		FullName:     "Rosa Bianchi",
	}).Error)
	var count int64
	require.NoError(t, gdb.Model(&models.Researcher{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := Open("postgres", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres driver requires a DSN")
}

func TestOpen_MySQLRequiresDSN(t *testing.T) {
	_, err := Open("mysql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql driver requires a DSN")
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown database driver")
}
