package db

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"LFG_Board/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDialect(t *testing.T) {
	cases := map[string]string{
		"user:pass@tcp(127.0.0.1:3306)/lfg?parseTime=True":   DialectMySQL,
		"postgres://lfg:pw@localhost:5432/lfg":                DialectPostgres,
		"host=localhost user=lfg dbname=lfg sslmode=disable": DialectPostgres,
		"file:data/lfg.db":                                    DialectSQLite,
		"lfg.db":                                              DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := DetectDialect(dsn)
		require.NoError(t, err, dsn)
		assert.Equal(t, want, got, dsn)
	}

	_, err := DetectDialect("redis://localhost")
	require.Error(t, err)
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lfg.db")
	conn, err := Open("file:" + path)
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))

	acc := model.Account{Username: "alice", Email: "a@x", Password: "h", Role: model.RoleUser, Status: model.StatusActive, LastQuotaReset: time.Now()}
	require.NoError(t, conn.Create(&acc).Error)
	assert.NotZero(t, acc.ID)

	var n int64
	require.NoError(t, conn.Model(&model.Account{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestOpenInMemory(t *testing.T) {
	conn, err := Open(fmt.Sprintf("file:db_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
}
