package mysql

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := Config{
		Host:     "db.example.org",
		Port:     3306,
		Database: "hitobito",
		User:     "dues",
		Password: "s3cr:t@x",
	}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "dues", parsed.User)
	assert.Equal(t, "s3cr:t@x", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.example.org:3306", parsed.Addr)
	assert.Equal(t, "hitobito", parsed.DBName)
	assert.False(t, parsed.ParseTime)
	assert.Equal(t, time.UTC, parsed.Loc)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestDSNIPv6(t *testing.T) {
	parsed, err := mysql.ParseDSN(Config{Host: "::1", Port: 3307, Database: "x"}.DSN())
	require.NoError(t, err)
	assert.Equal(t, "[::1]:3307", parsed.Addr)
}
