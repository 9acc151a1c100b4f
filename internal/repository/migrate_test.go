package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationNames_AreOrderedAndEmbedded(t *testing.T) {
	req := require.New(t)

	names, err := migrationNames()
	req.NoError(err)
	req.Equal([]string{"0001_users.sql", "0002_messages.sql", "0003_audit_log.sql"}, names)

	for _, name := range names {
		body, err := migrationFiles.ReadFile("migrations/" + name)
		req.NoError(err)
		req.True(strings.Contains(string(body), "CREATE TABLE IF NOT EXISTS"), name)
	}
}
