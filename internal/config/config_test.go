package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(StorageDriverMemory, cfg.Storage.Driver)
	req.Equal(2*time.Minute, cfg.Chat.DeleteWindow)
	req.Equal(5*time.Second, cfg.Presence.PushTimeout)
	req.Equal(32, cfg.Presence.Shards)
	req.Equal(50, cfg.Chat.DefaultPageSize)
}

func TestLoadOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("CHAT_DELETE_WINDOW", "90s")
	t.Setenv("PRESENCE_SHARDS", "8")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(90*time.Second, cfg.Chat.DeleteWindow)
	req.Equal(8, cfg.Presence.Shards)
	req.Equal([]string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsInvalidShards(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("PRESENCE_SHARDS", "12")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")

	_, err := Load()
	require.ErrorContains(t, err, "unknown storage driver")
}
