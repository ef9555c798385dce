package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load()
	req.NoError(err)
	req.Equal("8099", cfg.Server.Port)
	req.Equal("mysql", cfg.Database.Driver)
	req.Equal(int64(16), cfg.Database.Workers)
	req.Equal(15*time.Minute, cfg.JWT.AccessExpiry)
	req.Equal("Asia/Bangkok", cfg.Chat.Timezone)
	req.Equal(60, cfg.Chat.MaxMessagesPerMinute)
	req.Empty(cfg.Redis.URL)
	req.Equal("hangout:group:", cfg.Redis.ChannelPrefix)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_WORKERS", "4")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CHAT_WRITE_WAIT", "3s")
	t.Setenv("INTERNAL_PLAN_EVENTS_SECRET", "s3cret")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("9000", cfg.Server.Port)
	req.Equal("postgres", cfg.Database.Driver)
	req.Equal(int64(4), cfg.Database.Workers)
	req.Equal("redis://localhost:6379/0", cfg.Redis.URL)
	req.Equal(3*time.Second, cfg.Chat.WriteWait)
	req.Equal("s3cret", cfg.Internal.PlanEventsSecret)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want error
	}{
		{"unknown driver", "DB_DRIVER", "oracle", ErrUnknownDriver},
		{"zero workers", "DB_WORKERS", "0", ErrInvalidWorkers},
		{"bad timezone", "CHAT_TIMEZONE", "Mars/Olympus", ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			require.ErrorIs(t, err, tt.want)
		})
	}
}
