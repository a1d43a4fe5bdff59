package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cardroom.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server {
  address = "0.0.0.0"
  port    = 9000
}

table "micro" {
  small_blind = 1
  big_blind   = 2
}

table "mid" {
  small_blind          = 25
  big_blind            = 50
  max_seats            = 9
  buy_in_min           = 2000
  buy_in_max           = 10000
  turn_timeout_seconds = 20
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	require.Len(t, cfg.Tables, 2)

	micro := cfg.Tables[0]
	assert.Equal(t, "micro", micro.Name)
	assert.Equal(t, 6, micro.MaxSeats)
	assert.Equal(t, 40, micro.BuyInMin)  // 20 big blinds
	assert.Equal(t, 200, micro.BuyInMax) // 100 big blinds

	mid := cfg.Tables[1]
	assert.Equal(t, 9, mid.MaxSeats)
	assert.Equal(t, 2000, mid.BuyInMin)

	settings := mid.TableSettings()
	assert.Equal(t, 25, settings.SmallBlind)
	assert.Equal(t, 20*time.Second, settings.TurnTimeout)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, "main", cfg.Tables[0].Name)
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		hcl  string
		want string
	}{
		{
			name: "no tables",
			hcl:  `server { port = 8080 }`,
			want: "at least one table",
		},
		{
			name: "blind ordering",
			hcl: `table "bad" {
  small_blind = 10
  big_blind   = 5
}`,
			want: "big blind must be greater",
		},
		{
			name: "duplicate names",
			hcl: `table "dup" {
  small_blind = 1
  big_blind   = 2
}
table "dup" {
  small_blind = 1
  big_blind   = 2
}`,
			want: "duplicate table name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadServerConfig(writeConfig(t, tc.hcl))
			require.NoError(t, err)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
