package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ":8000", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"birdcollision", "caterpillar", "spider"}, cfg.DatasetNames())
	assert.Equal(t, "data/spider.db", cfg.Datasets["spider"])
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestDecodeYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
server:
  port: 9090
datasets:
  moths: /srv/moths.db
cache:
  addr: valkey:6379
  ttl: 5m
`)))

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"moths"}, cfg.DatasetNames())
	assert.Equal(t, "/srv/moths.db", cfg.Datasets["moths"])
	assert.Equal(t, "valkey:6379", cfg.Cache.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}

func decodeYAML(t *testing.T, doc string) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	cfg, err := Decode(v)
	require.NoError(t, err)
	return cfg
}

func TestDatasetSubset(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want map[string]string
	}{
		{
			name: "explicit map replaces defaults",
			doc:  "datasets:\n  spider: /srv/spider.db\n",
			want: map[string]string{"spider": "/srv/spider.db"},
		},
		{
			name: "empty path disables a default",
			doc:  "datasets:\n  caterpillar: \"\"\n",
			want: map[string]string{"birdcollision": "data/birdcollision.db", "spider": "data/spider.db"},
		},
		{
			name: "empty path inside an explicit map",
			doc:  "datasets:\n  spider: /srv/spider.db\n  caterpillar: \"\"\n",
			want: map[string]string{"spider": "/srv/spider.db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := decodeYAML(t, tt.doc)
			assert.Equal(t, tt.want, cfg.Datasets)
		})
	}
}

func TestDatasetsAllDisabled(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("datasets:\n  birdcollision: \"\"\n  caterpillar: \"\"\n  spider: \"\"\n")))

	_, err := Decode(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one dataset")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 0},
		Datasets:  map[string]string{"spider": "", "metrics": "m.db"},
		RateLimit: RateLimitConfig{Requests: 10},
	}
	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "datasets.spider")
	assert.Contains(t, msg, `"metrics" clashes`)
	assert.Contains(t, msg, "query_timeout")
	assert.Contains(t, msg, "ratelimit.window")
}
