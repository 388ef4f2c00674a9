package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 1024, cfg.Store.Size)
	assert.Equal(t, 100, cfg.Store.MaxSwitches)
	assert.Equal(t, ":2323", cfg.ListenerAddr())
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, 270*time.Microsecond, cfg.PulseLength())
	assert.Equal(t, 6, cfg.RF.Repeat)
	assert.Equal(t, "gpiochip0", cfg.RF.Chip)
	assert.True(t, *cfg.NTP.Summertime)
	assert.Equal(t, 5*time.Minute, cfg.NTPSyncInterval())
	assert.Equal(t, 15*time.Second, cfg.ScheduleInterval())
	assert.Equal(t, "smart-switch", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SWITCH_MQTT_PASSWORD", "hunter2")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: memory
  max_switches: 20
  size: 101
ntp:
  summertime: false
  timezone: -3
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  password: ${SWITCH_MQTT_PASSWORD}
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.MQTT.Password)
	assert.False(t, *cfg.NTP.Summertime)
	assert.Equal(t, -3, cfg.NTP.Timezone)
	assert.Equal(t, 20, cfg.Store.MaxSwitches)
}

func TestParse_EmptyAddrDisablesTransport(t *testing.T) {
	cfg, err := Parse([]byte("listener: {addr: \"\"}\nhttp:\n  addr: \"127.0.0.1:9000\"\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.ListenerAddr())
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr())

	cfg, err = Parse([]byte("http: {addr: \"\"}"))
	require.NoError(t, err)

	assert.Empty(t, cfg.HTTPAddr())
	assert.Equal(t, ":2323", cfg.ListenerAddr())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "store: {backend: tape}", "store.backend"},
		{"redis without addr", "store: {backend: redis}", "store.redis.addr"},
		{"too many switches", "store: {max_switches: 300, size: 4096}", "max_switches"},
		{"store too small", "store: {max_switches: 10, size: 50}", "store.size 50"},
		{"rf device", "rf: {device: 5}", "rf.device"},
		{"negative rf line", "rf: {enabled: true, line: -1}", "rf.line"},
		{"mqtt without broker", "mqtt: {enabled: true}", "mqtt.broker"},
		{"bad interval", "schedule: {interval: soon}", "schedule.interval"},
		{"zero interval", "ntp: {sync_interval: 0s}", "ntp.sync_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.ErrorContains(t, err, "reading config file")
}
