package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  host: 192.168.1.50
  protocol: lh42uhs
  monitorId: 3
  mac: "00:11:22:33:44:55"
api:
  authEnable: true
  authKeys: ["k1", "k2"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.50", cfg.Device.Host)
	assert.Equal(t, "lh42uhs", cfg.Device.Protocol)
	assert.Equal(t, 3, cfg.Device.MonitorID)
	assert.Equal(t, 1500*time.Millisecond, cfg.Device.Timeout)
	assert.Equal(t, time.Millisecond, cfg.Device.Interval)
	assert.Equal(t, 750*time.Millisecond, cfg.Poller.Interval)
	assert.Equal(t, "255.255.255.255", cfg.WOL.Broadcast)
	assert.Equal(t, 9, cfg.WOL.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.API.AuthKeys)
	assert.Equal(t, 5000, cfg.DevicePort())
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "device:\n  host: 10.0.0.1\n")
	t.Setenv("PROLITE_DEVICE_HOST", "10.0.0.9")
	t.Setenv("PROLITE_DEVICE_PORT", "4665")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", cfg.Device.Host)
	assert.Equal(t, 4665, cfg.DevicePort())
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeConfig(t, "app:\n  name: lobby-display\ndevice:\n  host: 10.0.0.2\n")
	t.Setenv("PROLITE_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "lobby-display", cfg.App.Name)
	assert.Equal(t, 4664, cfg.DevicePort())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Device: DeviceConfig{Host: "10.0.0.1", Protocol: "te04", MonitorID: 1},
			Poller: PollerConfig{Enable: true, Interval: time.Second},
		}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"默认合法", func(c *Config) {}, false},
		{"缺少主机", func(c *Config) { c.Device.Host = "" }, true},
		{"未知协议", func(c *Config) { c.Device.Protocol = "rs232" }, true},
		{"广播地址", func(c *Config) { c.Device.Protocol = "lh42uhs"; c.Device.MonitorID = 0 }, true},
		{"地址越界", func(c *Config) { c.Device.Protocol = "lh42uhs"; c.Device.MonitorID = 256 }, true},
		{"TE04 忽略地址", func(c *Config) { c.Device.MonitorID = 0 }, false},
		{"MAC 非法", func(c *Config) { c.Device.MAC = "zz:11" }, true},
		{"端口越界", func(c *Config) { c.Device.Port = 70000 }, true},
		{"鉴权无密钥", func(c *Config) { c.API.AuthEnable = true }, true},
		{"轮询间隔为零", func(c *Config) { c.Poller.Interval = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDump_OmitsKeys(t *testing.T) {
	cfg := &Config{
		Device: DeviceConfig{Host: "10.0.0.1", Protocol: "te04"},
		API:    APIConfig{AuthEnable: true, AuthKeys: []string{"secret-key"}},
	}
	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "host: 10.0.0.1")
	assert.Contains(t, out, "authEnable: true")
	assert.NotContains(t, out, "secret-key")
}
