package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/prolite-gateway/internal/coremodel"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Env  string `mapstructure:"env" yaml:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" yaml:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize" yaml:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge" yaml:"maxAge"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level" yaml:"level"`
	Format string           `mapstructure:"format" yaml:"format"`
	File   LumberjackConfig `mapstructure:"file" yaml:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// DeviceConfig 被控显示器
type DeviceConfig struct {
	Host      string        `mapstructure:"host" yaml:"host"`
	MAC       string        `mapstructure:"mac" yaml:"mac"` // 仅用于网络唤醒
	Protocol  string        `mapstructure:"protocol" yaml:"protocol"`
	Port      int           `mapstructure:"port" yaml:"port"` // 0 使用协议默认端口
	MonitorID int           `mapstructure:"monitorId" yaml:"monitorId"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"` // 命令最小间隔
	MaxLine   int           `mapstructure:"maxLine" yaml:"maxLine"`
}

// PollerConfig 状态轮询
type PollerConfig struct {
	Enable           bool          `mapstructure:"enable" yaml:"enable"`
	Interval         time.Duration `mapstructure:"interval" yaml:"interval"`
	BreakerThreshold int           `mapstructure:"breakerThreshold" yaml:"breakerThreshold"`
	BreakerCooldown  time.Duration `mapstructure:"breakerCooldown" yaml:"breakerCooldown"`
}

// WOLConfig 网络唤醒
type WOLConfig struct {
	Broadcast string `mapstructure:"broadcast" yaml:"broadcast"`
	Port      int    `mapstructure:"port" yaml:"port"`
}

// APIConfig 对外 HTTP API
type APIConfig struct {
	AuthEnable bool     `mapstructure:"authEnable" yaml:"authEnable"`
	AuthKeys   []string `mapstructure:"authKeys" yaml:"-"`
}

// Config 顶层配置结构
type Config struct {
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Poller  PollerConfig  `mapstructure:"poller" yaml:"poller"`
	WOL     WOLConfig     `mapstructure:"wol" yaml:"wol"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 PROLITE_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("PROLITE_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 PROLITE_，并将点号替换为下划线
	v.SetEnvPrefix("PROLITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "prolite-gateway")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/prolite-gateway.log")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("device.host", "")
	v.SetDefault("device.mac", "")
	v.SetDefault("device.protocol", string(coremodel.ProtocolTE04))
	v.SetDefault("device.port", 0)
	v.SetDefault("device.monitorId", 1)
	v.SetDefault("device.timeout", "1500ms")
	v.SetDefault("device.interval", "1ms")
	v.SetDefault("device.maxLine", 256)

	v.SetDefault("poller.enable", true)
	v.SetDefault("poller.interval", "750ms")
	v.SetDefault("poller.breakerThreshold", 3)
	v.SetDefault("poller.breakerCooldown", "10s")

	v.SetDefault("wol.broadcast", "255.255.255.255")
	v.SetDefault("wol.port", 9)

	v.SetDefault("api.authEnable", false)
	v.SetDefault("api.authKeys", []string{})
}

// Validate 校验设备相关配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Device.Host) == "" {
		return errors.New("device.host is required")
	}
	p, err := coremodel.ParseProtocol(c.Device.Protocol)
	if err != nil {
		return fmt.Errorf("device.protocol: %w", err)
	}
	if p == coremodel.ProtocolLH42UHS && (c.Device.MonitorID < 1 || c.Device.MonitorID > 255) {
		return fmt.Errorf("device.monitorId must be in [1,255], got %d", c.Device.MonitorID)
	}
	if c.Device.Port < 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port out of range: %d", c.Device.Port)
	}
	if c.Device.MAC != "" {
		if _, err := net.ParseMAC(c.Device.MAC); err != nil {
			return fmt.Errorf("device.mac: %w", err)
		}
	}
	if c.Poller.Enable && c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be positive")
	}
	if c.API.AuthEnable && len(c.API.AuthKeys) == 0 {
		return errors.New("api.authKeys required when api.authEnable is true")
	}
	return nil
}

// DevicePort 生效端口：显式配置优先，否则协议默认端口
func (c *Config) DevicePort() int {
	if c.Device.Port > 0 {
		return c.Device.Port
	}
	p, err := coremodel.ParseProtocol(c.Device.Protocol)
	if err != nil {
		return 0
	}
	return p.DefaultPort()
}

// Dump 以 YAML 输出生效配置（不含密钥）
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
