package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store         StoreConfig         `yaml:"store"`
	Listener      ListenerConfig      `yaml:"listener"`
	HTTP          HTTPConfig          `yaml:"http"`
	RF            RFConfig            `yaml:"rf"`
	NTP           NTPConfig           `yaml:"ntp"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Log           LogConfig           `yaml:"log"`
}

type StoreConfig struct {
	Backend     string      `yaml:"backend"`
	Path        string      `yaml:"path"`
	Size        int         `yaml:"size"`
	MaxSwitches int         `yaml:"max_switches"`
	Redis       RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// ListenerConfig.Addr is nil when the key is absent; an explicit empty string
// disables the listener.
type ListenerConfig struct {
	Addr *string `yaml:"addr"`
}

type HTTPConfig struct {
	Addr      *string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	RateLimit int    `yaml:"rate_limit"`
}

// RFConfig.Chip and Line name the transmitter's data line on the GPIO
// character device, e.g. gpiochip0 line 17.
type RFConfig struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip"`
	Line    int    `yaml:"line"`
	PulseUS int    `yaml:"pulse_us"`
	Repeat  int    `yaml:"repeat"`
	Device  int    `yaml:"device"`
	Group   bool   `yaml:"group"`
}

type NTPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Server       string `yaml:"server"`
	SyncInterval string `yaml:"sync_interval"`
	Timezone     int    `yaml:"timezone"`
	Summertime   *bool  `yaml:"summertime"`
	LocalAddress string `yaml:"local_address"`
}

type ScheduleConfig struct {
	Interval string `yaml:"interval"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type HomeAssistantConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "file"
	}
	if c.Store.Path == "" {
		c.Store.Path = "./switches.eeprom"
	}
	if c.Store.Size == 0 {
		c.Store.Size = 1024
	}
	if c.Store.MaxSwitches == 0 {
		c.Store.MaxSwitches = 100
	}
	if c.Store.Redis.Key == "" {
		c.Store.Redis.Key = "smart-switch:eeprom"
	}
	if c.Listener.Addr == nil {
		c.Listener.Addr = stringPtr(":2323")
	}
	if c.HTTP.Addr == nil {
		c.HTTP.Addr = stringPtr(":8080")
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 60
	}
	if c.RF.Chip == "" {
		c.RF.Chip = "gpiochip0"
	}
	if c.RF.PulseUS == 0 {
		c.RF.PulseUS = 270
	}
	if c.RF.Repeat == 0 {
		c.RF.Repeat = 6
	}
	if c.NTP.Server == "" {
		c.NTP.Server = "pool.ntp.org:123"
	}
	if c.NTP.SyncInterval == "" {
		c.NTP.SyncInterval = "5m"
	}
	if c.NTP.Summertime == nil {
		summer := true
		c.NTP.Summertime = &summer
	}
	if c.Schedule.Interval == "" {
		c.Schedule.Interval = "15s"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "smart-switch"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "smart-switch"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case "memory", "file":
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of memory, file, redis", c.Store.Backend))
	}
	if c.Store.MaxSwitches < 1 || c.Store.MaxSwitches > 255 {
		errs = append(errs, fmt.Errorf("store.max_switches %d must be 1-255", c.Store.MaxSwitches))
	}
	if need := 1 + 5*c.Store.MaxSwitches; c.Store.Size < need {
		errs = append(errs, fmt.Errorf("store.size %d cannot hold %d switches (need %d bytes)", c.Store.Size, c.Store.MaxSwitches, need))
	}
	if c.RF.Device < 0 || c.RF.Device > 4 {
		errs = append(errs, fmt.Errorf("rf.device %d must be 0-4", c.RF.Device))
	}
	if c.RF.Line < 0 {
		errs = append(errs, fmt.Errorf("rf.line %d must not be negative", c.RF.Line))
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos %d must be 0-2", c.MQTT.QoS))
	}
	if c.HomeAssistant.Enabled && c.HomeAssistant.URL == "" {
		errs = append(errs, errors.New("homeassistant.url is required when homeassistant is enabled"))
	}
	for name, v := range map[string]string{
		"ntp.sync_interval": c.NTP.SyncInterval,
		"schedule.interval": c.Schedule.Interval,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s %q is not a positive duration", name, v))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func stringPtr(s string) *string { return &s }

// ListenerAddr is the TCP listener address, empty when disabled.
func (c *Config) ListenerAddr() string {
	if c.Listener.Addr == nil {
		return ""
	}
	return *c.Listener.Addr
}

// HTTPAddr is the HTTP API address, empty when disabled.
func (c *Config) HTTPAddr() string {
	if c.HTTP.Addr == nil {
		return ""
	}
	return *c.HTTP.Addr
}

func (c *Config) ScheduleInterval() time.Duration {
	d, _ := time.ParseDuration(c.Schedule.Interval)
	return d
}

func (c *Config) NTPSyncInterval() time.Duration {
	d, _ := time.ParseDuration(c.NTP.SyncInterval)
	return d
}

func (c *Config) PulseLength() time.Duration {
	return time.Duration(c.RF.PulseUS) * time.Microsecond
}
