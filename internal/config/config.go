// Package config loads daemon settings from a TOML file and command-line flags.
// Precedence: flags explicitly set on the command line > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/sweeney/flashlight/internal/driver"
	"github.com/sweeney/flashlight/internal/hwdesc"
	"github.com/sweeney/flashlight/internal/logging"
)

// Config is the complete daemon configuration.
type Config struct {
	GPIO    GPIO           `toml:"gpio"`
	HWDesc  HWDesc         `toml:"hwdesc"`
	MQTT    MQTT           `toml:"mqtt"`
	HTTP    HTTP           `toml:"http"`
	Logging logging.Config `toml:"logging"`
}

// GPIO selects the chip and consumer labels.
type GPIO struct {
	Chip         string `toml:"chip"`
	ConsumerLow  string `toml:"consumer_low"`
	ConsumerHigh string `toml:"consumer_high"`
}

// HWDesc selects where the hardware description comes from. When File is
// set it is used instead of the device tree.
type HWDesc struct {
	DeviceTree string `toml:"devicetree"`
	File       string `toml:"file"`
	Compatible string `toml:"compatible"`
	Property   string `toml:"property"`
}

// MQTT configures the broker connection. An empty Broker disables MQTT.
type MQTT struct {
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
}

// HTTP configures the status server. An empty Addr disables it.
type HTTP struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := driver.DefaultConfig()
	return Config{
		GPIO: GPIO{
			Chip:         d.Chip,
			ConsumerLow:  d.ConsumerLow,
			ConsumerHigh: d.ConsumerHigh,
		},
		HWDesc: HWDesc{
			DeviceTree: hwdesc.DefaultDeviceTreeDir,
			Compatible: d.Compatible,
			Property:   d.Property,
		},
		MQTT: MQTT{
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "flashlight",
			TopicPrefix: "flashlight/torch",
		},
		HTTP:    HTTP{Addr: ":8080"},
		Logging: logging.Config{Level: "info", Format: "text"},
	}
}

// Driver returns the module binding part of the configuration.
func (c Config) Driver() driver.Config {
	return driver.Config{
		Compatible:   c.HWDesc.Compatible,
		Property:     c.HWDesc.Property,
		Chip:         c.GPIO.Chip,
		ConsumerLow:  c.GPIO.ConsumerLow,
		ConsumerHigh: c.GPIO.ConsumerHigh,
	}
}

type binding struct {
	name  string
	usage string
	field func(*Config) *string
}

var bindings = []binding{
	{"chip", "GPIO chip used when the hardware description names none", func(c *Config) *string { return &c.GPIO.Chip }},
	{"consumer-low", "consumer label for the low line", func(c *Config) *string { return &c.GPIO.ConsumerLow }},
	{"consumer-high", "consumer label for the high line", func(c *Config) *string { return &c.GPIO.ConsumerHigh }},
	{"devicetree", "flattened device tree directory", func(c *Config) *string { return &c.HWDesc.DeviceTree }},
	{"hwdesc", "hardware description file (.toml/.yaml), overrides --devicetree", func(c *Config) *string { return &c.HWDesc.File }},
	{"compatible", "compatible tag of the torch node", func(c *Config) *string { return &c.HWDesc.Compatible }},
	{"property", "property listing the low and high lines", func(c *Config) *string { return &c.HWDesc.Property }},
	{"broker", "MQTT broker address (empty to disable)", func(c *Config) *string { return &c.MQTT.Broker }},
	{"client-id", "MQTT client ID", func(c *Config) *string { return &c.MQTT.ClientID }},
	{"topic-prefix", "MQTT topic prefix", func(c *Config) *string { return &c.MQTT.TopicPrefix }},
	{"http", "HTTP status address (empty to disable)", func(c *Config) *string { return &c.HTTP.Addr }},
	{"log-level", "log level (debug, info, warn, error)", func(c *Config) *string { return &c.Logging.Level }},
	{"log-format", "log format (text, json, journal)", func(c *Config) *string { return &c.Logging.Format }},
}

// BindFlags registers one flag per setting on flags, storing values in dst.
// Flag defaults are taken from Default().
func BindFlags(flags *pflag.FlagSet, dst *Config) {
	def := Default()
	for _, b := range bindings {
		flags.StringVar(b.field(dst), b.name, *b.field(&def), b.usage)
	}
}

// Load reads path over the defaults, then applies every flag in flags that
// was set on the command line from flagged. A missing file is not an error.
func Load(path string, flags *pflag.FlagSet, flagged *Config) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if flags != nil && flagged != nil {
		for _, b := range bindings {
			if flags.Changed(b.name) {
				*b.field(&cfg) = *b.field(flagged)
			}
		}
	}
	return cfg, nil
}
