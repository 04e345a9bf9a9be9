// File: control/loader.go
// Package control
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LoadConfig reads the serializable subset of listener.Spec from a
// YAML file via viper, matching SPEC_FULL's ambient "Configuration" bullet
// (viper + yaml.v3 struct tags, nabbar-golib config idiom). Protocol,
// Callbacks, and BufferPool are code-level concerns attached by cmd/server
// after loading, since they aren't representable in a config file.

package control

import (
	"crypto/tls"
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/localzet/webcore/listener"
)

// TLSOptions is the serializable half of a TLS listener's configuration;
// listener.Spec.TLSConfig is built from it by ToSpec.
type TLSOptions struct {
	CertFile   string `yaml:"certFile" mapstructure:"certFile"`
	KeyFile    string `yaml:"keyFile" mapstructure:"keyFile"`
	MinVersion string `yaml:"minVersion" mapstructure:"minVersion"` // "1.2" or "1.3"
}

// ListenerConfig is one entry of the top-level `listeners:` YAML list.
type ListenerConfig struct {
	Name              string     `yaml:"name" mapstructure:"name"`
	Scheme            string     `yaml:"scheme" mapstructure:"scheme"` // tcp|udp|unix|ssl
	Address           string     `yaml:"address" mapstructure:"address"`
	Count             int        `yaml:"count" mapstructure:"count"`
	Reloadable        bool       `yaml:"reloadable" mapstructure:"reloadable"`
	ReusePort         bool       `yaml:"reusePort" mapstructure:"reusePort"`
	User              string     `yaml:"user" mapstructure:"user"`
	Group             string     `yaml:"group" mapstructure:"group"`
	Protocol          string     `yaml:"protocol" mapstructure:"protocol"` // text|frame|http|websocket
	MaxPackageSize    int        `yaml:"maxPackageSize" mapstructure:"maxPackageSize"`
	MaxSendBufferSize int        `yaml:"maxSendBufferSize" mapstructure:"maxSendBufferSize"`
	TLS               *TLSOptions `yaml:"tls" mapstructure:"tls"`
}

// Config is the top-level document: a list of listeners plus the packaged
// mime.types override path (empty means "use the embedded default").
type Config struct {
	Listeners     []ListenerConfig `yaml:"listeners" mapstructure:"listeners"`
	MimeTypesFile string           `yaml:"mimeTypesFile" mapstructure:"mimeTypesFile"`
	PIDFile       string           `yaml:"pidFile" mapstructure:"pidFile"`
	StatusFile    string           `yaml:"statusFile" mapstructure:"statusFile"`

	// BinaryUpgrade opts into tableflip-based zero-downtime master binary
	// swaps on graceful reload (SIGUSR2), on top of the ordinary worker
	// recycle that verb always does.
	BinaryUpgrade bool `yaml:"binaryUpgrade" mapstructure:"binaryUpgrade"`
}

// LoadConfig reads path (YAML) via viper into a Config.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("control: read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("control: unmarshal config %s: %w", path, err)
	}
	return &cfg, nil
}

// ToSpec converts the serializable fields into a listener.Spec; Protocol,
// Callbacks and Pool are left zero for the caller to attach.
func (c ListenerConfig) ToSpec() (listener.Spec, error) {
	spec := listener.Spec{
		Scheme:            listener.Transport(c.Scheme),
		Address:           c.Address,
		Count:             c.Count,
		Reloadable:        c.Reloadable,
		ReusePort:         c.ReusePort,
		User:              c.User,
		Group:             c.Group,
		MaxPackageSize:    c.MaxPackageSize,
		MaxSendBufferSize: c.MaxSendBufferSize,
	}
	if c.TLS != nil {
		cert, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return listener.Spec{}, fmt.Errorf("control: load TLS keypair for %s: %w", c.Name, err)
		}
		spec.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tlsMinVersion(c.TLS.MinVersion),
		}
	}
	return spec, nil
}

func tlsMinVersion(s string) uint16 {
	switch s {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}

// Dump round-trips a Config back to normalized YAML bytes.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
