// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 heatlink contributors

package cmd

import (
	"os"

	"github.com/BurntSushi/toml"
)

// ConnectionConfig holds the default transport settings a config.toml can
// supply; CLI flags always override whatever is loaded here.
type ConnectionConfig struct {
	Port     string `toml:"port"`
	Baud     int    `toml:"baud"`
	URL      string `toml:"url"`
	Username string `toml:"username"`
}

// ProtocolConfig holds the default decoder protocol and registry behavior.
type ProtocolConfig struct {
	Name          string `toml:"name"`
	AutoDiscovery bool   `toml:"auto_discovery"`
}

// Config is the top-level config.toml shape.
type Config struct {
	Connection ConnectionConfig `toml:"connection"`
	Protocol   ProtocolConfig   `toml:"protocol"`
}

// LoadConfig reads config.toml from the given path. A missing file is not
// an error: it just means every setting falls back to its flag default.
func LoadConfig(path string) (Config, error) {
	var conf Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		return conf, err
	}
	if err := toml.Unmarshal(data, &conf); err != nil {
		return conf, err
	}
	return conf, nil
}
