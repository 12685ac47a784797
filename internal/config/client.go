// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig representa a configuração do nbattle-client.
type ClientConfig struct {
	Server  ServerAddr  `yaml:"server"`
	Chat    ChatInfo    `yaml:"chat"`
	Logging LoggingInfo `yaml:"logging"`
}

// ServerAddr contém o endereço do servidor de jogo.
type ServerAddr struct {
	Address string `yaml:"address"` // default: "127.0.0.2:5000"
}

// ChatInfo configura o throttle de chat do client.
type ChatInfo struct {
	Cooldown time.Duration `yaml:"cooldown"` // default: 2s
	MaxInput int           `yaml:"max_input"` // default: 100
}

// DefaultClientConfig retorna uma configuração com defaults aplicados,
// utilizável sem arquivo YAML.
func DefaultClientConfig() *ClientConfig {
	cfg := &ClientConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadClientConfig lê e valida o arquivo YAML de configuração do client.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ClientConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "127.0.0.2:5000"
	}
	if c.Chat.Cooldown <= 0 {
		c.Chat.Cooldown = 2 * time.Second
	}
	if c.Chat.MaxInput <= 0 {
		c.Chat.MaxInput = 100
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}
