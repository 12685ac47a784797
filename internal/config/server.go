// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig representa a configuração completa do nbattle-server.
type ServerConfig struct {
	Server        ServerListen   `yaml:"server"`
	Lobby         LobbyInfo      `yaml:"lobby"`
	Timers        TimersInfo     `yaml:"timers"`
	Logging       LoggingInfo    `yaml:"logging"`
	Stats         StatsInfo      `yaml:"stats"`
	Announcements []Announcement `yaml:"announcements"`
	Archive       ArchiveConfig  `yaml:"archive"`
}

// ServerListen contém o endereço de escuta do server.
type ServerListen struct {
	Listen string `yaml:"listen"` // default: "127.0.0.2:5000"
}

// LobbyInfo configura a fila de espera e o matchmaker.
type LobbyInfo struct {
	Capacity      int           `yaml:"capacity"`       // default: 10
	MatchCooldown time.Duration `yaml:"match_cooldown"` // default: 5s
}

// TimersInfo concentra todas as janelas de tempo do protocolo e do jogo.
type TimersInfo struct {
	Turn          time.Duration `yaml:"turn"`           // default: 30s
	Placement     time.Duration `yaml:"placement"`      // default: 180s
	ReconnectWait time.Duration `yaml:"reconnect_wait"` // default: 60s
	AckWindow     time.Duration `yaml:"ack_window"`     // default: 30s
	AckAttempts   int           `yaml:"ack_attempts"`   // default: 3
	ProbeWindow   time.Duration `yaml:"probe_window"`   // default: 5s
}

// StatsInfo configura o stats reporter periódico.
type StatsInfo struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"` // default: 15s
}

// Announcement é uma mensagem broadcast agendada via cron expression.
type Announcement struct {
	Schedule string `yaml:"schedule"` // ex: "0 */6 * * *"
	Message  string `yaml:"message"`
}

// ArchiveConfig configura o arquivamento de transcripts de partidas.
// Desabilitado por default; o gameplay não depende de estado persistido.
type ArchiveConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Dir            string   `yaml:"dir"`             // default: "transcripts"
	Compression    string   `yaml:"compression"`     // gzip|zst (default: gzip)
	MaxTranscripts int      `yaml:"max_transcripts"` // default: 100
	S3             S3Config `yaml:"s3"`
}

// S3Config configura o upload opcional de transcripts para S3.
type S3Config struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"` // vazio => credential chain default
	SecretKey string `yaml:"secret_key"`
}

// LoggingInfo contém configurações de logging.
type LoggingInfo struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FileExtension retorna a extensão de arquivo para transcripts deste archive.
func (a ArchiveConfig) FileExtension() string {
	if a.Compression == "zst" {
		return ".jsonl.zst"
	}
	return ".jsonl.gz"
}

// DefaultServerConfig retorna uma configuração com todos os defaults
// aplicados, utilizável sem arquivo YAML.
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig lê e valida o arquivo YAML de configuração do server.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading server config: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating server config: %w", err)
	}

	return &cfg, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.2:5000"
	}
	if c.Lobby.Capacity <= 0 {
		c.Lobby.Capacity = 10
	}
	if c.Lobby.MatchCooldown <= 0 {
		c.Lobby.MatchCooldown = 5 * time.Second
	}
	if c.Timers.Turn <= 0 {
		c.Timers.Turn = 30 * time.Second
	}
	if c.Timers.Placement <= 0 {
		c.Timers.Placement = 180 * time.Second
	}
	if c.Timers.ReconnectWait <= 0 {
		c.Timers.ReconnectWait = 60 * time.Second
	}
	if c.Timers.AckWindow <= 0 {
		c.Timers.AckWindow = 30 * time.Second
	}
	if c.Timers.AckAttempts <= 0 {
		c.Timers.AckAttempts = 3
	}
	if c.Timers.ProbeWindow <= 0 {
		c.Timers.ProbeWindow = 5 * time.Second
	}
	if c.Stats.Interval <= 0 {
		c.Stats.Interval = 15 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "transcripts"
	}
	if c.Archive.Compression == "" {
		c.Archive.Compression = "gzip"
	}
	if c.Archive.MaxTranscripts <= 0 {
		c.Archive.MaxTranscripts = 100
	}
}

func (c *ServerConfig) validate() error {
	c.applyDefaults()

	c.Archive.Compression = strings.ToLower(strings.TrimSpace(c.Archive.Compression))
	if c.Archive.Compression != "gzip" && c.Archive.Compression != "zst" {
		return fmt.Errorf("archive.compression must be gzip or zst, got %q", c.Archive.Compression)
	}
	if c.Archive.S3.Enabled {
		if !c.Archive.Enabled {
			return fmt.Errorf("archive.s3.enabled requires archive.enabled")
		}
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("archive.s3.bucket is required when s3 upload is enabled")
		}
		if c.Archive.S3.Region == "" {
			return fmt.Errorf("archive.s3.region is required when s3 upload is enabled")
		}
		if (c.Archive.S3.AccessKey == "") != (c.Archive.S3.SecretKey == "") {
			return fmt.Errorf("archive.s3.access_key and secret_key must be set together")
		}
	}
	for i, a := range c.Announcements {
		if strings.TrimSpace(a.Schedule) == "" {
			return fmt.Errorf("announcements[%d].schedule is required", i)
		}
		if strings.TrimSpace(a.Message) == "" {
			return fmt.Errorf("announcements[%d].message is required", i)
		}
	}
	return nil
}
