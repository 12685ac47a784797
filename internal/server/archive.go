// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/nishisan-dev/n-battleship/internal/config"
	"github.com/nishisan-dev/n-battleship/internal/game"
)

// Transcript é o registro de uma partida, serializado como JSONL comprimido:
// uma linha de metadados seguida de uma linha por evento.
type Transcript struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Players    [2]string `json:"players"`
	Outcome    string    `json:"outcome"` // victory|forfeit|abandoned
	Winner     string    `json:"winner,omitempty"`
	Events     []Event   `json:"-"`
}

// Event é um tiro registrado no transcript.
type Event struct {
	At     time.Time       `json:"at"`
	Player string          `json:"player"`
	Coord  string          `json:"coord"`
	Result game.FireResult `json:"result"`
	Sunk   string          `json:"sunk,omitempty"`
}

// addShot registra o tiro de um turno concluído.
func (t *Transcript) addShot(player string, out outcome) {
	t.Events = append(t.Events, Event{
		At:     time.Now().UTC(),
		Player: player,
		Coord:  out.coord,
		Result: out.result,
		Sunk:   out.sunk,
	})
}

// Archiver persiste transcripts de partidas em disco (escrita atômica via
// temp + rename, com rotação) e opcionalmente os envia para S3.
type Archiver struct {
	cfg    config.ArchiveConfig
	logger *slog.Logger
	s3c    *s3.Client
}

// NewArchiver cria o Archiver, o diretório de destino e, se configurado, o
// client S3.
func NewArchiver(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*Archiver, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating transcript directory: %w", err)
	}

	a := &Archiver{
		cfg:    cfg,
		logger: logger.With("component", "archiver"),
	}

	if cfg.S3.Enabled {
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.S3.Region),
		}
		if cfg.S3.AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.S3.AccessKey, cfg.S3.SecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		a.s3c = s3.NewFromConfig(awsCfg)
	}

	return a, nil
}

// Store grava o transcript em disco e dispara o upload, se configurado.
// Erros são logados, nunca propagados — arquivamento não afeta o gameplay.
func (a *Archiver) Store(t *Transcript) {
	path, err := a.write(t)
	if err != nil {
		a.logger.Error("storing transcript", "error", err)
		return
	}
	a.logger.Info("transcript stored", "path", path)

	if err := a.rotate(); err != nil {
		a.logger.Warn("rotating transcripts", "error", err)
	}

	if a.s3c != nil {
		if err := a.upload(context.Background(), path); err != nil {
			a.logger.Error("uploading transcript", "error", err)
		}
	}
}

func (a *Archiver) write(t *Transcript) (string, error) {
	f, err := os.CreateTemp(a.cfg.Dir, "transcript-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	comp, err := a.newCompressor(f)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}

	if err := writeJSONL(comp, t); err != nil {
		comp.Close()
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("encoding transcript: %w", err)
	}
	if err := comp.Close(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("flushing compressor: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	timestamp := t.FinishedAt.Format("2006-01-02T15-04-05")
	finalName := fmt.Sprintf("%s_%s_vs_%s%s", timestamp, t.Players[0], t.Players[1], a.cfg.FileExtension())
	finalPath := filepath.Join(a.cfg.Dir, finalName)

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp to final: %w", err)
	}
	return finalPath, nil
}

// newCompressor cria o io.WriteCloser de compressão conforme a configuração.
func (a *Archiver) newCompressor(w io.Writer) (io.WriteCloser, error) {
	if a.cfg.Compression == "zst" {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
	gzWriter, err := pgzip.NewWriterLevel(w, pgzip.BestSpeed)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	return gzWriter, nil
}

// writeJSONL serializa o transcript: linha de metadados, depois uma linha por
// evento.
func writeJSONL(w io.Writer, t *Transcript) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(t); err != nil {
		return err
	}
	for _, ev := range t.Events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

// rotate remove transcripts excedentes, mantendo os mais recentes.
func (a *Archiver) rotate() error {
	entries, err := os.ReadDir(a.cfg.Dir)
	if err != nil {
		return fmt.Errorf("reading transcript directory: %w", err)
	}

	ext := a.cfg.FileExtension()
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ext) {
			files = append(files, e.Name())
		}
	}

	// Nome começa com timestamp, ordenação lexicográfica é cronológica.
	sort.Strings(files)

	if len(files) > a.cfg.MaxTranscripts {
		for _, name := range files[:len(files)-a.cfg.MaxTranscripts] {
			if err := os.Remove(filepath.Join(a.cfg.Dir, name)); err != nil {
				return fmt.Errorf("removing old transcript %s: %w", name, err)
			}
		}
	}
	return nil
}

func (a *Archiver) upload(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading transcript for upload: %w", err)
	}

	key := filepath.Base(path)
	if a.cfg.S3.Prefix != "" {
		key = strings.TrimSuffix(a.cfg.S3.Prefix, "/") + "/" + key
	}

	_, err = a.s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.cfg.S3.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("putting transcript to s3: %w", err)
	}
	a.logger.Info("transcript uploaded", "bucket", a.cfg.S3.Bucket, "key", key)
	return nil
}
