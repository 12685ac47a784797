// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package server implementa o servidor multiplayer de Battleship
// (nbattle-server): lobby com matchmaking, partidas de dois jogadores com
// reconexão, e plano de broadcast para spectators.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nishisan-dev/n-battleship/internal/config"
)

// Server é o estado raiz do nbattle-server.
type Server struct {
	cfg      *config.ServerConfig
	logger   *slog.Logger
	lobby    *Lobby
	archiver *Archiver

	ctx context.Context

	// rng decide o primeiro jogador de cada partida. Acessado apenas pela
	// goroutine do matchmaker.
	rng *rand.Rand

	// specDone é fechado quando a partida corrente termina; os spectators
	// escutam nele para encerrar o chat room.
	specMu   sync.Mutex
	specDone chan struct{}

	// Métricas observáveis pelo stats reporter.
	ActiveConns   atomic.Int32
	MatchesPlayed atomic.Int64
	ShotsFired    atomic.Int64
}

// NewServer monta o Server a partir da configuração.
func NewServer(cfg *config.ServerConfig, logger *slog.Logger) (*Server, error) {
	srv := &Server{
		cfg:    cfg,
		logger: logger,
		lobby:  NewLobby(cfg.Lobby.Capacity),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.Archive.Enabled {
		a, err := NewArchiver(context.Background(), cfg.Archive, logger)
		if err != nil {
			return nil, fmt.Errorf("creating archiver: %w", err)
		}
		srv.archiver = a
	}
	return srv, nil
}

// Run inicia o servidor e bloqueia até o context ser cancelado.
func Run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}
	defer ln.Close()

	logger.Info("server listening", "address", cfg.Server.Listen)
	return RunWithListener(ctx, ln, cfg, logger)
}

// RunWithListener inicia o servidor com um listener já existente (testes).
func RunWithListener(ctx context.Context, ln net.Listener, cfg *config.ServerConfig, logger *slog.Logger) error {
	srv, err := NewServer(cfg, logger)
	if err != nil {
		return err
	}
	srv.ctx = ctx

	if cfg.Stats.Enabled {
		go srv.StartStatsReporter(ctx)
	}
	if len(cfg.Announcements) > 0 {
		announcer, err := NewAnnouncer(cfg.Announcements, logger, func(msg string) {
			srv.broadcast(msg, "SERVER")
		})
		if err != nil {
			return fmt.Errorf("creating announcer: %w", err)
		}
		announcer.Start()
		defer announcer.Stop(ctx)
	}

	// Fecha o listener quando o context for cancelado.
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				logger.Info("server shutdown complete")
				return nil
			default:
				logger.Error("accepting connection", "error", err)
				continue
			}
		}

		go srv.handleConnection(conn)
	}
}

// tryStartMatch dispara a goroutine do matchmaker se nenhuma partida está em
// andamento e há pelo menos dois clients na fila.
func (srv *Server) tryStartMatch() {
	if !srv.lobby.TryStartGame() {
		return
	}
	go srv.matchmake(srv.ctx)
}

// matchmake extrai dois clients vivos da fila, roda a partida de forma
// síncrona e repete enquanto houver jogadores suficientes.
func (srv *Server) matchmake(ctx context.Context) {
	for {
		p1 := srv.extractLive()
		if p1 == nil {
			srv.logger.Info("not enough players to start a game, waiting")
			srv.lobby.SetGameRunning(false)
			return
		}
		p2 := srv.extractLive()
		if p2 == nil {
			srv.logger.Info("not enough players to start a game, waiting")
			srv.lobby.PushFront(p1)
			srv.lobby.SetGameRunning(false)
			return
		}

		done := srv.openMatchDone()
		for _, s := range srv.lobby.Snapshot() {
			go srv.spectate(s, done)
		}

		srv.runMatch(ctx, p1, p2)
		srv.closeMatchDone()
		srv.lobby.SetGameRunning(false)
		srv.logger.Info("match finished, players returned to queue")

		select {
		case <-time.After(srv.cfg.Lobby.MatchCooldown):
		case <-ctx.Done():
			return
		}

		if !srv.lobby.TryStartGame() {
			return
		}
	}
}

// extractLive puxa sessões da cabeça da fila até achar uma que responda ao
// probe de liveness. Sessões mortas são fechadas e descartadas.
func (srv *Server) extractLive() *Session {
	for {
		s := srv.lobby.PopFront()
		if s == nil {
			return nil
		}
		if err := s.Ch.Probe(srv.cfg.Timers.ProbeWindow); err != nil {
			srv.logger.Info("dropping dead client from queue", "player", s.Username)
			s.Ch.Close()
			continue
		}
		return s
	}
}

// openMatchDone publica o canal de término da partida corrente.
func (srv *Server) openMatchDone() chan struct{} {
	srv.specMu.Lock()
	defer srv.specMu.Unlock()
	srv.specDone = make(chan struct{})
	return srv.specDone
}

// closeMatchDone sinaliza o fim da partida corrente aos spectators.
func (srv *Server) closeMatchDone() {
	srv.specMu.Lock()
	defer srv.specMu.Unlock()
	if srv.specDone != nil {
		close(srv.specDone)
		srv.specDone = nil
	}
}

// matchDone retorna o canal da partida corrente, se houver uma em andamento.
func (srv *Server) matchDone() (<-chan struct{}, bool) {
	srv.specMu.Lock()
	defer srv.specMu.Unlock()
	if srv.specDone == nil {
		return nil, false
	}
	return srv.specDone, true
}
