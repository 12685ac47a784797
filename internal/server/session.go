// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"net"

	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// Session representa um client conectado: identidade e handle de I/O.
// Uma sessão tem exatamente um dono por vez — lobby, partida ou slot de
// reconexão; a posse transfere junto com o ponteiro.
type Session struct {
	Username string
	Conn     net.Conn
	Ch       *protocol.Channel
}

// newSession constrói a sessão e o canal confiável sobre a conexão.
func (srv *Server) newSession(conn net.Conn) *Session {
	ch := protocol.NewChannel(conn)
	ch.AckWindow = srv.cfg.Timers.AckWindow
	ch.MaxAttempts = srv.cfg.Timers.AckAttempts
	return &Session{Conn: conn, Ch: ch}
}

// handleConnection negocia o username e roteia a sessão: slot de reconexão,
// fila do lobby, ou rejeição por fila cheia.
func (srv *Server) handleConnection(conn net.Conn) {
	srv.ActiveConns.Add(1)
	defer srv.ActiveConns.Add(-1)

	logger := srv.logger.With("remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	s := srv.newSession(conn)

	if err := s.Ch.Send(protocol.TagPrompt, "Please enter your username:"); err != nil {
		logger.Warn("username prompt failed", "error", err)
		s.Ch.Close()
		return
	}

	select {
	case line := <-s.Ch.Lines():
		s.Username = line
	case <-s.Ch.Done():
		logger.Info("client left before sending username")
		s.Ch.Close()
		return
	}
	logger = logger.With("player", s.Username)

	// Reconexão: o username bate com o jogador em janela de graça.
	// A posse transfere para a partida que abriu o slot; ela deve reivindicar
	// a sessão dentro da janela ou descartá-la.
	if srv.lobby.OfferReconnect(s) {
		logger.Info("session parked in reconnect slot")
		return
	}

	if err := srv.lobby.Enqueue(s); err != nil {
		logger.Info("queue full, rejecting client")
		s.Ch.Send(protocol.TagStatus, "[NOTICE] Queue is full, please try again later.")
		s.Ch.Close()
		return
	}
	logger.Info("client enqueued", "queue_len", srv.lobby.Len())

	if err := s.Ch.Send(protocol.TagStatus, "You're in queue. Waiting for match..."); err != nil {
		logger.Warn("enqueue notice failed", "error", err)
		srv.lobby.Remove(s)
		s.Ch.Close()
		return
	}

	if done, ok := srv.matchDone(); ok {
		// Partida em andamento: a sessão espera como spectator com chat.
		go srv.spectate(s, done)
		return
	}
	srv.tryStartMatch()
}
