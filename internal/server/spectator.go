// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"strings"

	"github.com/nishisan-dev/n-battleship/internal/game"
	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// spectate roda o chat room de um client em fila durante uma partida.
// Termina quando a partida acaba (done) ou quando o client cai.
func (srv *Server) spectate(s *Session, done <-chan struct{}) {
	if err := s.Ch.Send(protocol.TagSpectator, "You are now in the queue's chat room"); err != nil {
		srv.dropSpectator(s)
		return
	}
	s.Ch.Send(protocol.TagInfo, "You can send and read other people's messages")
	s.Ch.Send(protocol.TagInfo, "Match status will also be broadcasted here")

	for {
		select {
		case line := <-s.Ch.Lines():
			if strings.TrimSpace(line) == "" {
				continue
			}
			srv.broadcast(line, s.Username)
		case <-done:
			s.Ch.Send(protocol.TagPlayer, "Temporarily closing chat room, you might play next!")
			return
		case <-s.Ch.Done():
			srv.dropSpectator(s)
			return
		}
	}
}

// dropSpectator remove da fila um spectator cuja conexão caiu.
func (srv *Server) dropSpectator(s *Session) {
	srv.lobby.Remove(s)
	s.Ch.Close()
	srv.logger.Info("spectator disconnected", "player", s.Username)
}

// broadcast entrega a mensagem a todos os clients em fila. O originador
// recebe o eco com prefixo "You:"; os demais veem "<origin>: msg". Falhas de
// envio são engolidas — spectators mortos são colhidos pelo próprio spectate.
func (srv *Server) broadcast(msg, origin string) {
	for _, s := range srv.lobby.Snapshot() {
		if s.Username == origin {
			s.Ch.Send(protocol.TagChatEcho, "You: "+msg)
			continue
		}
		s.Ch.Send(protocol.TagChat, origin+": "+msg)
	}
}

// broadcastBoard entrega o render de um tabuleiro a todos os clients em fila.
func (srv *Server) broadcastBoard(b *game.Board) {
	render := b.Render(false)
	for _, s := range srv.lobby.Snapshot() {
		s.Ch.SendGrid(render)
	}
}
