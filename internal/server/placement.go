// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nishisan-dev/n-battleship/internal/game"
	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// errPlacementFailed indica que o jogador estourou o deadline de
// posicionamento ou caiu durante a fase.
var errPlacementFailed = errors.New("server: placement failed")

// runPlacement roda a fase de posicionamento dos dois jogadores em paralelo,
// com deadline compartilhado. Retorna os índices dos jogadores que falharam
// (timeout ou queda); vazio significa que ambos terminaram.
func (srv *Server) runPlacement(players [2]*Session, boards [2]*game.Board) []int {
	deadline := time.Now().Add(srv.cfg.Timers.Placement)

	results := make(chan int, 2) // índice do jogador que falhou, -1 ok
	for i := 0; i < 2; i++ {
		go func(i int) {
			if err := srv.placeFleet(players[i], boards[i], deadline); err != nil {
				results <- i
				return
			}
			results <- -1
		}(i)
	}

	var failed []int
	for i := 0; i < 2; i++ {
		if idx := <-results; idx >= 0 {
			failed = append(failed, idx)
		}
	}
	return failed
}

// placeFleet guia um jogador pelo posicionamento da frota inteira.
// Entradas inválidas re-promptam; o deadline encerra a sessão com o frame de
// término X.
func (srv *Server) placeFleet(s *Session, b *game.Board, deadline time.Time) error {
	if err := s.Ch.Send(protocol.TagInfo, "[Ship Placement] Enter coordinates as prompted:"); err != nil {
		return errPlacementFailed
	}
	s.Ch.Send(protocol.TagInfo, "Please place your ships manually on the board.")

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for _, ship := range game.Fleet {
		s.Ch.SendGrid(b.Render(true))
		s.Ch.Send(protocol.TagInfo, fmt.Sprintf("Placing your %s (size %d).", ship.Name, ship.Size))
		srv.sendPlacementPrompt(s)

		for {
			var line string
			select {
			case line = <-s.Ch.Lines():
			case <-timer.C:
				srv.logger.Info("placement deadline expired", "player", s.Username)
				s.Ch.WriteControl(protocol.ControlTerminate)
				s.Ch.Close()
				return errPlacementFailed
			case <-s.Ch.Done():
				srv.logger.Info("player disconnected during placement", "player", s.Username)
				return errPlacementFailed
			}

			if srv.tryPlace(s, b, ship, line) {
				break
			}
			srv.sendPlacementPrompt(s)
		}
	}

	s.Ch.SendGrid(b.Render(true))
	if err := s.Ch.Send(protocol.TagStatus, "Placement finished. Here is your board. Waiting for opponent..."); err != nil {
		return errPlacementFailed
	}
	srv.logger.Info("placement finished", "player", s.Username)
	return nil
}

// sendPlacementPrompt envia as instruções de posicionamento e o prompt que
// libera o input do client.
func (srv *Server) sendPlacementPrompt(s *Session) {
	s.Ch.Send(protocol.TagInfo, "For Coordinate, enter row letter followed by number column")
	s.Ch.Send(protocol.TagInfo, "For Orientation, enter 'H' (horizontal) or 'V' (vertical)")
	s.Ch.Send(protocol.TagPrompt, "Enter starting coordinate and orientation (e.g. A1 H):")
}

// tryPlace parseia "<coord> <H|V>" e tenta posicionar o navio. Retorna se o
// posicionamento foi aceito; rejeições já foram reportadas ao jogador.
func (srv *Server) tryPlace(s *Session, b *game.Board, ship game.Ship, line string) bool {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		s.Ch.Send(protocol.TagInfo, "[!] Invalid Input Format")
		return false
	}

	row, col, err := game.ParseCoordinate(fields[0])
	if err != nil {
		s.Ch.Send(protocol.TagInfo, fmt.Sprintf("[!] Invalid coordinate: %v", err))
		return false
	}

	o, err := game.ParseOrientation(fields[1])
	if err != nil {
		s.Ch.Send(protocol.TagInfo, "[!] Invalid orientation. Please enter 'H' or 'V'.")
		return false
	}

	if err := b.Place(ship.Name, ship.Size, row, col, o); err != nil {
		orient := "H"
		if o == game.Vertical {
			orient = "V"
		}
		s.Ch.Send(protocol.TagInfo, fmt.Sprintf("[!] Cannot place %s at %s (orientation=%s). Try again.",
			ship.Name, game.FormatCoordinate(row, col), orient))
		return false
	}
	return true
}
