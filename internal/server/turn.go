// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/nishisan-dev/n-battleship/internal/game"
	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// outcomeKind classifica como um turno terminou.
type outcomeKind int

const (
	turnCompleted outcomeKind = iota
	turnTimeout
	playerDC      // o jogador da vez caiu ou pediu quit
	otherPlayerDC // o jogador em espera caiu ou pediu quit
	allForfeit    // ambos pediram quit no mesmo turno
	gameFinished  // o tiro afundou o último navio
)

// outcome é o resultado de um turno para o driver da partida.
type outcome struct {
	kind   outcomeKind
	coord  string
	result game.FireResult
	sunk   string
}

// runTurn executa um turno completo do jogador ativo contra o tabuleiro do
// oponente. Escuta os dois peers durante a espera: chat é intercalado sem
// consumir o turno, quit e queda interrompem. O timer do turno só para quando
// um tiro é aceito.
func (srv *Server) runTurn(active, waiting *Session, target *game.Board) outcome {
	waiting.Ch.Send(protocol.TagStatus, "Waiting for opponent to fire...")

	if err := active.Ch.Send(protocol.TagInfo, "[Opponent's Board]"); err != nil {
		return outcome{kind: playerDC}
	}
	active.Ch.SendGrid(target.Render(false))
	active.Ch.Send(protocol.TagInfo, "[Your turn!]")
	if err := active.Ch.Send(protocol.TagPrompt, `Enter coordinate to fire (e.g. B5) or type "quit" to disconnect:`); err != nil {
		return outcome{kind: playerDC}
	}

	timer := time.NewTimer(srv.cfg.Timers.Turn)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			active.Ch.Send(protocol.TagStatus, "Timeout occurred: Turn Skipped")
			waiting.Ch.Send(protocol.TagInfo, "Enemy has timed out their turn is skipped")
			return outcome{kind: turnTimeout}

		case line := <-waiting.Ch.Lines():
			if isQuit(line) {
				return srv.waitingGone(active)
			}
			if msg, ok := chatBody(line); ok {
				active.Ch.Send(protocol.TagChat, "[CHAT] Opponent: "+msg)
				waiting.Ch.Send(protocol.TagChatEcho, "[CHAT] You: "+msg)
			}
			// Qualquer outra linha do jogador em espera é ignorada.

		case <-waiting.Ch.Done():
			return srv.waitingGone(active)

		case line := <-active.Ch.Lines():
			if isQuit(line) {
				return srv.activeGone(waiting)
			}
			if msg, ok := chatBody(line); ok {
				waiting.Ch.Send(protocol.TagChat, "[CHAT] Opponent: "+msg)
				active.Ch.Send(protocol.TagChatEcho, "[CHAT] You: "+msg)
				continue
			}

			row, col, err := game.ParseCoordinate(line)
			if err != nil {
				active.Ch.Send(protocol.TagPrompt, "Invalid coordinate. Must be A-J followed by 1-10 (e.g. B5). Try again:")
				continue
			}

			result, sunk := target.FireAt(row, col)
			if result == game.AlreadyShot {
				active.Ch.Send(protocol.TagPrompt, "You already fired at this location. Try another target.")
				continue
			}
			timer.Stop()
			srv.ShotsFired.Add(1)

			coord := game.FormatCoordinate(row, col)
			return srv.resolveShot(active, waiting, target, coord, result, sunk)

		case <-active.Ch.Done():
			return srv.activeGone(waiting)
		}
	}
}

// waitingGone trata o sumiço do jogador em espera, distinguindo o quit
// simultâneo (o ativo também pediu quit) do caso normal.
func (srv *Server) waitingGone(active *Session) outcome {
	// Drena linhas já recebidas do ativo procurando um quit simultâneo.
	for {
		select {
		case line := <-active.Ch.Lines():
			if isQuit(line) {
				return outcome{kind: allForfeit}
			}
		default:
			active.Ch.Send(protocol.TagStatus, "Attempting to reconnect opponent, please wait...")
			return outcome{kind: otherPlayerDC}
		}
	}
}

// activeGone é o espelho de waitingGone para o sumiço do jogador da vez: um
// quit pendente do jogador em espera classifica o turno como desistência
// dupla, qualquer que seja o lado que o select entregou primeiro.
func (srv *Server) activeGone(waiting *Session) outcome {
	for {
		select {
		case line := <-waiting.Ch.Lines():
			if isQuit(line) {
				return outcome{kind: allForfeit}
			}
		default:
			waiting.Ch.Send(protocol.TagStatus, "Attempting to reconnect opponent, please wait...")
			return outcome{kind: playerDC}
		}
	}
}

// resolveShot entrega os renders e mensagens de resultado aos dois jogadores.
func (srv *Server) resolveShot(active, waiting *Session, target *game.Board, coord string, result game.FireResult, sunk string) outcome {
	active.Ch.Send(protocol.TagInfo, "[Opponent's Board]")
	active.Ch.SendGrid(target.Render(false))

	waiting.Ch.Send(protocol.TagInfo, "[Your Board]")
	waiting.Ch.SendGrid(target.Render(true))
	if err := waiting.Ch.Send(protocol.TagInfo, fmt.Sprintf("Opponent fired an attack on (%s)", coord)); err != nil {
		return outcome{kind: otherPlayerDC, coord: coord, result: result, sunk: sunk}
	}

	out := outcome{kind: turnCompleted, coord: coord, result: result, sunk: sunk}
	switch {
	case result == game.Hit && target.AllSunk():
		active.Ch.Send(protocol.TagInfo, "GAME_OVER All enemy ships sunk! You win!")
		waiting.Ch.Send(protocol.TagInfo, "GAME_OVER You lost! All your ships are sunk.")
		out.kind = gameFinished
	case result == game.Hit && sunk != "":
		active.Ch.Send(protocol.TagStatus, fmt.Sprintf("HIT! You sank the %s!", sunk))
		waiting.Ch.Send(protocol.TagInfo, fmt.Sprintf("HIT! Opponent sunk your %s!", sunk))
	case result == game.Hit:
		active.Ch.Send(protocol.TagStatus, "HIT!")
		waiting.Ch.Send(protocol.TagInfo, "HIT! Opponent hit your ship!")
	default:
		active.Ch.Send(protocol.TagStatus, "MISS!")
		waiting.Ch.Send(protocol.TagInfo, "MISS! Opponent missed!")
	}
	return out
}

// isQuit reporta se a linha é o comando de desistência do client.
func isQuit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "quit")
}

// chatBody extrai a mensagem de um comando "chat <msg>".
func chatBody(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) > 5 && strings.EqualFold(trimmed[:5], "chat ") {
		return strings.TrimSpace(trimmed[5:]), true
	}
	return "", false
}
