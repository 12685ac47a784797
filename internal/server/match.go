// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/nishisan-dev/n-battleship/internal/game"
	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// runMatch prepara e executa uma partida entre duas sessões extraídas da
// fila: fase de posicionamento, sorteio do primeiro jogador e loop de turnos.
func (srv *Server) runMatch(ctx context.Context, p1, p2 *Session) {
	srv.playMatch(ctx, [2]*Session{p1, p2}, srv.rng.Intn(2))
}

// playMatch roda a partida com o primeiro jogador já decidido (os testes
// injetam first explicitamente).
func (srv *Server) playMatch(ctx context.Context, players [2]*Session, first int) {
	logger := srv.logger.With("p1", players[0].Username, "p2", players[1].Username)
	logger.Info("match starting")
	srv.broadcast("New game started between two players.", "SERVER")

	for _, p := range players {
		p.Ch.Send(protocol.TagPlayer, "Welcome to Battleship Multiplayer")
	}

	boards := [2]*game.Board{game.NewBoard(), game.NewBoard()}
	if failed := srv.runPlacement(players, boards); len(failed) > 0 {
		srv.cancelMatch(players, failed)
		return
	}

	transcript := &Transcript{
		StartedAt: time.Now().UTC(),
		Players:   [2]string{players[0].Username, players[1].Username},
	}

	cur := first
	skipped := [2]bool{}

	for {
		other := 1 - cur
		srv.broadcast(fmt.Sprintf("%s's turn.", players[cur].Username), "SERVER")

		out := srv.runTurn(players[cur], players[other], boards[other])
		switch out.kind {
		case gameFinished:
			winner := players[cur].Username
			transcript.addShot(winner, out)
			transcript.Outcome = "victory"
			transcript.Winner = winner
			srv.MatchesPlayed.Add(1)
			srv.broadcast(fmt.Sprintf("Game over! All ships sunk. %s wins!", winner), "SERVER")
			for i, p := range players {
				srv.broadcast(fmt.Sprintf("%s's board state:", p.Username), "SERVER")
				srv.broadcastBoard(boards[i])
			}
			logger.Info("match finished", "winner", winner)

		case allForfeit:
			transcript.Outcome = "forfeit"
			logger.Info("both players forfeited")
			for _, p := range players {
				p.Ch.Close()
			}
			players = [2]*Session{}

		case playerDC, otherPlayerDC:
			idx := cur
			if out.kind == otherPlayerDC {
				idx = other
			}
			if rc := srv.awaitReconnect(ctx, players[idx]); rc != nil {
				players[idx] = rc
				logger = srv.logger.With("p1", players[0].Username, "p2", players[1].Username)
				rc.Ch.Send(protocol.TagPlayer, fmt.Sprintf("Welcome back, %s", rc.Username))
				logger.Info("player reconnected", "player", rc.Username)
				continue // refaz o mesmo turno
			}
			transcript.Outcome = "abandoned"
			logger.Info("player did not reconnect", "player", players[idx].Username)
			players[idx].Ch.Close()
			players[idx] = nil

		case turnCompleted:
			transcript.addShot(players[cur].Username, out)
			msg := fmt.Sprintf("%s fired at %s: %s", players[cur].Username, out.coord, out.result)
			if out.sunk != "" {
				msg += fmt.Sprintf(" (Sank %s)", out.sunk)
			}
			srv.broadcast(msg, "SERVER")
			srv.broadcast(fmt.Sprintf("%s's board state:", players[other].Username), "SERVER")
			srv.broadcastBoard(boards[other])
			skipped[cur] = false
			cur = other
			continue

		case turnTimeout:
			srv.broadcast(fmt.Sprintf("%s has timed out, their turn will be skipped", players[cur].Username), "SERVER")
			if skipped[cur] {
				// Segundo timeout consecutivo do mesmo jogador: forfeit.
				transcript.Outcome = "forfeit"
				transcript.Winner = players[other].Username
				players[other].Ch.Send(protocol.TagInfo,
					fmt.Sprintf("GAME_OVER %s is AFK, immediate forfeit, You Win!", players[cur].Username))
				players[cur].Ch.WriteControl(protocol.ControlTerminate)
				players[cur].Ch.Close()
				players[cur] = nil
				logger.Info("player forfeited by inactivity")
			} else {
				skipped[cur] = true
				cur = other
				continue
			}
		}
		break
	}

	transcript.FinishedAt = time.Now().UTC()
	srv.broadcast("Game ended. Waiting for next match.", "SERVER")
	srv.requeueSurvivors(players)

	if srv.archiver != nil {
		go srv.archiver.Store(transcript)
	}
}

// cancelMatch desfaz uma partida cujo posicionamento falhou: sobreviventes
// voltam à frente da fila e os spectators são avisados.
func (srv *Server) cancelMatch(players [2]*Session, failed []int) {
	srv.broadcast("player(s) timed out or disconnected match cancelled", "SERVER")
	srv.broadcast("picking new players to start a match...", "SERVER")

	failedSet := map[int]bool{}
	for _, i := range failed {
		failedSet[i] = true
	}
	for i, p := range players {
		if failedSet[i] {
			p.Ch.Close()
			continue
		}
		p.Ch.Send(protocol.TagStatus, "Other Player disconnected, looking for new opponent..")
		srv.lobby.PushFront(p)
	}
}

// awaitReconnect abre a janela de graça para o jogador caído e espera uma
// nova sessão com o mesmo username reivindicar a vaga. Retorna nil se a
// janela expira.
func (srv *Server) awaitReconnect(ctx context.Context, old *Session) *Session {
	old.Ch.Close()
	srv.lobby.MarkDisconnected(old.Username)

	deadline := time.Now().Add(srv.cfg.Timers.ReconnectWait)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ticker.C:
			if rc := srv.lobby.TakeReconnected(old.Username); rc != nil {
				if rc.Ch.Alive() {
					return rc
				}
				rc.Ch.Close()
				srv.lobby.MarkDisconnected(old.Username)
			}
		case <-ctx.Done():
			if leftover := srv.lobby.ClearReconnect(); leftover != nil {
				leftover.Ch.Close()
			}
			return nil
		}
	}

	if leftover := srv.lobby.ClearReconnect(); leftover != nil {
		leftover.Ch.Close()
	}
	return nil
}

// requeueSurvivors devolve à fila os jogadores cuja conexão sobreviveu ao fim
// da partida.
func (srv *Server) requeueSurvivors(players [2]*Session) {
	var survivors []*Session
	for _, p := range players {
		if p != nil && p.Ch.Alive() {
			survivors = append(survivors, p)
		}
	}

	// Sobrevivente único de um DC volta à frente da fila; o fim normal de
	// partida devolve ambos ao fim.
	if len(survivors) == 1 {
		p := survivors[0]
		p.Ch.Send(protocol.TagStatus, "[Opponent disconnected] You win!")
		if err := p.Ch.Send(protocol.TagStatus, "You're back in the queue, waiting for match.."); err != nil {
			p.Ch.Close()
			return
		}
		srv.lobby.PushFront(p)
		return
	}

	for _, p := range survivors {
		if err := p.Ch.Send(protocol.TagStatus, "You're back in the queue, waiting for match.."); err != nil {
			p.Ch.Close()
			continue
		}
		if err := srv.lobby.Enqueue(p); err != nil {
			p.Ch.Send(protocol.TagStatus, "[NOTICE] Queue is full, please try again later.")
			p.Ch.Close()
		}
	}
}
