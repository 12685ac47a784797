// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"errors"
	"sync"
)

// ErrQueueFull indica que a fila do lobby atingiu a capacidade.
var ErrQueueFull = errors.New("server: lobby queue full")

// Lobby é a fila FIFO limitada de clients fora de partida, mais os dois
// slots de reconexão e a flag de partida em andamento. Todo o estado mutável
// compartilhado do server vive aqui, atrás de um único mutex; o mutex nunca
// é segurado através de I/O de rede.
type Lobby struct {
	mu       sync.Mutex
	queue    []*Session
	capacity int

	gameRunning bool

	// dcedPlayer é o username com janela de reconexão aberta;
	// rcedPlayer é a sessão recém-chegada cujo username bateu.
	dcedPlayer string
	rcedPlayer *Session
}

// NewLobby cria um lobby com a capacidade dada.
func NewLobby(capacity int) *Lobby {
	return &Lobby{capacity: capacity}
}

// Enqueue adiciona a sessão ao fim da fila. Retorna ErrQueueFull se a fila
// está na capacidade.
func (l *Lobby) Enqueue(s *Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) >= l.capacity {
		return ErrQueueFull
	}
	l.queue = append(l.queue, s)
	return nil
}

// PushFront devolve uma sessão à frente da fila (sobrevivente de partida
// cancelada tem prioridade no próximo pareamento).
func (l *Lobby) PushFront(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append([]*Session{s}, l.queue...)
}

// PopFront remove e retorna a cabeça da fila, ou nil se vazia.
func (l *Lobby) PopFront() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	s := l.queue[0]
	l.queue = l.queue[1:]
	return s
}

// Remove tira a sessão da fila, se presente.
func (l *Lobby) Remove(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, q := range l.queue {
		if q == s {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

// Len retorna o tamanho atual da fila.
func (l *Lobby) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Snapshot retorna uma cópia da fila atual, para broadcast sem segurar o
// mutex através de I/O.
func (l *Lobby) Snapshot() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Session, len(l.queue))
	copy(out, l.queue)
	return out
}

// TryStartGame marca gameRunning se nenhuma partida está em andamento e a
// fila tem pelo menos dois clients. Retorna se o caller ganhou o direito de
// rodar o matchmaker.
func (l *Lobby) TryStartGame() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gameRunning || len(l.queue) < 2 {
		return false
	}
	l.gameRunning = true
	return true
}

// SetGameRunning força o estado da flag (fim de partida ou matchmaker sem
// jogadores suficientes).
func (l *Lobby) SetGameRunning(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gameRunning = v
}

// GameRunning reporta se há partida em andamento.
func (l *Lobby) GameRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gameRunning
}

// MarkDisconnected abre a janela de reconexão para o username dado.
func (l *Lobby) MarkDisconnected(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dcedPlayer = username
	l.rcedPlayer = nil
}

// ClearReconnect fecha a janela de reconexão, descartando qualquer sessão
// estacionada que não foi reivindicada.
func (l *Lobby) ClearReconnect() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.rcedPlayer
	l.dcedPlayer = ""
	l.rcedPlayer = nil
	return s
}

// OfferReconnect estaciona a sessão no slot de reconexão se o username dela
// bate com a janela aberta. Retorna se a posse foi transferida.
func (l *Lobby) OfferReconnect(s *Session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dcedPlayer == "" || s.Username != l.dcedPlayer {
		return false
	}
	if l.rcedPlayer != nil {
		// Já existe uma sessão estacionada para este username; a mais
		// recente vence e a antiga é descartada pelo claim.
		l.rcedPlayer.Ch.Close()
	}
	l.rcedPlayer = s
	return true
}

// TakeReconnected reivindica a sessão estacionada se o username bate com a
// janela aberta, limpando ambos os slots. Retorna nil se nada chegou ainda.
func (l *Lobby) TakeReconnected(username string) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rcedPlayer == nil || l.rcedPlayer.Username != username {
		return nil
	}
	s := l.rcedPlayer
	l.dcedPlayer = ""
	l.rcedPlayer = nil
	return s
}
