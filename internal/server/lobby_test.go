// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package server

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// newLobbySession cria uma sessão mínima sobre net.Pipe para testes do lobby.
func newLobbySession(t *testing.T, username string) *Session {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return &Session{Username: username, Conn: a, Ch: protocol.NewChannel(a)}
}

func TestLobby_EnqueueCapacity(t *testing.T) {
	l := NewLobby(2)

	if err := l.Enqueue(newLobbySession(t, "alice")); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if err := l.Enqueue(newLobbySession(t, "bob")); err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}
	if err := l.Enqueue(newLobbySession(t, "carol")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("expected queue length 2, got %d", l.Len())
	}
}

func TestLobby_FIFOAndPushFront(t *testing.T) {
	l := NewLobby(10)
	alice := newLobbySession(t, "alice")
	bob := newLobbySession(t, "bob")
	carol := newLobbySession(t, "carol")

	l.Enqueue(alice)
	l.Enqueue(bob)
	l.PushFront(carol)

	for i, want := range []*Session{carol, alice, bob} {
		if got := l.PopFront(); got != want {
			t.Errorf("pop %d: want %s, got %v", i, want.Username, got)
		}
	}
	if got := l.PopFront(); got != nil {
		t.Errorf("empty queue must pop nil, got %v", got)
	}
}

func TestLobby_Remove(t *testing.T) {
	l := NewLobby(10)
	alice := newLobbySession(t, "alice")
	bob := newLobbySession(t, "bob")

	l.Enqueue(alice)
	l.Enqueue(bob)
	l.Remove(alice)

	if l.Len() != 1 {
		t.Fatalf("expected length 1 after remove, got %d", l.Len())
	}
	if got := l.PopFront(); got != bob {
		t.Errorf("expected bob at head, got %v", got)
	}

	// Remover quem não está na fila é um no-op
	l.Remove(alice)
}

func TestLobby_TryStartGame(t *testing.T) {
	l := NewLobby(10)

	if l.TryStartGame() {
		t.Error("must not start with empty queue")
	}
	l.Enqueue(newLobbySession(t, "alice"))
	if l.TryStartGame() {
		t.Error("must not start with a single player")
	}
	l.Enqueue(newLobbySession(t, "bob"))
	if !l.TryStartGame() {
		t.Fatal("expected to win the matchmaker slot")
	}
	if l.TryStartGame() {
		t.Error("second caller must not win while a game is running")
	}
	l.SetGameRunning(false)
	if !l.TryStartGame() {
		t.Error("expected to win again after the game ended")
	}
}

func TestLobby_ReconnectSlots(t *testing.T) {
	l := NewLobby(10)

	stranger := newLobbySession(t, "mallory")
	if l.OfferReconnect(stranger) {
		t.Error("must not park a session with no open window")
	}

	l.MarkDisconnected("alice")

	if l.OfferReconnect(stranger) {
		t.Error("must not park a session with a different username")
	}
	if got := l.TakeReconnected("alice"); got != nil {
		t.Errorf("nothing parked yet, got %v", got)
	}

	returning := newLobbySession(t, "alice")
	if !l.OfferReconnect(returning) {
		t.Fatal("matching username must be parked")
	}
	if got := l.TakeReconnected("bob"); got != nil {
		t.Errorf("claim with wrong username must fail, got %v", got)
	}
	if got := l.TakeReconnected("alice"); got != returning {
		t.Fatalf("claim must return the parked session, got %v", got)
	}

	// Janela fechada após o claim
	if got := l.TakeReconnected("alice"); got != nil {
		t.Errorf("window must be closed after claim, got %v", got)
	}
	if l.OfferReconnect(newLobbySession(t, "alice")) {
		t.Error("window must be closed for new sessions after claim")
	}
}

func TestLobby_ReconnectDuplicateSession(t *testing.T) {
	l := NewLobby(10)
	l.MarkDisconnected("alice")

	first := newLobbySession(t, "alice")
	second := newLobbySession(t, "alice")

	if !l.OfferReconnect(first) {
		t.Fatal("first session must be parked")
	}
	if !l.OfferReconnect(second) {
		t.Fatal("second session must replace the first")
	}
	if got := l.TakeReconnected("alice"); got != second {
		t.Errorf("most recent session must win, got %v", got)
	}
}

func TestLobby_ClearReconnect(t *testing.T) {
	l := NewLobby(10)
	l.MarkDisconnected("alice")

	parked := newLobbySession(t, "alice")
	l.OfferReconnect(parked)

	if got := l.ClearReconnect(); got != parked {
		t.Fatalf("clear must hand back the parked session, got %v", got)
	}
	if got := l.TakeReconnected("alice"); got != nil {
		t.Errorf("window must be closed after clear, got %v", got)
	}
}

func TestLobby_Snapshot(t *testing.T) {
	l := NewLobby(10)
	for i := 0; i < 3; i++ {
		l.Enqueue(newLobbySession(t, fmt.Sprintf("player%d", i)))
	}

	snap := l.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected snapshot of 3, got %d", len(snap))
	}

	// Mutar a fila não afeta o snapshot
	l.PopFront()
	if len(snap) != 3 {
		t.Error("snapshot must be a copy")
	}
}
