// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

// newTestChannel cria um Channel sobre net.Pipe com janelas curtas para os
// testes, retornando também o lado do peer.
func newTestChannel(t *testing.T) (*Channel, net.Conn) {
	t.Helper()
	serverSide, peerSide := net.Pipe()
	c := NewChannel(serverSide)
	c.AckWindow = 200 * time.Millisecond
	c.MaxAttempts = 3
	t.Cleanup(func() {
		c.Close()
		peerSide.Close()
	})
	return c, peerSide
}

func TestChannel_SendAcked(t *testing.T) {
	c, peer := newTestChannel(t)

	// Peer lê o frame, valida e responde ACK
	go func() {
		br := bufio.NewReader(peer)
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := Decode(strings.TrimSpace(line)); err != nil {
			return
		}
		peer.Write([]byte("ACK\n"))
	}()

	if err := c.Send(TagInfo, "[Your turn!]"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

// TestChannel_SendRetriesOnNack verifica que um NACK provoca reenvio imediato
// do mesmo frame.
func TestChannel_SendRetriesOnNack(t *testing.T) {
	c, peer := newTestChannel(t)

	received := make(chan string, 2)
	go func() {
		br := bufio.NewReader(peer)
		line, _ := br.ReadString('\n')
		received <- strings.TrimSpace(line)
		peer.Write([]byte("NACK\n"))

		line, _ = br.ReadString('\n')
		received <- strings.TrimSpace(line)
		peer.Write([]byte("ACK\n"))
	}()

	if err := c.Send(TagStatus, "MISS!"); err != nil {
		t.Fatalf("Send failed after NACK retry: %v", err)
	}

	first := <-received
	second := <-received
	if first != second {
		t.Errorf("retry must resend the identical frame: %q != %q", first, second)
	}
}

func TestChannel_SendExhaustsAttempts(t *testing.T) {
	c, peer := newTestChannel(t)
	c.MaxAttempts = 2

	// Peer lê tudo mas nunca confirma
	go func() {
		br := bufio.NewReader(peer)
		for {
			if _, err := br.ReadString('\n'); err != nil {
				return
			}
		}
	}()

	start := time.Now()
	err := c.Send(TagInfo, "anyone there?")
	if !errors.Is(err, ErrPeerGone) {
		t.Fatalf("expected ErrPeerGone, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*c.AckWindow {
		t.Errorf("Send returned before exhausting both windows: %v", elapsed)
	}
}

func TestChannel_SendPeerClosed(t *testing.T) {
	c, peer := newTestChannel(t)
	peer.Close()

	// O pipe fechado falha na escrita ou no done; ambos viram ErrPeerGone.
	if err := c.Send(TagInfo, "hello"); !errors.Is(err, ErrPeerGone) {
		t.Fatalf("expected ErrPeerGone, got %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not finish after peer closed")
	}
	if c.Alive() {
		t.Error("channel must not report alive after peer closed")
	}
}

func TestChannel_LinesDemux(t *testing.T) {
	c, peer := newTestChannel(t)

	go func() {
		peer.Write([]byte("ACK\n"))
		peer.Write([]byte("B5\n"))
		peer.Write([]byte("chat hello there\n"))
	}()

	for _, want := range []string{"B5", "chat hello there"} {
		select {
		case got := <-c.Lines():
			if got != want {
				t.Errorf("line mismatch: want %q, got %q", want, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for line %q", want)
		}
	}
}

func TestChannel_Probe(t *testing.T) {
	c, peer := newTestChannel(t)

	go func() {
		br := bufio.NewReader(peer)
		line, _ := br.ReadString('\n')
		if strings.TrimSpace(line) == "ACK" {
			peer.Write([]byte("ACK\n"))
		}
	}()

	if err := c.Probe(500 * time.Millisecond); err != nil {
		t.Fatalf("Probe failed against live peer: %v", err)
	}
}

func TestChannel_ProbeDeadPeer(t *testing.T) {
	c, peer := newTestChannel(t)

	// Peer lê o probe mas não responde
	go func() {
		br := bufio.NewReader(peer)
		br.ReadString('\n')
	}()

	if err := c.Probe(100 * time.Millisecond); !errors.Is(err, ErrPeerGone) {
		t.Fatalf("expected ErrPeerGone, got %v", err)
	}
}

// TestChannel_SendGrid verifica o formato do bloco: linha GRID, render e
// linha em branco de fechamento, sem checksum e sem espera de ACK.
func TestChannel_SendGrid(t *testing.T) {
	c, peer := newTestChannel(t)

	render := "+  1  2\nA  .  .\nB  .  X\n"
	done := make(chan struct{})
	go func() {
		defer close(done)
		br := bufio.NewReader(peer)

		line, _ := br.ReadString('\n')
		if strings.TrimSpace(line) != "GRID" {
			t.Errorf("expected GRID header, got %q", line)
			return
		}
		for i := 0; i < 3; i++ {
			br.ReadString('\n')
		}
		blank, _ := br.ReadString('\n')
		if strings.TrimSpace(blank) != "" {
			t.Errorf("expected blank terminator line, got %q", blank)
		}
	}()

	if err := c.SendGrid(render); err != nil {
		t.Fatalf("SendGrid failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("peer did not finish reading grid block")
	}
}
