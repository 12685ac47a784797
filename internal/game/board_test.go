// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package game

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func TestPlace_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		row     int
		col     int
		size    int
		o       Orientation
		wantErr bool
	}{
		{"horizontal fits", 0, 0, 5, Horizontal, false},
		{"horizontal at right edge", 0, 5, 5, Horizontal, false},
		{"horizontal overflows right", 0, 6, 5, Horizontal, true},
		{"vertical fits", 5, 9, 5, Vertical, false},
		{"vertical overflows bottom", 6, 0, 5, Vertical, true},
		{"destroyer in last cell", 9, 8, 2, Horizontal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard()
			err := b.Place("Carrier", tt.size, tt.row, tt.col, tt.o)
			if tt.wantErr && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPlace_Overlap(t *testing.T) {
	b := NewBoard()
	if err := b.Place("Cruiser", 3, 2, 2, Horizontal); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}
	// Cruza a célula (2,3)
	if err := b.Place("Submarine", 3, 1, 3, Vertical); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for overlap, got %v", err)
	}
	// Mesma fileira, logo após o fim do primeiro navio
	if err := b.Place("Submarine", 3, 2, 5, Horizontal); err != nil {
		t.Errorf("adjacent placement should be allowed: %v", err)
	}
}

func TestFireAt_Results(t *testing.T) {
	b := NewBoard()
	if err := b.Place("Destroyer", 2, 0, 0, Horizontal); err != nil {
		t.Fatalf("placement failed: %v", err)
	}

	if result, _ := b.FireAt(5, 5); result != Miss {
		t.Errorf("water shot: want miss, got %v", result)
	}
	if result, sunk := b.FireAt(0, 0); result != Hit || sunk != "" {
		t.Errorf("first hit: want (hit, \"\"), got (%v, %q)", result, sunk)
	}
	if result, _ := b.FireAt(0, 0); result != AlreadyShot {
		t.Errorf("repeat shot: want already_shot, got %v", result)
	}
	// Repetir em água também é already_shot
	if result, _ := b.FireAt(5, 5); result != AlreadyShot {
		t.Errorf("repeat water shot: want already_shot, got %v", result)
	}

	result, sunk := b.FireAt(0, 1)
	if result != Hit || sunk != "Destroyer" {
		t.Errorf("sinking shot: want (hit, Destroyer), got (%v, %q)", result, sunk)
	}
	if !b.AllSunk() {
		t.Error("AllSunk must be true after the only ship sank")
	}
}

func TestAllSunk_EmptyBoard(t *testing.T) {
	b := NewBoard()
	if b.AllSunk() {
		t.Error("empty board must not report all sunk")
	}
}

func TestPlaceRandom_FullFleet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := NewBoard()
	b.PlaceRandom(rng)

	if got := b.ShipsPlaced(); got != len(Fleet) {
		t.Fatalf("expected %d ships placed, got %d", len(Fleet), got)
	}

	// Afunda a frota inteira varrendo o tabuleiro
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			b.FireAt(r, c)
		}
	}
	if !b.AllSunk() {
		t.Error("sweeping the whole board must sink the fleet")
	}
}

func TestRender_Shape(t *testing.T) {
	b := NewBoard()
	if err := b.Place("Destroyer", 2, 0, 0, Horizontal); err != nil {
		t.Fatalf("placement failed: %v", err)
	}
	b.FireAt(0, 0)
	b.FireAt(9, 9)

	hidden := b.Render(true)
	lines := strings.Split(strings.TrimRight(hidden, "\n"), "\n")
	if len(lines) != BoardSize+1 {
		t.Fatalf("expected %d lines, got %d", BoardSize+1, len(lines))
	}
	if !strings.HasPrefix(lines[0], "+ ") {
		t.Errorf("header must start with \"+ \", got %q", lines[0])
	}
	if !strings.Contains(lines[0], "10") {
		t.Errorf("header must include column 10, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "A") {
		t.Errorf("first row must start with A, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "X") {
		t.Errorf("hidden view must show the hit at A1, got %q", lines[1])
	}
	if !strings.Contains(lines[1], "S") {
		t.Errorf("hidden view must show the remaining ship cell, got %q", lines[1])
	}
	if !strings.Contains(lines[10], "o") {
		t.Errorf("row J must show the miss marker, got %q", lines[10])
	}

	// A visão do oponente nunca mostra navios intactos
	display := b.Render(false)
	if strings.Contains(display, "S") {
		t.Error("display view must not reveal ship cells")
	}
	if !strings.Contains(display, "X") {
		t.Error("display view must show hits")
	}
}
