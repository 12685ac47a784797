// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package game

import (
	"errors"
	"testing"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in      string
		row     int
		col     int
		wantErr bool
	}{
		{"A1", 0, 0, false},
		{"J10", 9, 9, false},
		{"b5", 1, 4, false},
		{"  a1 ", 0, 0, false},
		{"E10", 4, 9, false},
		{"", 0, 0, true},
		{"A", 0, 0, true},
		{"K1", 0, 0, true},
		{"Z9", 0, 0, true},
		{"A0", 0, 0, true},
		{"A11", 0, 0, true},
		{"1A", 0, 0, true},
		{"AA", 0, 0, true},
		{"quit", 0, 0, true},
	}

	for _, tt := range tests {
		row, col, err := ParseCoordinate(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("ParseCoordinate(%q): expected ErrInvalid, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCoordinate(%q): unexpected error %v", tt.in, err)
			continue
		}
		if row != tt.row || col != tt.col {
			t.Errorf("ParseCoordinate(%q) = (%d,%d), want (%d,%d)", tt.in, row, col, tt.row, tt.col)
		}
	}
}

func TestFormatCoordinate_RoundTrip(t *testing.T) {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			label := FormatCoordinate(row, col)
			r, c, err := ParseCoordinate(label)
			if err != nil {
				t.Fatalf("ParseCoordinate(%q) failed: %v", label, err)
			}
			if r != row || c != col {
				t.Errorf("round trip (%d,%d) -> %q -> (%d,%d)", row, col, label, r, c)
			}
		}
	}
}

func TestParseOrientation(t *testing.T) {
	if o, err := ParseOrientation("h"); err != nil || o != Horizontal {
		t.Errorf("ParseOrientation(h) = (%v, %v)", o, err)
	}
	if o, err := ParseOrientation(" V "); err != nil || o != Vertical {
		t.Errorf("ParseOrientation(V) = (%v, %v)", o, err)
	}
	if _, err := ParseOrientation("diagonal"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
