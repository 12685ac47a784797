// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package game

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCoordinate converte algo como "B5" em (row, col) zero-based.
// Aceita minúsculas e espaços nas pontas ("  a1 " => (0,0)); rejeita
// qualquer coisa fora de A-J seguido de 1-10.
func ParseCoordinate(s string) (row, col int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("%w: coordinate too short", ErrInvalid)
	}
	row = int(s[0] - 'A')
	if row < 0 || row >= BoardSize {
		return 0, 0, fmt.Errorf("%w: row must be A-J", ErrInvalid)
	}
	n, convErr := strconv.Atoi(s[1:])
	if convErr != nil {
		return 0, 0, fmt.Errorf("%w: column must be a number", ErrInvalid)
	}
	col = n - 1
	if col < 0 || col >= BoardSize {
		return 0, 0, fmt.Errorf("%w: column must be 1-10", ErrInvalid)
	}
	return row, col, nil
}

// FormatCoordinate converte (row, col) zero-based no rótulo "B5".
func FormatCoordinate(row, col int) string {
	return string(rune('A'+row)) + strconv.Itoa(col+1)
}
