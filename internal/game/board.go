// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package game implementa as regras puras de Battleship: posicionamento de
// navios, tiros, detecção de afundamento e render do tabuleiro. O pacote não
// conhece rede nem protocolo; toda validação de entrada do usuário acontece
// no caller.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// BoardSize é a dimensão do tabuleiro (10x10).
const BoardSize = 10

// Células do grid.
const (
	cellWater = '.'
	cellShip  = 'S'
	cellHit   = 'X'
	cellMiss  = 'o'
)

// Ship descreve um navio da frota.
type Ship struct {
	Name string
	Size int
}

// Fleet é a frota padrão, na ordem em que os navios são posicionados.
var Fleet = []Ship{
	{"Carrier", 5},
	{"Battleship", 4},
	{"Cruiser", 3},
	{"Submarine", 3},
	{"Destroyer", 2},
}

// Orientation de um posicionamento.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

// ParseOrientation converte "H"/"V" (case-insensitive) em Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H":
		return Horizontal, nil
	case "V":
		return Vertical, nil
	}
	return 0, fmt.Errorf("%w: orientation must be H or V", ErrInvalid)
}

// FireResult é o resultado de um tiro.
type FireResult string

const (
	Hit         FireResult = "hit"
	Miss        FireResult = "miss"
	AlreadyShot FireResult = "already_shot"
)

// ErrInvalid indica uma rejeição de domínio (posicionamento ou coordenada
// inválida). Nunca é fatal — o caller reporta ao jogador e re-prompta.
var ErrInvalid = errors.New("game: invalid")

// placedShip rastreia as células ainda não atingidas de um navio.
// Um navio está afundado quando o set esvazia.
type placedShip struct {
	name  string
	size  int
	cells map[[2]int]struct{}
}

// Board é um tabuleiro de um jogador. Duas visões: hidden (verdade do dono,
// com navios) e display (visão do oponente, só acertos e erros).
type Board struct {
	hidden  [BoardSize][BoardSize]byte
	display [BoardSize][BoardSize]byte
	ships   []*placedShip
}

// NewBoard cria um tabuleiro vazio.
func NewBoard() *Board {
	b := &Board{}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			b.hidden[r][c] = cellWater
			b.display[r][c] = cellWater
		}
	}
	return b
}

// canPlace verifica se um navio de tamanho size cabe em (row,col) com a
// orientação dada, sem sair do grid nem sobrepor outro navio.
func (b *Board) canPlace(row, col, size int, o Orientation) bool {
	if row < 0 || col < 0 {
		return false
	}
	if o == Horizontal {
		if col+size > BoardSize || row >= BoardSize {
			return false
		}
		for c := col; c < col+size; c++ {
			if b.hidden[row][c] != cellWater {
				return false
			}
		}
		return true
	}
	if row+size > BoardSize || col >= BoardSize {
		return false
	}
	for r := row; r < row+size; r++ {
		if b.hidden[r][col] != cellWater {
			return false
		}
	}
	return true
}

// Place posiciona um navio nomeado. Retorna ErrInvalid se o posicionamento
// sai do grid ou sobrepõe outro navio.
func (b *Board) Place(name string, size, row, col int, o Orientation) error {
	if !b.canPlace(row, col, size, o) {
		return fmt.Errorf("%w: cannot place %s at %s", ErrInvalid, name, FormatCoordinate(row, col))
	}
	ship := &placedShip{
		name:  name,
		size:  size,
		cells: make(map[[2]int]struct{}, size),
	}
	if o == Horizontal {
		for c := col; c < col+size; c++ {
			b.hidden[row][c] = cellShip
			ship.cells[[2]int{row, c}] = struct{}{}
		}
	} else {
		for r := row; r < row+size; r++ {
			b.hidden[r][col] = cellShip
			ship.cells[[2]int{r, col}] = struct{}{}
		}
	}
	b.ships = append(b.ships, ship)
	return nil
}

// PlaceRandom posiciona a frota inteira aleatoriamente. Hook de teste e de
// partidas automatizadas; o fluxo multiplayer usa posicionamento manual.
func (b *Board) PlaceRandom(rng *rand.Rand) {
	for _, ship := range Fleet {
		for {
			o := Orientation(rng.Intn(2))
			row := rng.Intn(BoardSize)
			col := rng.Intn(BoardSize)
			if b.Place(ship.Name, ship.Size, row, col, o) == nil {
				break
			}
		}
	}
}

// FireAt dispara em (row,col). Retorna o resultado e, se o tiro afundou um
// navio, o nome dele. Coordenadas fora do grid são responsabilidade do
// caller; aqui row/col já devem estar em [0,BoardSize).
func (b *Board) FireAt(row, col int) (FireResult, string) {
	switch b.hidden[row][col] {
	case cellShip:
		b.hidden[row][col] = cellHit
		b.display[row][col] = cellHit
		return Hit, b.markHit(row, col)
	case cellWater:
		b.hidden[row][col] = cellMiss
		b.display[row][col] = cellMiss
		return Miss, ""
	default:
		return AlreadyShot, ""
	}
}

// markHit remove a célula do navio atingido e retorna o nome se ele afundou.
func (b *Board) markHit(row, col int) string {
	for _, ship := range b.ships {
		if _, ok := ship.cells[[2]int{row, col}]; ok {
			delete(ship.cells, [2]int{row, col})
			if len(ship.cells) == 0 {
				return ship.name
			}
			break
		}
	}
	return ""
}

// AllSunk reporta se todos os navios posicionados foram afundados.
func (b *Board) AllSunk() bool {
	if len(b.ships) == 0 {
		return false
	}
	for _, ship := range b.ships {
		if len(ship.cells) > 0 {
			return false
		}
	}
	return true
}

// ShipsPlaced retorna quantos navios já foram posicionados.
func (b *Board) ShipsPlaced() int {
	return len(b.ships)
}

// Render monta o bloco de texto do tabuleiro: linha de header com as colunas
// e uma linha por fileira, cada uma terminada em '\n'. Com showHidden=true
// usa o grid do dono (navios visíveis); senão a visão do oponente.
func (b *Board) Render(showHidden bool) string {
	grid := &b.display
	if showHidden {
		grid = &b.hidden
	}

	var sb strings.Builder
	sb.WriteString("+ ")
	for c := 0; c < BoardSize; c++ {
		if c > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%2d", c+1))
	}
	sb.WriteByte('\n')
	for r := 0; r < BoardSize; r++ {
		sb.WriteString(fmt.Sprintf("%-2c ", 'A'+r))
		for c := 0; c < BoardSize; c++ {
			if c > 0 {
				sb.WriteString("  ")
			}
			sb.WriteByte(grid[r][c])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
