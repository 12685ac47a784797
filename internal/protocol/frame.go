// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package protocol implementa o protocolo de linha do N-Battleship para
// comunicação entre server e client sobre TCP.
//
// Cada frame de payload é uma linha de texto no formato:
//
//	HHHHHHHH;T;BODY\n
//
// onde HHHHHHHH é o CRC-32 (hex, 8 dígitos, zero-padded) de tudo após o
// primeiro ';', T é um dígito de tag (intenção de exibição no client) e BODY
// é o texto da mensagem. Frames de controle (ACK, NACK, GRID, X) são linhas
// literais sem checksum. A identidade de reconexão é apenas o username — não
// há token de sessão no protocolo.
package protocol

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// Tags de frame (dígito T). O client usa a tag para decidir como exibir e se
// habilita input do usuário.
const (
	TagInfo      byte = '0' // informativo — apenas imprime
	TagPrompt    byte = '1' // prompt — imprime e habilita input
	TagStatus    byte = '2' // status — imprime e desabilita input
	TagChat      byte = '3' // chat de terceiros — imprime com linha extra
	TagChatEcho  byte = '4' // eco do próprio chat — imprime e trava chat por 2s
	TagPlayer    byte = '5' // reset de papel para player
	TagSpectator byte = '6' // reset de papel para spectator
)

// Frames de controle. São linhas completas, nunca carregam payload.
const (
	ControlACK       = "ACK"
	ControlNACK      = "NACK"
	ControlGrid      = "GRID"
	ControlTerminate = "X"
)

// headerLen é o tamanho do prefixo "HHHHHHHH;" de um frame de payload.
const headerLen = 9

// Erros do protocolo.
var (
	ErrBadFrame    = errors.New("protocol: malformed frame")
	ErrBadChecksum = errors.New("protocol: checksum mismatch")
	ErrPeerGone    = errors.New("protocol: peer gone")
)

// Frame representa um frame de payload decodificado.
type Frame struct {
	Tag  byte
	Body string
}

// IsControl reporta se a linha é um frame de controle.
func IsControl(line string) bool {
	switch line {
	case ControlACK, ControlNACK, ControlGrid, ControlTerminate:
		return true
	}
	return false
}

// ValidTag reporta se t é um dígito de tag conhecido.
func ValidTag(t byte) bool {
	return t >= TagInfo && t <= TagSpectator
}

// Encode monta a linha de um frame de payload, incluindo o '\n' final.
// O checksum cobre "T;BODY" — tudo após o primeiro ';' da linha.
// BODY não pode conter '\n' (um frame é exatamente uma linha).
func Encode(tag byte, body string) (string, error) {
	if !ValidTag(tag) {
		return "", fmt.Errorf("%w: invalid tag %q", ErrBadFrame, tag)
	}
	if strings.ContainsRune(body, '\n') {
		return "", fmt.Errorf("%w: body contains newline", ErrBadFrame)
	}
	payload := string(tag) + ";" + body
	sum := crc32.ChecksumIEEE([]byte(payload))
	return fmt.Sprintf("%08x;%s\n", sum, payload), nil
}

// Decode parseia uma linha (sem o '\n') como frame de payload.
// Frames de controle devem ser filtrados antes com IsControl.
func Decode(line string) (Frame, error) {
	if len(line) < headerLen+2 || line[headerLen-1] != ';' {
		return Frame{}, fmt.Errorf("%w: short or missing header", ErrBadFrame)
	}
	var sum uint32
	if _, err := fmt.Sscanf(line[:headerLen-1], "%08x", &sum); err != nil {
		return Frame{}, fmt.Errorf("%w: bad checksum field", ErrBadFrame)
	}
	payload := line[headerLen:]
	if crc32.ChecksumIEEE([]byte(payload)) != sum {
		return Frame{}, ErrBadChecksum
	}
	tag := payload[0]
	if len(payload) < 2 || payload[1] != ';' || !ValidTag(tag) {
		return Frame{}, fmt.Errorf("%w: bad tag field", ErrBadFrame)
	}
	return Frame{Tag: tag, Body: payload[2:]}, nil
}
