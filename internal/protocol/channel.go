// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Defaults da janela de confiabilidade. O transporte já é ordenado e
// confiável; o ACK existe para liveness (janela de tempo limitada) e
// integridade (CRC + NACK), não para entrega.
const (
	DefaultAckWindow   = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultProbeWindow = 5 * time.Second
)

// lineBufferSize é a capacidade do canal de linhas de payload. Linhas de uma
// sessão ociosa (ninguém consumindo) são descartadas quando o buffer enche,
// para nunca bloquear o demux de ACKs.
const lineBufferSize = 64

// Channel envolve uma conexão e oferece envio confiável (frame + espera de
// ACK com retry) e recepção de linhas inteiras. Uma goroutine leitora única
// consome a conexão e demultiplexa ACK/NACK das linhas de payload; linhas
// parciais ficam no bufio.Reader e nunca são entregues.
type Channel struct {
	conn net.Conn
	bw   *bufio.Writer

	// writeMu protege escritas concorrentes na conexão
	// (Send, SendGrid e WriteControl podem ser chamados de tasks diferentes).
	writeMu sync.Mutex

	acks  chan string
	lines chan string

	done      chan struct{}
	closeOnce sync.Once

	// Janela de ACK e orçamento de tentativas. Ajustáveis antes do primeiro
	// Send (os testes usam janelas curtas).
	AckWindow   time.Duration
	MaxAttempts int
}

// NewChannel cria um Channel sobre a conexão e inicia a goroutine leitora.
func NewChannel(conn net.Conn) *Channel {
	c := &Channel{
		conn:        conn,
		bw:          bufio.NewWriter(conn),
		acks:        make(chan string, 1),
		lines:       make(chan string, lineBufferSize),
		done:        make(chan struct{}),
		AckWindow:   DefaultAckWindow,
		MaxAttempts: DefaultMaxAttempts,
	}
	go c.readLoop()
	return c
}

// readLoop lê a conexão linha a linha até EOF ou erro.
// ACK/NACK vão para o canal de acks; todo o resto vira linha de payload.
func (c *Channel) readLoop() {
	defer c.closeOnce.Do(func() { close(c.done) })

	br := bufio.NewReader(c.conn)
	for {
		raw, err := br.ReadString('\n')
		line := strings.TrimSpace(raw)
		if line != "" {
			switch line {
			case ControlACK, ControlNACK:
				select {
				case c.acks <- line:
				default:
					// ACK atrasado de uma tentativa anterior — descarta
				}
			default:
				select {
				case c.lines <- line:
				default:
					// sessão ociosa sem consumidor — descarta a linha
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// Lines retorna o canal de linhas de payload recebidas do peer.
// O canal NÃO é fechado no EOF; consuma junto com Done.
func (c *Channel) Lines() <-chan string {
	return c.lines
}

// Done é fechado quando a goroutine leitora termina (EOF ou erro de leitura).
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Alive reporta se a conexão ainda está sendo lida.
func (c *Channel) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// drainAcks descarta ACKs pendentes de interações anteriores, para que a
// próxima espera case apenas com a resposta do frame recém-enviado.
func (c *Channel) drainAcks() {
	for {
		select {
		case <-c.acks:
		default:
			return
		}
	}
}

// Send envia um frame de payload e espera o ACK do peer.
// NACK conta como retry imediato dentro do orçamento; janela esgotada conta
// como tentativa perdida. Esgotado o orçamento, retorna ErrPeerGone.
func (c *Channel) Send(tag byte, body string) error {
	line, err := Encode(tag, strings.TrimSpace(body))
	if err != nil {
		return err
	}

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		c.drainAcks()
		if err := c.write(line); err != nil {
			return fmt.Errorf("writing frame: %w", ErrPeerGone)
		}

		timer := time.NewTimer(c.AckWindow)
		select {
		case reply := <-c.acks:
			timer.Stop()
			if reply == ControlACK {
				return nil
			}
			// NACK — frame chegou corrompido, reenvia
		case <-timer.C:
			// sem resposta na janela
		case <-c.done:
			timer.Stop()
			return ErrPeerGone
		}
	}
	return ErrPeerGone
}

// SendGrid envia um bloco de render de tabuleiro: a linha "GRID", o bloco
// (header + 10 linhas) e uma linha em branco de fechamento. Blocos GRID não
// são confirmados frame a frame.
func (c *Channel) SendGrid(render string) error {
	if !strings.HasSuffix(render, "\n") {
		render += "\n"
	}
	return c.write(ControlGrid + "\n" + render + "\n")
}

// WriteControl envia uma linha de controle crua (ACK de probe, X de término).
func (c *Channel) WriteControl(line string) error {
	return c.write(line + "\n")
}

// Probe verifica a liveness do peer: envia "ACK" e espera o eco dentro da
// janela. Usado pelo matchmaker antes de entregar um client a uma partida.
func (c *Channel) Probe(window time.Duration) error {
	c.drainAcks()
	if err := c.WriteControl(ControlACK); err != nil {
		return fmt.Errorf("writing probe: %w", ErrPeerGone)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case reply := <-c.acks:
		if reply == ControlACK {
			return nil
		}
		return ErrPeerGone
	case <-timer.C:
		return ErrPeerGone
	case <-c.done:
		return ErrPeerGone
	}
}

func (c *Channel) write(s string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.bw.WriteString(s); err != nil {
		return err
	}
	return c.bw.Flush()
}

// Close fecha a conexão subjacente; a goroutine leitora termina em seguida.
func (c *Channel) Close() error {
	return c.conn.Close()
}

// RemoteAddr expõe o endereço remoto da conexão para logging.
func (c *Channel) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
