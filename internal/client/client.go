// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package client implementa o nbattle-client: uma goroutine receptora imprime
// tudo que o servidor manda (confirmando frames com ACK/NACK) enquanto a
// goroutine principal lê o input do usuário e aplica as regras locais de
// envio — limite de tamanho, throttle de chat e gate de prompt.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nishisan-dev/n-battleship/internal/config"
	"github.com/nishisan-dev/n-battleship/internal/protocol"
)

// Client é o estado do nbattle-client.
type Client struct {
	cfg    *config.ClientConfig
	logger *slog.Logger

	in  io.Reader
	out io.Writer

	conn    net.Conn
	bw      *bufio.Writer
	writeMu sync.Mutex

	// limiter aplica o cooldown de chat; em modo spectator vale para
	// qualquer mensagem enviada.
	limiter *rate.Limiter

	// mu protege o estado de papel e de prompt, compartilhado entre a
	// receptora e o loop de input.
	mu       sync.Mutex
	playing  bool
	canInput bool

	done     chan struct{}
	doneOnce sync.Once
}

// New cria um Client lendo input de in e imprimindo em out.
func New(cfg *config.ClientConfig, logger *slog.Logger, in io.Reader, out io.Writer) *Client {
	return &Client{
		cfg:     cfg,
		logger:  logger,
		in:      in,
		out:     out,
		limiter: rate.NewLimiter(rate.Every(cfg.Chat.Cooldown), 1),
		playing: true,
		done:    make(chan struct{}),
	}
}

// Run conecta ao servidor e roda o client até o fim da sessão.
func (c *Client) Run(ctx context.Context) error {
	conn, err := net.Dial("tcp", c.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.cfg.Server.Address, err)
	}
	return c.RunWithConn(ctx, conn)
}

// RunWithConn roda o client sobre uma conexão já estabelecida (testes).
func (c *Client) RunWithConn(ctx context.Context, conn net.Conn) error {
	c.conn = conn
	c.bw = bufio.NewWriter(conn)
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go c.receive()

	err := c.inputLoop()
	fmt.Fprintln(c.out, "\n[NOTICE] You are disconnected, closing connection...")
	return err
}

// receive consome a conexão linha a linha: frames de controle, blocos GRID e
// frames de payload com confirmação ACK/NACK.
func (c *Client) receive() {
	defer c.stop()

	br := bufio.NewReader(c.conn)
	for {
		raw, err := br.ReadString('\n')
		line := strings.TrimSpace(raw)

		switch {
		case line == protocol.ControlTerminate:
			c.setCanInput(false)
			fmt.Fprintln(c.out, "You have been detected idle, and have been disconnected from the server, press ENTER to end session")
			return
		case line == protocol.ControlGrid:
			c.printBoard(br)
		case line == protocol.ControlACK:
			// Probe de liveness do servidor; ecoa para confirmar.
			c.write(protocol.ControlACK + "\n")
		case line != "":
			c.handleFrame(line)
		}

		if err != nil {
			return
		}
	}
}

// handleFrame valida o checksum, confirma e despacha o frame pela tag.
func (c *Client) handleFrame(line string) {
	frame, err := protocol.Decode(line)
	if err != nil {
		// Header malformado ou checksum errado: pede retransmissão.
		c.logger.Debug("rejecting bad frame", "error", err)
		c.write(protocol.ControlNACK + "\n")
		return
	}
	c.write(protocol.ControlACK + "\n")

	switch frame.Tag {
	case protocol.TagPrompt:
		c.setCanInput(true)
	case protocol.TagStatus:
		c.setCanInput(false)
	case protocol.TagPlayer:
		c.setRole(true)
	case protocol.TagSpectator:
		c.setRole(false)
	}

	fmt.Fprintln(c.out, "\n"+frame.Body)
	if frame.Tag == protocol.TagChat {
		// Linha extra para mensagens de chat não aglomerarem
		fmt.Fprintln(c.out)
	}
}

// printBoard imprime as linhas de um bloco GRID até a linha em branco.
func (c *Client) printBoard(br *bufio.Reader) {
	for {
		raw, err := br.ReadString('\n')
		line := strings.TrimRight(raw, "\r\n")
		if line == "" {
			return
		}
		fmt.Fprintln(c.out, line)
		if err != nil {
			return
		}
	}
}

// inputLoop lê comandos do usuário e envia ao servidor conforme as regras do
// papel atual.
func (c *Client) inputLoop() error {
	scanner := bufio.NewScanner(c.in)
	for {
		if !c.running() {
			return nil
		}
		if !scanner.Scan() {
			// EOF no stdin conta como quit
			c.write("quit\n")
			return scanner.Err()
		}
		command := scanner.Text()

		if len(command) > c.cfg.Chat.MaxInput {
			fmt.Fprintf(c.out, "[NOTICE] Input cant be longer than %d characters, please try again.\n", c.cfg.Chat.MaxInput)
			continue
		}

		if c.isPlaying() {
			switch {
			case strings.EqualFold(strings.TrimSpace(command), "quit"):
				c.write("quit\n")
				return nil
			case strings.HasPrefix(strings.ToLower(command), "chat "):
				if !c.limiter.Allow() {
					fmt.Fprintln(c.out, "[NOTICE] Your message is not sent, You are sending too much message, please do not spam")
					continue
				}
				c.write(command + "\n")
			case c.takeCanInput():
				c.write(command + "\n")
			default:
				fmt.Fprintln(c.out, "[NOTICE] Wait for server prompt before sending commands")
			}
			continue
		}

		// Spectator: qualquer linha vira mensagem de chat, throttled.
		if !c.limiter.Allow() {
			fmt.Fprintln(c.out, "[NOTICE] Your message is not sent, You are sending too much message, please do not spam")
			continue
		}
		c.write(command + "\n")
	}
}

func (c *Client) write(s string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.bw.WriteString(s); err != nil {
		return
	}
	c.bw.Flush()
}

func (c *Client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *Client) running() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Client) setCanInput(v bool) {
	c.mu.Lock()
	c.canInput = v
	c.mu.Unlock()
}

// takeCanInput consome o gate do prompt, evitando envio duplo.
func (c *Client) takeCanInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.canInput {
		return false
	}
	c.canInput = false
	return true
}

func (c *Client) setRole(playing bool) {
	c.mu.Lock()
	c.playing = playing
	c.canInput = false
	c.mu.Unlock()
}

func (c *Client) isPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}
