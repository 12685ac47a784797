// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Battleship License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nishisan-dev/n-battleship/internal/client"
	"github.com/nishisan-dev/n-battleship/internal/config"
	"github.com/nishisan-dev/n-battleship/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to client config file (optional)")
	address := flag.String("server", "", "server address (overrides config)")
	flag.Parse()

	cfg := config.DefaultClientConfig()
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *address != "" {
		cfg.Server.Address = *address
	}

	logger := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		cancel()
	}()

	c := client.New(cfg, logger, os.Stdin, os.Stdout)
	if err := c.Run(ctx); err != nil {
		logger.Error("client error", "error", err)
		os.Exit(1)
	}
}
