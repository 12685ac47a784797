package server

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/nishisan-dev/n-battleship/internal/config"
)

// Announcer gerencia mensagens agendadas do servidor, entregues ao chat room
// via cron expression.
type Announcer struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewAnnouncer cria um Announcer com as mensagens agendadas da configuração.
func NewAnnouncer(entries []config.Announcement, logger *slog.Logger, broadcast func(msg string)) (*Announcer, error) {
	a := &Announcer{
		logger: logger.With("component", "announcer"),
	}

	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	for _, entry := range entries {
		msg := entry.Message
		if _, err := c.AddFunc(entry.Schedule, func() {
			a.logger.Debug("broadcasting announcement", "message", msg)
			broadcast(msg)
		}); err != nil {
			return nil, err
		}
	}

	a.cron = c
	return a, nil
}

// Start inicia o cron de anúncios.
func (a *Announcer) Start() {
	a.logger.Info("announcer started")
	a.cron.Start()
}

// Stop para o cron e aguarda anúncios em andamento.
func (a *Announcer) Stop(ctx context.Context) {
	a.logger.Info("announcer stopping")
	stopCtx := a.cron.Stop()

	select {
	case <-stopCtx.Done():
		a.logger.Info("announcer stopped gracefully")
	case <-ctx.Done():
		a.logger.Warn("announcer stop timed out")
	}
}
