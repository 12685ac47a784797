package server

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// StartStatsReporter logs server and system metrics periodically until the
// context is cancelled.
func (srv *Server) StartStatsReporter(ctx context.Context) {
	logger := srv.logger.With("component", "stats_reporter")
	logger.Info("stats reporter started", "interval", srv.cfg.Stats.Interval)

	ticker := time.NewTicker(srv.cfg.Stats.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			attrs := []any{
				"active_conns", srv.ActiveConns.Load(),
				"queue_len", srv.lobby.Len(),
				"game_running", srv.lobby.GameRunning(),
				"matches_played", srv.MatchesPlayed.Load(),
				"shots_fired", srv.ShotsFired.Load(),
			}

			if percentage, err := cpu.Percent(0, false); err == nil && len(percentage) > 0 {
				attrs = append(attrs, "cpu_percent", percentage[0])
			}
			if v, err := mem.VirtualMemory(); err == nil {
				attrs = append(attrs, "memory_percent", v.UsedPercent)
			}
			if l, err := load.Avg(); err == nil {
				attrs = append(attrs, "load_avg", l.Load1)
			}

			logger.Info("server stats", attrs...)
		case <-ctx.Done():
			logger.Info("stats reporter stopped")
			return
		}
	}
}
