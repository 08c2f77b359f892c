package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lox/rankmaster/cmd/rankmaster/shared"
	"github.com/lox/rankmaster/internal/blinds"
	"github.com/lox/rankmaster/internal/clock"
	"github.com/lox/rankmaster/internal/config"
	"github.com/lox/rankmaster/internal/server"
	"github.com/lox/rankmaster/internal/storage/sqlite"
)

// ServeCmd runs the display server for a house: WebSocket feeds for the
// second screen plus the blind clock driving level changes.
type ServeCmd struct {
	Config    string `kong:"default='rankmaster.hcl',help='House configuration file'"`
	Addr      string `kong:"help='Listen address, overrides the config file'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
	AutoStart bool   `kong:"help='Start the blind clock immediately'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)
	ctx := shared.SetupSignalHandler(logger)

	store, err := sqlite.Open(cfg.Server.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	addr := c.Addr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	}
	hub := server.New(addr, logger)

	// Seed the feed with the last persisted packet so screens that connect
	// before any stage activity still show something.
	if packet, ok, err := store.LoadDisplay(ctx, cfg.Server.HouseID); err != nil {
		logger.Warn("failed to load last display packet", "error", err)
	} else if ok {
		hub.BroadcastDisplay(packet)
	}

	var blindClock *clock.Clock
	if structure, ok := cfg.ActiveStructure(); ok {
		blindClock, err = clock.New(structure, nil, logger, clock.Events{
			Tick: hub.BroadcastClock,
			OneMinuteWarning: func(level blinds.Level) {
				logger.Info("one minute remaining", "level", level.ID)
			},
			LevelChanged: func(index int, level blinds.Level) {
				logger.Info("level changed",
					"level", index+1,
					"small", level.SmallBlind,
					"big", level.BigBlind,
					"break", level.IsBreak,
				)
			},
			Finished: func() {
				logger.Info("blind structure complete", "structure", structure.Name)
			},
		})
		if err != nil {
			return err
		}
		if c.AutoStart {
			blindClock.Start()
		}
		hub.BroadcastClock(blindClock.Snapshot())
	} else {
		logger.Warn("no active blind structure, clock disabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(hub.Start)
	g.Go(func() error {
		<-ctx.Done()
		if blindClock != nil {
			blindClock.Stop()
		}
		return hub.Stop()
	})
	return g.Wait()
}
