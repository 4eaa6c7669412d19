package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/viperML/bms-lock/config"
	"github.com/viperML/bms-lock/display"
	"github.com/viperML/bms-lock/logger"
	"github.com/viperML/bms-lock/metrics"
	"github.com/viperML/bms-lock/serial"
	"github.com/viperML/bms-lock/server"
	"github.com/viperML/bms-lock/utils"
)

// app carries what every subcommand needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	out     io.WriteCloser
	metrics *metrics.Metrics
	hub     *utils.WebSocketHub
}

// loadApp loads the configuration, lets override adjust it and builds the logger and serial
// output.
func loadApp(override func(*config.Config)) (*app, error) {
	cfg, err := config.LoadConfig(ConfigPath)
	if err != nil {
		return nil, err
	}
	if LogLevel != "" {
		cfg.Logging.Level = LogLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// the terminal UI owns the screen, as does the serial stream when it goes to stdout
	quiet := cfg.Display.Backend == display.BackendTUI
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Quiet:  quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var out io.WriteCloser
	if cfg.Display.Backend == display.BackendTUI && cfg.Serial.Device == "" {
		out = nopWriteCloser{io.Discard}
	} else {
		out, err = serial.Open(cfg.Serial.Device, cfg.Serial.BaudRate)
		if err != nil {
			log.Sync()
			return nil, err
		}
	}

	return &app{
		cfg:     cfg,
		log:     log,
		out:     out,
		metrics: metrics.New(),
		hub:     utils.NewWebSocketHub(),
	}, nil
}

func (a *app) Close() {
	if err := a.out.Close(); err != nil {
		a.log.Warn("Failed to close serial output", zap.Error(err))
	}
	_ = a.log.Sync()
}

// startServer runs the HTTP API in the background when enabled. The returned channel yields
// the server's exit error.
func (a *app) startServer(ctx context.Context, source server.StatusSource) <-chan error {
	errCh := make(chan error, 1)
	if !a.cfg.Server.Enabled {
		close(errCh)
		return errCh
	}

	srv := server.NewServer(source, a.hub, a.metrics.Handler(), a.log)
	addr := net.JoinHostPort("", strconv.Itoa(a.cfg.Server.Port))
	go func() {
		if err := srv.Start(ctx, addr); err != nil {
			a.log.Error("HTTP server failed", zap.Error(err))
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
