// Command pifid brings up a PiFi-40 amplifier card and serves its controls.
// Run with --mock to use a simulated bus and PDN line.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/micro-nova/pifi-go/internal/api"
	"github.com/micro-nova/pifi-go/internal/card"
	"github.com/micro-nova/pifi-go/internal/codec"
	"github.com/micro-nova/pifi-go/internal/config"
	"github.com/micro-nova/pifi-go/internal/control"
	"github.com/micro-nova/pifi-go/internal/events"
	"github.com/micro-nova/pifi-go/internal/hardware"
	"github.com/micro-nova/pifi-go/internal/mixer"
	"github.com/micro-nova/pifi-go/internal/power"
	"github.com/micro-nova/pifi-go/internal/zeroconf"
)

func main() {
	var (
		mock   = flag.Bool("mock", false, "use a mock bus and PDN line (no I2C/GPIO required)")
		addr   = flag.String("addr", ":8040", "HTTP listen address")
		cfgDir = flag.String("config-dir", "", "config directory (default: ~/.config/pifi)")
		debug  = flag.Bool("debug", false, "enable debug logging")
		mdns   = flag.Bool("mdns", true, "advertise the API over mDNS")
	)
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "pifi")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	board, err := config.LoadBoard(*cfgDir)
	if err != nil {
		slog.Error("invalid board configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, board, *cfgDir, *addr, *mock, *mdns); err != nil {
		slog.Error("pifid failed", "err", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func run(ctx context.Context, board config.Board, cfgDir, addr string, mock, mdns bool) error {
	bus, closer, err := openBus(board, mock)
	if err != nil {
		return err
	}
	defer closer.Close()

	line, err := openLine(board, mock)
	if err != nil {
		return err
	}

	codecs := hardware.Pair{
		hardware.NewCodec("left", bus, board.LeftAddr),
		hardware.NewCodec("right", bus, board.RightAddr),
	}

	evBus := events.NewBus()
	controls := control.NewRegistry(board.CardName, evBus)
	for i, ch := range control.Channels {
		if err := codec.RegisterStockControls(controls, ch, codecs[i]); err != nil {
			return err
		}
	}

	c := card.New(card.Config{
		Name:     board.CardName,
		Codecs:   codecs,
		Line:     line,
		Controls: controls,
		Platform: card.NewRegistry(),
	})
	defer c.Close()
	if err := c.BringUp(ctx); err != nil {
		return err
	}

	store := config.NewJSONStore(cfgDir)
	mixer.Restore(ctx, controls, store)
	// The saver outlives ctx so changes made while the server drains are
	// still saved; it is stopped and awaited before the final flush.
	saveCtx, stopSaving := context.WithCancel(context.Background())
	saved := mixer.Start(saveCtx, evBus, controls, store)
	defer func() {
		stopSaving()
		<-saved
		if err := store.Flush(); err != nil {
			slog.Warn("failed to flush mixer state", "err", err)
		}
	}()

	if mdns {
		hostname, _ := os.Hostname()
		zc := zeroconf.New(hostname, board.CardName, listenPort(addr))
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(c, controls, evBus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("pifid listening", "addr", addr, "card", board.CardName, "mock", mock)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openBus(board config.Board, mock bool) (hardware.Bus, io.Closer, error) {
	if mock {
		slog.Info("using mock I2C bus")
		return hardware.NewMock(), nopCloser{}, nil
	}
	switch board.Transport {
	case config.TransportPeriph:
		b, err := hardware.OpenPeriph(board.I2CBus, board.OpsPerSec)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using periph.io I2C bus", "bus", b.String())
		return b, b, nil
	default:
		b, err := hardware.OpenI2CDev(board.I2CDev, board.OpsPerSec)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using i2c-dev bus", "dev", board.I2CDev)
		return b, b, nil
	}
}

func openLine(board config.Board, mock bool) (power.Line, error) {
	if mock {
		return power.Some("mock-pdn", power.LogPin{}), nil
	}
	return power.OpenLine(board.PDNPin)
}

func listenPort(addr string) int {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		if p, err := strconv.Atoi(addr[i+1:]); err == nil {
			return p
		}
	}
	return 80
}
