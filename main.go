package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"LiveBoard/internal/board"
	"LiveBoard/internal/config"
	boardnet "LiveBoard/internal/net"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"

	"github.com/spf13/pflag"
)

const discoveryTimeout = 3 * time.Second

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  liveboard relay [flags]          run a room relay
  liveboard join [flags] [ws-url]  join a room from the console

run "liveboard <command> --help" for flags
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	if cmd != "relay" && cmd != "join" {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	fs := pflag.NewFlagSet(cmd, pflag.ExitOnError)
	cfg.BindFlags(fs)
	_ = fs.Parse(os.Args[2:])
	// A bare URL argument joins that relay, like a share link.
	if cmd == "join" && fs.NArg() > 0 {
		cfg.ServerURL = fs.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "relay":
		err = runRelay(ctx, cfg, logger)
	case "join":
		err = runJoin(ctx, cfg, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exiting", slog.String("command", cmd), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runRelay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting relay", slog.String("addr", cfg.ListenAddr))
	hub := relay.NewHub(logger, cfg.RoomGrace)
	srv := relay.NewServer(hub, logger)

	port, err := listenPort(cfg.ListenAddr)
	if err != nil {
		return err
	}
	if cfg.MDNS {
		mdnsServer, err := boardnet.Advertise(port, "LiveBoard relay")
		if err != nil {
			logger.Warn("mDNS advertisement failed, peers need the share link", slog.String("error", err.Error()))
		} else {
			defer mdnsServer.Shutdown()
			logger.Info("advertising relay over mDNS")
		}
	}
	logger.Info("share this link", slog.String("url", boardnet.ShareLink(port)))
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}

func runJoin(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	url := cfg.ServerURL
	if url == "" {
		if !cfg.MDNS {
			return errors.New("no relay URL configured and mDNS discovery is disabled")
		}
		logger.Info("looking for a relay on the local network")
		found, err := boardnet.Browse(discoveryTimeout)
		if err != nil {
			return err
		}
		url = found
	}

	user := state.NewUser(cfg.UserName, cfg.UserColor)
	logger = logger.With(slog.String("user", user.ID))
	logger.Info("joining", slog.String("relay", url), slog.String("name", user.Name))

	dialer := &boardnet.WebsocketDialer{URL: url, HandshakeTimeout: cfg.HandshakeTimeout, Logger: logger}
	con := newConsole(os.Stdin, os.Stdout, user)
	b := board.New(ctx, dialer, user, board.Config{
		Options: boardnet.Options{
			ReconnectAttempts: cfg.ReconnectAttempts,
			ReconnectDelay:    cfg.ReconnectDelay,
			HandshakeTimeout:  cfg.HandshakeTimeout,
		},
		HistoryDepth: cfg.HistoryDepth,
		OnEvent:      con.notify,
	}, logger)
	defer b.Close()

	b.JoinRoom(cfg.Room)
	return con.run(ctx, b)
}

func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(strings.TrimSpace(p))
	if err != nil {
		return 0, fmt.Errorf("listen port %q: %w", p, err)
	}
	return port, nil
}
