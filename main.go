package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/llehouerou/wavecord/internal/commands"
	"github.com/llehouerou/wavecord/internal/config"
	"github.com/llehouerou/wavecord/internal/discord"
	"github.com/llehouerou/wavecord/internal/errmsg"
	"github.com/llehouerou/wavecord/internal/mpd"
	"github.com/llehouerou/wavecord/internal/mpris"
	"github.com/llehouerou/wavecord/internal/notify"
	"github.com/llehouerou/wavecord/internal/presence"
	"github.com/llehouerou/wavecord/internal/relay"
	"github.com/llehouerou/wavecord/internal/server"
)

var version = "dev"

const (
	sourceRetryDelay = 10 * time.Second
	shutdownTimeout  = 5 * time.Second
)

type source interface {
	Run(ctx context.Context, emit func(relay.Snapshot)) error
}

type options struct {
	configPath string
	listen     string
	clientID   string
	verbose    bool
}

func main() {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to an extra config file (loaded last)")
	flag.StringVar(&opts.listen, "listen", "", "Command server address (host:port)")
	flag.StringVar(&opts.clientID, "client-id", "", "Discord application client ID")
	flag.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("wavecord", version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpLoadConfig, err))
	}
	if opts.listen != "" {
		cfg.Server.Listen = opts.listen
	}
	if opts.clientID != "" {
		cfg.Discord.ClientID = opts.clientID
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := presence.NewSession(cfg.Discord.ClientID, discord.Connector{},
		presence.WithLargeImage(cfg.Discord.LargeImage),
		presence.WithLogger(log),
	)
	defer func() {
		if err := session.Close(); err != nil {
			log.Debug("close presence session", "err", err)
		}
	}()

	rel := relay.New(session, log)
	status := newStatus(cfg, log)

	dispatcher := commands.New(session)
	dispatcher.OnReconnect(rel.Invalidate)
	dispatcher.OnReconnect(func() { status.Report(true, "") })

	srv := server.New(dispatcher, session.IsConnected, cfg.Server.AllowedOrigins, log)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.Discord.AutoConnect {
		if err := session.Connect(); err != nil {
			// Not fatal: the front-end can retry with init_discord.
			log.Warn(err.Error())
			status.Report(false, err.Error())
		} else {
			log.Info("connected to Discord", "client_id", session.ClientID())
			rel.Invalidate()
		}
	}

	fwd := &forwarder{rel: rel, status: status, log: log}
	if cfg.Discord.AutoConnect {
		fwd.session = session
		fwd.retryEvery = sourceRetryDelay
	}

	if !cfg.HasSources() {
		log.Info("no playback source enabled, waiting for front-end commands")
	}
	var wg sync.WaitGroup
	for name, src := range sources(cfg, log) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runSource(ctx, name, src, fwd.push, log)
		}()
	}

	var result error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		result = errors.New(errmsg.Format(errmsg.OpInitialize, err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("command server shutdown", "err", err)
	}

	wg.Wait()
	return result
}

func sources(cfg *config.Config, log *slog.Logger) map[string]source {
	out := make(map[string]source)
	if cfg.MPRIS.Enabled {
		out["mpris"] = mpris.New(cfg.MPRIS.Player, log)
	}
	if cfg.MPD.Enabled {
		out["mpd"] = mpd.New(cfg.MPD.Network, cfg.MPD.Address, cfg.MPD.Password, log)
	}
	return out
}

// runSource keeps src running until ctx is cancelled, restarting it after
// a delay when it fails.
func runSource(ctx context.Context, name string, src source, emit func(relay.Snapshot), log *slog.Logger) {
	for {
		err := src.Run(ctx, emit)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn(errmsg.FormatWith(errmsg.OpSourceConnect, name, err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sourceRetryDelay):
		}
	}
}

// forwarder pushes source snapshots through the relay. When session is set,
// a failed delivery triggers a reconnect (at most once per retryEvery) and
// the snapshot is sent again on the new connection.
type forwarder struct {
	rel        *relay.Relay
	status     *notify.Status
	log        *slog.Logger
	session    interface{ Reconnect() error }
	retryEvery time.Duration

	mu          sync.Mutex
	lastAttempt time.Time
}

func (f *forwarder) push(s relay.Snapshot) {
	// Failures are logged by the relay.
	err := f.rel.Push(s)
	if err != nil && f.reconnect() {
		err = f.rel.Push(s)
	}
	if err != nil {
		f.status.Report(false, err.Error())
		return
	}
	f.status.Report(true, "")
}

func (f *forwarder) reconnect() bool {
	if f.session == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lastAttempt.IsZero() && time.Since(f.lastAttempt) < f.retryEvery {
		return false
	}
	f.lastAttempt = time.Now()

	if err := f.session.Reconnect(); err != nil {
		f.log.Warn(err.Error())
		return false
	}
	f.log.Info("reconnected to Discord")
	f.rel.Invalidate()
	return true
}

// newStatus returns nil when notifications are disabled; a nil *notify.Status
// ignores reports.
func newStatus(cfg *config.Config, log *slog.Logger) *notify.Status {
	if !cfg.Notify.Enabled {
		return nil
	}
	n, err := notify.New()
	if err != nil {
		log.Debug("desktop notifications unavailable", "err", err)
		return nil
	}
	return notify.NewStatus(n, log)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
