package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/vposukhov/stockpilot/internal/client/client"
	"github.com/vposukhov/stockpilot/internal/client/config"
	"github.com/vposukhov/stockpilot/internal/client/models"
	"github.com/vposukhov/stockpilot/internal/client/services"
	"github.com/vposukhov/stockpilot/internal/logging"
	"github.com/vposukhov/stockpilot/internal/netx"

	_ "modernc.org/sqlite"
)

// App wires the auth subsystem together for the interactive CLI.
type App struct {
	config  *config.Config
	repos   *client.Repositories
	remote  client.Client
	session *services.SessionService
	mode    *services.ModeService
	prober  *netx.Prober
	log     logging.Logger
	reader  *bufio.Reader

	online atomic.Bool
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	repos, err := client.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	remote := client.NewHTTPClient(cfg.ServerEndpointAddr, repos.Metadata)
	mode := services.NewModeService(repos.Metadata)
	offline := services.NewOfflineAuthService(repos.Users, repos.Metadata, log, cfg.OfflineVerifyPasswords)
	session := services.NewSessionService(remote, offline, mode, log)

	return &App{
		config:  cfg,
		repos:   repos,
		remote:  remote,
		session: session,
		mode:    mode,
		prober:  netx.NewProber(cfg.ProbeEndpoint, cfg.ProbeTimeout),
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.session.Init(ctx); err != nil {
		return err
	}

	unsubscribe := a.session.Subscribe(func(s *models.Session) {
		if s == nil {
			a.log.Debug(ctx, "session cleared")
		} else {
			a.log.Debug(ctx, "session changed", "email", s.User.Email, "source", string(s.Source))
		}
	})
	defer unsubscribe()

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.Root(ctx)
	return nil
}

func (a *App) close() {
	a.session.Close()
	_ = a.remote.Close()
	_ = a.repos.DB.Close()
}

// StartOnlineStatusWatcher periodically pings the identity backend and
// records reachability transitions. It informs the prompt only; routing is
// always decided by the persisted mode flag, not by reachability.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.remote.Ping(pingCtx)
			cancel()

			was := a.online.Swap(err == nil)
			if was && err != nil {
				a.log.Warn(ctx, "identity backend became unreachable", "error", err)
			} else if !was && err == nil {
				a.log.Info(ctx, "identity backend reachable")
			}

		case <-ctx.Done():
			return
		}
	}
}
