// Command sidebar is the discovery sidebar client. It keeps a snapshot of
// events from the server, keeps statuses in step with the clock while it is
// visible, and prints the Happening Now, Upcoming Near You and Your Schedule
// views whenever something changed.
//
// SIGUSR1 hides the sidebar (polling pauses), SIGUSR2 shows it again.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"activity-hub/internal/config"
	"activity-hub/internal/discovery"
	"activity-hub/internal/geolocation"
	"activity-hub/internal/logging"
	"activity-hub/internal/membership"
	"activity-hub/internal/prefs"
	"activity-hub/internal/remote"
	"activity-hub/internal/snapshot"
	"activity-hub/internal/statussync"
)

func main() {
	once := flag.Bool("once", false, "print the views once and exit")
	radius := flag.Float64("radius", 0, "save the search radius in km and exit")
	join := flag.String("join", "", "join the event with this id and exit")
	leave := flag.String("leave", "", "leave the event with this id and exit")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		log.Fatal("open preferences", zap.Error(err))
	}
	if *radius != 0 {
		if err := store.SetRadiusKm(*radius); err != nil {
			log.Fatal("save radius", zap.Error(err))
		}
		fmt.Printf("radius set to %g km\n", *radius)
		return
	}

	client, err := remote.Dial(cfg.ServerAddr, cfg.AccessToken)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer client.Close()

	app := newApp(cfg, client, store, log)

	switch {
	case *join != "":
		err = app.members.Join(ctx, *join, client.UserID())
	case *leave != "":
		err = app.members.Leave(ctx, *leave, client.UserID())
	default:
		err = app.run(ctx, *once)
	}
	if err != nil {
		log.Fatal("sidebar", zap.Error(err))
	}
}

type app struct {
	cache   *snapshot.Cache
	members *membership.Controller
	views   *discovery.Service
	sched   *statussync.Scheduler
	log     *zap.Logger

	renderMu sync.Mutex
}

func newApp(cfg *config.Client, client *remote.Client, store *prefs.Store, log *zap.Logger) *app {
	a := &app{log: log}
	a.cache = snapshot.New(client, client.UserID(), snapshot.WithLogger(log.Named("snapshot")))

	var locator geolocation.Provider = geolocation.None{}
	if cfg.Position != nil {
		locator = geolocation.Fixed(*cfg.Position)
	}
	a.views = discovery.NewService(a.cache,
		discovery.WithGeolocation(geolocation.NewCached(locator, geolocation.DefaultMaxAge, clockwork.NewRealClock()), cfg.GeoTimeout),
		discovery.WithRadius(store),
		discovery.WithProfileLocation(cfg.ProfileLocation),
		discovery.WithLogger(log.Named("discovery")),
	)

	a.members = membership.New(client,
		membership.WithRefresh(a.refresh),
		membership.WithLogger(log.Named("membership")),
	)

	a.sched = statussync.New(client,
		statussync.WithInterval(cfg.SyncInterval),
		statussync.WithOnStatusUpdated(func(int) {
			if err := a.refresh(context.Background()); err != nil {
				a.log.Warn("refresh after status sync failed", zap.Error(err))
			}
		}),
		statussync.WithOnSyncError(func(err error) {
			a.log.Warn("status sync failed", zap.Error(err))
		}),
		statussync.WithLogger(log.Named("statussync")),
	)
	return a
}

// refresh reloads the snapshot and prints the views from it.
func (a *app) refresh(ctx context.Context) error {
	if err := a.cache.Refresh(ctx); err != nil {
		return err
	}
	a.renderMu.Lock()
	defer a.renderMu.Unlock()
	return render(os.Stdout, a.views.Build(ctx), a.cache)
}

func (a *app) run(ctx context.Context, once bool) error {
	if once {
		return a.refresh(ctx)
	}

	visibility := make(chan os.Signal, 1)
	signal.Notify(visibility, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(visibility)

	// the first pass refreshes and renders through OnStatusUpdated
	a.sched.Start(ctx)
	defer a.sched.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-visibility:
			visible := sig == syscall.SIGUSR2
			a.log.Info("visibility changed", zap.Bool("visible", visible))
			a.sched.SetVisible(visible)
		}
	}
}
