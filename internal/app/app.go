package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"siakad/internal/config"
	"siakad/internal/digest"
	"siakad/internal/listener"
	"siakad/internal/notify"
	rtsup "siakad/internal/runtime/supervisor"
	"siakad/internal/schedule"
	"siakad/internal/storage"
	logx "siakad/pkg/logx"
)

// Default audience roles, mirroring the parties the academic system
// notifies on every schedule change.
var defaultRoles = []string{"student", "lecturer", "admin"}

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	hub  *notify.Hub
	reg  *schedule.Registry
	disp *notify.Dispatcher
	dig  *digest.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	hub := notify.NewHub(logSvc.Logger().With(logx.String("comp", "hub")))

	// Role listeners (the in-process notification audiences).
	for _, role := range enabledRoles(cfg) {
		hub.Attach(listener.NewRoleLogger(role, logSvc.Logger().With(logx.String("comp", "notif"))))
	}
	if store != nil {
		hub.Attach(listener.NewAudit(store))
	}

	// Async pipeline for external sinks.
	dispCfg, err := mapNotifyConfig(cfg)
	if err != nil {
		return nil, err
	}
	disp := notify.NewDispatcher(dispCfg,
		logSvc.Logger().With(logx.String("comp", "dispatch")),
		notify.NewLogSink(logSvc.Logger().With(logx.String("comp", "feed"))))
	if dispCfg.Enabled {
		hub.Attach(disp)
	}

	reg := schedule.NewRegistry(hub)

	dig := digest.New(mapDigestConfig(cfg), reg, logSvc.Logger().With(logx.String("comp", "digest")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		hub:     hub,
		reg:     reg,
		disp:    disp,
		dig:     dig,
	}, nil
}

// Registry exposes the scheduling core to callers embedding the app.
func (a *App) Registry() *schedule.Registry { return a.reg }

// Hub exposes the notification hub so external callers can attach
// their own listeners.
func (a *App) Hub() *notify.Hub { return a.hub }

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		if _, err := mapNotifyConfig(cfg); err != nil {
			return err
		}
		return a.dig.Validate(mapDigestConfig(cfg))
	})

	// Seed timetable before anything can observe a partial load.
	if cfg := a.cfgm.Get(); cfg != nil && strings.TrimSpace(cfg.Seed) != "" {
		if err := a.loadSeed(cfg.Seed); err != nil {
			return err
		}
	}

	a.disp.Start(a.sup.Context())
	if err := a.dig.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	a.sup.Go("config.apply", func(c context.Context) error {
		return a.applyLoop(c)
	})

	a.log.Info("started", logx.Int("sessions", a.reg.Len()))
	return nil
}

func (a *App) loadSeed(path string) error {
	sessions, err := LoadSeed(path)
	if err != nil {
		return err
	}
	loaded := 0
	for _, s := range sessions {
		if err := a.reg.Create(s); err != nil {
			var conflict *schedule.ConflictError
			if errors.As(err, &conflict) {
				a.log.Warn("seed session skipped",
					logx.String("session", s.Code),
					logx.String("kind", conflict.Kind.String()),
					logx.String("with", conflict.With.Code))
				continue
			}
			return fmt.Errorf("seed %s: %w", s.Code, err)
		}
		loaded++
	}
	a.log.Info("seed loaded", logx.String("path", path), logx.Int("sessions", loaded))
	return nil
}

// applyLoop pushes reloaded config into the live services.
func (a *App) applyLoop(ctx context.Context) error {
	ch := a.cfgm.Subscribe(1)
	defer a.cfgm.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok {
				return nil
			}
			a.logs.Apply(mapLogConfig(cfg))
			if dc, err := mapNotifyConfig(cfg); err == nil {
				a.disp.Apply(dc)
			}
			if err := a.dig.Apply(ctx, mapDigestConfig(cfg)); err != nil {
				a.log.Warn("digest apply failed", logx.Err(err))
			}
			a.log.Info("config applied")
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	a.dig.Stop()
	a.disp.Stop(ctx)

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if cerr := a.logs.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// ---- config mapping ----

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.Duration("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	if cfg.Storage.KeepDays < 0 {
		return storage.Config{}, false, fmt.Errorf("storage.keep_days must be >= 0")
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
		KeepDays:    cfg.Storage.KeepDays,
	}, true, nil
}

func mapNotifyConfig(cfg *config.Config) (notify.DispatcherConfig, error) {
	// Omitted section means enabled with defaults.
	nc := cfg.Notify
	if nc == nil {
		return notify.DispatcherConfig{Enabled: true}, nil
	}
	if nc.Workers < 0 || nc.QueueSize < 0 || nc.RatePerSec < 0 || nc.RetryMax < 0 {
		return notify.DispatcherConfig{}, fmt.Errorf("notify: counts must be >= 0")
	}
	base, err := config.Duration("notify.retry_base", nc.RetryBase)
	if err != nil {
		return notify.DispatcherConfig{}, err
	}
	maxDelay, err := config.Duration("notify.retry_max_delay", nc.RetryMaxDelay)
	if err != nil {
		return notify.DispatcherConfig{}, err
	}
	return notify.DispatcherConfig{
		Enabled:       nc.Enabled,
		Workers:       nc.Workers,
		QueueSize:     nc.QueueSize,
		RatePerSec:    nc.RatePerSec,
		RetryMax:      nc.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
	}, nil
}

func mapDigestConfig(cfg *config.Config) digest.Config {
	if cfg.Digest == nil {
		return digest.Config{}
	}
	return digest.Config{
		Enabled:  cfg.Digest.Enabled,
		At:       cfg.Digest.At,
		Timezone: cfg.Digest.Timezone,
	}
}

func enabledRoles(cfg *config.Config) []string {
	if cfg.Listeners == nil {
		return defaultRoles
	}
	var roles []string
	for _, role := range defaultRoles {
		if cfg.Listeners[role] {
			roles = append(roles, role)
		}
	}
	return roles
}
