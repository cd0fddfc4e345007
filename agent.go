package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dlarsson/keypadd/config"
	"dlarsson/keypadd/dispatch"
	"dlarsson/keypadd/keymap"
	"dlarsson/keypadd/session"
	"dlarsson/keypadd/storage"
	"dlarsson/keypadd/systray"
	"dlarsson/keypadd/web"
)

// Agent coordinates the device listener, dispatch engine, and the optional
// dashboard, tray, and history collaborators.
type Agent struct {
	cfg     *config.Config
	session *session.Controller
	db      *storage.DB
	web     *web.Server
	tray    *systray.Manager
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config) (*Agent, error) {
	profile, err := keymap.Load(cfg.ProfilePath)
	if err != nil {
		// A corrupt profile should not keep the daemon from starting; the
		// file on disk is left untouched until the user saves explicitly.
		slog.Warn("Failed to load profile, starting with defaults", "path", cfg.ProfilePath, "error", err)
		profile = keymap.NewProfile()
	}

	dispatcher := dispatch.New(dispatch.NewShellRunner(), dispatch.NewXdotoolSynthesizer())
	sess := session.New(profile, dispatcher)

	a := &Agent{
		cfg:     cfg,
		session: sess,
	}

	if cfg.History.Enabled {
		configDir, err := config.ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		db, err := storage.Open(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		a.db = db
		sess.OnDispatch = func(code uint16, act keymap.Action, dispatchErr error) {
			press := &storage.Press{
				Timestamp: time.Now().UTC(),
				Code:      code,
				Kind:      act.Kind.String(),
				Value:     act.Value,
				Success:   dispatchErr == nil,
			}
			if dispatchErr != nil {
				press.ErrorMessage = dispatchErr.Error()
			}
			if err := db.SavePress(press); err != nil {
				slog.Error("Failed to record press", "error", err)
			}
		}
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(sess, a.db, cfg)
	}

	if cfg.Tray.Enabled {
		tray := systray.NewManager(cfg.Web.Port, nil, sess.Enabled())
		tray.OnToggle = sess.SetEnabled
		a.tray = tray
	}

	return a, nil
}

// Run starts the agent's main event loop
func (a *Agent) Run(ctx context.Context) error {
	if a.web != nil {
		go func() {
			if err := a.web.Start(); err != nil {
				slog.Error("Web server stopped", "error", err)
			}
		}()
	}

	// nil when the tray is disabled; receiving from it blocks forever
	var trayQuit <-chan struct{}
	if a.tray != nil {
		go a.tray.Run()
		trayQuit = a.tray.WaitForQuit()
	}

	// Resume listening on the remembered device, if any.
	if path := a.session.Profile().DevicePath; path != "" {
		if err := a.session.Start(path); err != nil {
			slog.Error("Failed to start listener", "path", path, "error", err)
		}
	}

	slog.Info("keypadd started", "profile", a.cfg.ProfilePath)

	// Main event loop
	for {
		select {
		case <-ctx.Done():
			return a.shutdown()

		case <-trayQuit:
			slog.Info("Shutting down")
			return a.shutdown()

		case ev := <-a.session.Events():
			a.handleEvent(ev)
		}
	}
}

// handleEvent logs a session event and fans it out to the collaborators.
func (a *Agent) handleEvent(ev session.Event) {
	switch ev.Type {
	case session.KeyDown:
		slog.Debug("Key down", "code", ev.Code)
	case session.KeyUp:
		slog.Debug("Key up", "code", ev.Code)
	case session.Recorded:
		slog.Info("Recorded key", "code", ev.Code)
	case session.Error:
		slog.Error("Listener error", "message", ev.Message)
	case session.Status:
		slog.Info("Listener status", "message", ev.Message)
		if a.tray != nil {
			a.tray.SetEnabled(a.session.Enabled())
		}
	}

	if a.web != nil {
		a.web.BroadcastEvent(ev)
	}
}

// shutdown releases the device grab and closes the collaborators. The
// profile is not saved here; saving is always explicit.
func (a *Agent) shutdown() error {
	if err := a.session.Stop(); err != nil {
		slog.Warn("Listener did not stop cleanly", "error", err)
	}
	if a.tray != nil {
		a.tray.Stop()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("Failed to close history database", "error", err)
		}
	}
	return nil
}
