package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/jonahr4/taskapp-sync/internal/config"
	"github.com/jonahr4/taskapp-sync/internal/crud"
	"github.com/jonahr4/taskapp-sync/internal/localstore"
	"github.com/jonahr4/taskapp-sync/internal/model"
	"github.com/jonahr4/taskapp-sync/internal/remotestore"
	"github.com/jonahr4/taskapp-sync/internal/syncengine"
)

// app bundles the wired-up layers a command needs.
type app struct {
	cfg     *config.Config
	store   *localstore.Store
	remote  remotestore.Store
	service *crud.Service
	engine  *syncengine.Engine
	session *model.AuthSession
}

// openApp loads config, opens the local store and builds the service
// stack. The returned app must be closed.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := localstore.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	quiet := log.New(io.Discard, "", 0)
	remote := remotestore.NewClient(cfg.Remote.BaseURL, quiet)
	service := crud.New(store, remote, quiet)
	engine := syncengine.New(service, remote, quiet)

	session, err := service.LoadSession(context.Background())
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		store:   store,
		remote:  remote,
		service: service,
		engine:  engine,
		session: session,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
}

// mustOpen is the common command prologue: open everything or exit.
func mustOpen() *app {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

// fail prints the error and exits after cleaning up.
func (a *app) fail(format string, args ...any) {
	a.close()
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
