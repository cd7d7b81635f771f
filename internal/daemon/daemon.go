// Package daemon provides the background service that keeps a device
// converged while the app is not in the foreground.
//
// The daemon:
// 1. Periodically replays pending offline changes to the remote store
// 2. Periodically runs the due-date urgency escalation sweep
// 3. Handles graceful shutdown
//
// Both loops are no-ops while the device is signed out (escalation still
// runs locally; only the pending flush needs a session).
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/jonahr4/taskapp-sync/internal/crud"
)

// Config holds configuration for the daemon.
type Config struct {
	// FlushInterval is how often pending changes are replayed remotely.
	FlushInterval time.Duration

	// EscalateInterval is how often the escalation sweep runs.
	EscalateInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FlushInterval:    30 * time.Second,
		EscalateInterval: 15 * time.Minute,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon runs the periodic flush and escalation loops.
type Daemon struct {
	service *crud.Service
	config  *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance. Use Start() to begin the loops.
func New(service *crud.Service, config *Config) (*Daemon, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 30 * time.Second
	}
	if config.EscalateInterval <= 0 {
		config.EscalateInterval = 15 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		service: service,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// Both loops run once immediately so a freshly started daemon converges
// without waiting a full interval. This blocks until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	d.flushOnce()
	d.escalateOnce()

	d.wg.Add(2)
	go d.flushLoop()
	go d.escalateLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")
	d.cancel()
	d.wg.Wait()
	d.config.Logger.Println("Daemon stopped")
	return nil
}

// flushLoop periodically replays pending changes.
func (d *Daemon) flushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.flushOnce()
		}
	}
}

// flushOnce replays pending changes if the device is signed in.
func (d *Daemon) flushOnce() {
	session, err := d.service.LoadSession(d.ctx)
	if err != nil {
		d.config.Logger.Printf("Error loading session: %v", err)
		return
	}
	if !session.Valid() {
		return
	}

	flushed, err := d.service.FlushPending(d.ctx, session)
	if err != nil {
		d.config.Logger.Printf("Pending flush incomplete: %v", err)
		return
	}
	if flushed > 0 {
		d.config.Logger.Printf("Flushed %d pending changes", flushed)
	}
}

// escalateLoop periodically runs the due-date escalation sweep.
func (d *Daemon) escalateLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.EscalateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.escalateOnce()
		}
	}
}

// escalateOnce promotes tasks whose due date entered the escalation
// window. Runs in whatever mode the device is in; a missing session just
// means the promotions stay local until the next flush.
func (d *Daemon) escalateOnce() {
	session, err := d.service.LoadSession(d.ctx)
	if err != nil {
		d.config.Logger.Printf("Error loading session: %v", err)
		session = nil
	}

	promoted, err := d.service.EscalateDueTasks(d.ctx, session, time.Now())
	if err != nil {
		d.config.Logger.Printf("Escalation sweep failed: %v", err)
		return
	}
	if promoted > 0 {
		d.config.Logger.Printf("Escalated %d tasks approaching their due date", promoted)
	}
}
