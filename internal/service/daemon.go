// Package service owns the skillet-service process lifecycle: the HTTP
// server, the PID file other invocations probe, and shutdown on signal.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/skillet/internal/config"
	"github.com/ternarybob/skillet/internal/fileutil"
	"github.com/ternarybob/skillet/internal/logger"
)

// shutdownGrace bounds how long in-flight requests get to finish.
const shutdownGrace = 30 * time.Second

// Daemon runs the HTTP server and records its PID so concurrent
// `status` and `stop` invocations can find the process.
type Daemon struct {
	cfg *config.Config
	srv *http.Server
	log arbor.ILogger

	mu      sync.Mutex
	started bool

	quit     chan struct{} // closed by Stop
	quitOnce sync.Once
	done     chan struct{} // closed when shutdown completes
}

// NewDaemon creates a daemon for the given config. Nothing runs until
// Start is called.
func NewDaemon(cfg *config.Config) *Daemon {
	return &Daemon{
		cfg:  cfg,
		log:  logger.GetLogger(),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start claims the PID file and brings up the HTTP server. It returns
// once the listener goroutine is launched; use Wait to block until
// shutdown.
func (d *Daemon) Start(handler http.Handler) error {
	d.mu.Lock()
	already := d.started
	d.started = true
	d.mu.Unlock()
	if already {
		return fmt.Errorf("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	d.log = logger.SetupLogger(d.cfg)

	pid := []byte(strconv.Itoa(os.Getpid()))
	if err := fileutil.WriteFile(d.cfg.PIDPath(), pid); err != nil {
		return fmt.Errorf("write PID: %w", err)
	}

	d.srv = &http.Server{
		Handler:      handler,
		Addr:         d.cfg.Address(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go d.serve()

	return nil
}

func (d *Daemon) serve() {
	d.log.Info().Str("address", d.cfg.Address()).Msg("Listening")
	err := d.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		d.log.Error().Err(err).Msg("HTTP server failed")
	}
}

// Wait blocks until a termination signal or Stop arrives, then drains
// the server and releases the PID file.
func (d *Daemon) Wait() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		d.log.Info().Str("signal", sig.String()).Msg("Shutting down on signal")
	case <-d.quit:
		d.log.Info().Msg("Shutting down on stop request")
	}

	d.shutdown()
}

// Stop asks a started daemon to shut down and blocks until Wait has
// finished doing so. A daemon that never started returns immediately.
func (d *Daemon) Stop() {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		return
	}

	d.quitOnce.Do(func() { close(d.quit) })
	<-d.done
}

func (d *Daemon) shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if d.srv != nil {
		if err := d.srv.Shutdown(ctx); err != nil {
			d.log.Error().Err(err).Msg("Shutdown incomplete")
		}
	}

	os.Remove(d.cfg.PIDPath())
	logger.Stop()

	d.started = false
	close(d.done)
}

// IsRunning reports whether a daemon for this config is alive, and its
// PID when it is. A PID file left behind by a dead process is removed.
func IsRunning(cfg *config.Config) (bool, int) {
	path := cfg.PIDPath()
	pid, err := readPIDFile(path)
	if err != nil {
		return false, 0
	}
	if !processAlive(pid) {
		os.Remove(path)
		return false, 0
	}
	return true, pid
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes a PID with signal 0, which checks existence
// without delivering anything.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// StopRunning terminates the daemon recorded in the PID file: SIGTERM
// first, SIGKILL if it has not exited within three seconds.
func StopRunning(cfg *config.Config) error {
	ok, pid := IsRunning(cfg)
	if !ok {
		return fmt.Errorf("daemon not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if alive, _ := IsRunning(cfg); !alive {
			return nil
		}
	}

	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill process: %w", err)
	}
	os.Remove(cfg.PIDPath())

	return nil
}
