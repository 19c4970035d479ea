package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/b/tmux-tabsplit/pkg/config"
	"github.com/b/tmux-tabsplit/pkg/daemon"
	"github.com/b/tmux-tabsplit/pkg/splitstore"
	"github.com/b/tmux-tabsplit/pkg/tmux"
)

var crashLog *log.Logger
var eventLog *log.Logger
var debugLog *log.Logger

func openLog(sessionID, kind, prefix string) *log.Logger {
	path := fmt.Sprintf("/tmp/tabsplit-daemon-%s-%s.log", sessionID, kind)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stderr, "["+strings.ToUpper(kind)+"] ", log.LstdFlags)
	}
	return log.New(f, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logEvent(format string, args ...interface{}) {
	if eventLog != nil {
		eventLog.Printf(format, args...)
	}
}

func logCrash(context string, r interface{}) {
	crashLog.Printf("=== CRASH in %s ===", context)
	crashLog.Printf("Panic: %v", r)
	crashLog.Printf("Stack trace:\n%s", debug.Stack())
	crashLog.Printf("=== END CRASH ===\n")
}

func recoverAndLog(context string) {
	if r := recover(); r != nil {
		logCrash(context, r)
	}
}

var (
	sessionID  = flag.String("session", "", "tmux session ID")
	debugMode  = flag.Bool("debug", false, "Enable debug logging")
	configPath = flag.String("config", "", "Config file (default: "+config.DefaultConfigPath()+")")
)

// widthProber is implemented by hosts that can report the window width.
type widthProber interface {
	WindowWidth() (int, error)
}

// buildHost returns the host named by the config.
func buildHost(cfg *config.Config) (splitstore.Host, error) {
	switch cfg.Daemon.Host {
	case config.HostTmux:
		return tmux.NewHost(), nil
	case config.HostStatic:
		return splitstore.NewStaticHost(cfg.Daemon.Panels...), nil
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownHost, cfg.Daemon.Host)
}

// applyConfig pushes the live-reloadable settings into the store.
func applyConfig(store *splitstore.Store, cfg *config.Config) {
	store.SetDistributionTolerance(cfg.Store.DistributionTolerance)
}

// watchConfig reloads path on every write until done is closed.
func watchConfig(path string, store *splitstore.Store, done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory so editors that replace the file are seen too.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer recoverAndLog("config-watch")
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := config.LoadConfig(path)
				if err != nil {
					logEvent("CONFIG_RELOAD_FAILED path=%s err=%v", path, err)
					continue
				}
				applyConfig(store, cfg)
				logEvent("CONFIG_RELOAD tolerance=%g", cfg.Store.DistributionTolerance)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				debugLog.Printf("config watcher: %v", err)
			}
		}
	}()
	return nil
}

// syncWidth submits the probed window width while the store is active.
// Unchanged widths are no-ops in the store.
func syncWidth(store *splitstore.Store, prober widthProber) error {
	if store.Status() != splitstore.StatusActive {
		return nil
	}
	width, err := prober.WindowWidth()
	if err != nil {
		return err
	}
	_, err = store.Update(splitstore.UpdateWindowWidth(width))
	return err
}

func main() {
	flag.Parse()

	if *sessionID == "" {
		out, err := exec.Command("tmux", "display-message", "-p", "#{session_id}").Output()
		if err == nil {
			*sessionID = strings.TrimSpace(string(out))
		}
	}

	crashLog = openLog(*sessionID, "crash", "")
	eventLog = openLog(*sessionID, "events", "[event] ")
	defer recoverAndLog("main")

	if *debugMode {
		debugLog = log.New(os.Stderr, "[daemon] ", log.LstdFlags|log.Lmicroseconds)
	} else {
		debugLog = log.New(io.Discard, "", 0)
	}

	if *configPath == "" {
		*configPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host, err := buildHost(cfg)
	if err != nil {
		log.Fatalf("Failed to create host: %v", err)
	}

	store := splitstore.New(host,
		splitstore.WithLogger(eventLog),
		splitstore.WithDistributionTolerance(cfg.Store.DistributionTolerance),
	)

	server := daemon.NewServer(*sessionID, store)
	server.Logger = eventLog
	server.OnUpdate = func(clientID string, change splitstore.Change, err error) {
		if err != nil {
			debugLog.Printf("Update from %s rejected: %v", clientID, err)
			return
		}
		debugLog.Printf("Update from %s: added=%v removed=%v updated=%v", clientID, change.Added, change.Removed, change.Updated)
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	debugLog.Printf("Server listening on %s", server.GetSocketPath())
	logEvent("DAEMON_START session=%s pid=%d host=%s", *sessionID, os.Getpid(), cfg.Daemon.Host)

	if err := watchConfig(*configPath, store, server.Done()); err != nil {
		debugLog.Printf("Config watch disabled: %v", err)
	}

	if prober, ok := host.(widthProber); ok && cfg.Daemon.PollWidth {
		go func() {
			defer recoverAndLog("width-poll")
			ticker := time.NewTicker(cfg.Daemon.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-server.Done():
					return
				case <-ticker.C:
					if err := syncWidth(store, prober); err != nil {
						debugLog.Printf("Width sync: %v", err)
					}
				}
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	<-sigCh
	debugLog.Printf("Shutting down daemon")
	logEvent("DAEMON_STOP session=%s pid=%d", *sessionID, os.Getpid())
	if _, err := store.Update(splitstore.SetDestroyed()); err != nil {
		debugLog.Printf("Destroy store: %v", err)
	}
	server.Stop()
}
