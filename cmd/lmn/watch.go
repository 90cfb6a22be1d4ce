package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
)

// watchAndRun runs path once, then re-runs it each time the file is written
// or re-created, until interrupted. It watches the containing directory
// rather than the file itself, so a save by atomic rename is still seen;
// events for other files in that directory are ignored.
func watchAndRun(path string, f *flagSet) error {
	if err := runOnce(path, f); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	for {
		select {
		case <-sigCh:
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			evAbs, err := filepath.Abs(ev.Name)
			if err != nil || evAbs != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s changed, re-running\n", path)
			if err := runOnce(path, f); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}
	}
}
