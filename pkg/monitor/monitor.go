// Package monitor watches a drop directory for newly arriving archives.
// Files are reported only after they stop changing for a modification
// delay, so half-uploaded containers are never parsed.
package monitor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// MonitorFunc is called once per settled archive file.
type MonitorFunc func(file string) error

type Monitor struct {
	watcher    *fsnotify.Watcher
	wg         sync.WaitGroup
	cb         MonitorFunc
	extensions []string
	modDelay   time.Duration
	stop       context.Context
	cancel     context.CancelFunc

	pendingLock sync.Mutex
	pending     map[string]time.Time
}

func NewMonitor(onArchive MonitorFunc, extensions []string, modDelay time.Duration) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	stop, cancel := context.WithCancel(context.Background())
	return &Monitor{
		watcher:    watcher,
		cb:         onArchive,
		extensions: extensions,
		modDelay:   modDelay,
		pending:    map[string]time.Time{},
		stop:       stop,
		cancel:     cancel,
	}, nil
}

func (m *Monitor) Add(path string) error {
	return m.watcher.Add(path)
}

func (m *Monitor) Close() {
	m.watcher.Close()
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.work()
	m.wg.Add(1)
	go m.flush()
}

func (m *Monitor) work() {
	defer m.wg.Done()
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			Logger.Debug("new event", "event", event)
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !m.supported(event.Name) {
				continue
			}
			m.pendingLock.Lock()
			m.pending[event.Name] = time.Now()
			m.pendingLock.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			Logger.Error("watcher error", "error", err)
		}
	}
}

func (m *Monitor) supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, supported := range m.extensions {
		if ext == supported {
			return true
		}
	}
	return false
}

var FlushLoopPause = time.Millisecond * 100

// flush fires the callback for every pending file whose last write is
// older than the modification delay.
func (m *Monitor) flush() {
	defer m.wg.Done()
	ticker := time.NewTicker(FlushLoopPause)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop.Done():
			return
		case <-ticker.C:
			for _, file := range m.settled() {
				if err := m.cb(file); err != nil {
					Logger.Error("could not process file", "file", file, "error", err)
				}
			}
		}
	}
}

func (m *Monitor) settled() (files []string) {
	m.pendingLock.Lock()
	defer m.pendingLock.Unlock()
	for file, last := range m.pending {
		if time.Since(last) >= m.modDelay {
			files = append(files, file)
			delete(m.pending, file)
		}
	}
	return
}
