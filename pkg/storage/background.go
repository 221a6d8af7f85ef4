package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// saveFunc persists a single namespace
type saveFunc func(ctx context.Context, db *Database) error

// autosaver periodically saves the dirty namespaces of a registry
type autosaver struct {
	reg      *registry
	save     saveFunc
	interval time.Duration
	logger   *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func newAutosaver(reg *registry, save saveFunc, interval time.Duration, logger *slog.Logger) *autosaver {
	return &autosaver{
		reg:      reg,
		save:     save,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// start launches the background save worker
func (a *autosaver) start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.saveDirty(context.Background())
			case <-a.stopChan:
				return
			}
		}
	}()
}

// stop stops the worker and waits for an in-flight save
func (a *autosaver) stop() {
	a.stopOnce.Do(func() { close(a.stopChan) })
	a.wg.Wait()
}

func (a *autosaver) saveDirty(ctx context.Context) {
	start := time.Now()
	dirty := a.reg.dirty()
	if len(dirty) == 0 {
		a.logger.Debug("no dirty databases to save")
		return
	}

	a.logger.Info("background save starting", "databases", len(dirty))
	if err := saveAll(ctx, dirty, a.save); err != nil {
		a.logger.Warn("background save completed with errors", "error", err, "elapsed", time.Since(start))
		return
	}
	a.logger.Info("background save completed", "databases", len(dirty), "elapsed", time.Since(start))
}

// saveAll saves namespaces concurrently and returns the first error
func saveAll(ctx context.Context, dbs []*Database, save saveFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, db := range dbs {
		db := db
		g.Go(func() error {
			return save(ctx, db)
		})
	}
	return g.Wait()
}
