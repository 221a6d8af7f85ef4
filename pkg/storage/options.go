package storage

import (
	"log/slog"
	"time"
)

// BackendOptions holds the settings shared by the persistent backends
type BackendOptions struct {
	backgroundSave  bool
	saveInterval    time.Duration
	transactionSave bool
	compress        bool
	logger          *slog.Logger
}

type BackendOption func(*BackendOptions)

func defaultBackendOptions() BackendOptions {
	return BackendOptions{
		saveInterval: 5 * time.Minute,
		compress:     true,
		logger:       slog.Default(),
	}
}

// WithBackgroundSave saves dirty namespaces every interval. It disables transaction saves.
func WithBackgroundSave(interval time.Duration) BackendOption {
	return func(o *BackendOptions) {
		if interval <= 0 {
			return
		}
		o.backgroundSave = true
		o.saveInterval = interval
		o.transactionSave = false
	}
}

// WithTransactionSave enables saving after every write
func WithTransactionSave(enabled bool) BackendOption {
	return func(o *BackendOptions) {
		o.transactionSave = enabled
	}
}

// WithCompression toggles lz4 compression of snapshots (default: on)
func WithCompression(enabled bool) BackendOption {
	return func(o *BackendOptions) {
		o.compress = enabled
	}
}

// WithLogger sets the logger used by background saves
func WithLogger(logger *slog.Logger) BackendOption {
	return func(o *BackendOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
