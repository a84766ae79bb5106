package device

import (
	"context"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the Resolver and alias manager over a Repository. Every
// lookup goes to the repository: several instances may share one store,
// and an alias moved by one of them is seen by the others on the next
// call.
//
// All public methods are thread-safe.
type Registry struct {
	repo     Repository
	logger   Logger
	loggerMu sync.RWMutex
}

// NewRegistry creates a registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Registry) log() Logger {
	r.loggerMu.RLock()
	defer r.loggerMu.RUnlock()
	return r.logger
}

// Resolve implements Resolver.
func (r *Registry) Resolve(ctx context.Context, target string) (string, error) {
	id, err := r.repo.Resolve(ctx, target)
	if err != nil {
		return "", err
	}
	r.log().Debug("device alias resolved", "target", target, "device_id", id)
	return id, nil
}

// Register stores d, replacing any aliases it carried before.
func (r *Registry) Register(ctx context.Context, d *Device) error {
	if err := r.repo.Upsert(ctx, d); err != nil {
		return err
	}
	r.log().Info("device registered", "device_id", d.ID, "number", d.Number, "old_number", d.OldNumber)
	return nil
}

// Unregister deletes a device and with it every alias it carried.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.log().Info("device unregistered", "device_id", id)
	return nil
}

// Get returns the stored device.
func (r *Registry) Get(ctx context.Context, id string) (*Device, error) {
	return r.repo.Get(ctx, id)
}

// List returns all stored devices.
func (r *Registry) List(ctx context.Context) ([]Device, error) {
	return r.repo.List(ctx)
}
