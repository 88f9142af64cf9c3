package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/library-kiosk/internal/config"
)

// OpenFunc opens a RecordStore for a configured driver.
type OpenFunc func(ctx context.Context, cfg *config.Config) (RecordStore, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// RegisterDriver registers a RecordStore backend under a driver name.
// This is called from the backend packages' init to avoid import cycles.
func RegisterDriver(name string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if open == nil {
		panic("database: RegisterDriver open func is nil")
	}
	drivers[name] = open
}

// Drivers returns the sorted names of registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the RecordStore selected by cfg.Database.Driver.
func Open(ctx context.Context, cfg *config.Config) (RecordStore, error) {
	driversMu.RLock()
	open, ok := drivers[cfg.Database.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown store driver %q (registered: %v)", cfg.Database.Driver, Drivers())
	}
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	return store, nil
}

// ResetForTesting removes all registered drivers.
func ResetForTesting() {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers = make(map[string]OpenFunc)
}
