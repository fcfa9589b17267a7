// Package clients provides the customer-code lookup used while normalizing
// consumption rows. It replaces what used to be a module-level cache filled
// as an import side effect: the directory is injected where needed and has
// an explicit Load lifecycle.
package clients

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/repository"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/pkg/logger"
)

// Directory resolves customer codes to display names. Resolve is safe for
// concurrent use and returns misses until Load has succeeded.
type Directory struct {
	repo repository.ClientRepository
	log  zerolog.Logger

	mu     sync.RWMutex
	byCode map[string]string
	loaded bool
}

func NewDirectory(repo repository.ClientRepository) *Directory {
	return &Directory{
		repo:   repo,
		log:    logger.Component("clients"),
		byCode: make(map[string]string),
	}
}

// Load fetches the customer master. Calling it again refreshes the mapping.
func (d *Directory) Load(ctx context.Context) error {
	records, err := d.repo.ListClients(ctx)
	if err != nil {
		return fmt.Errorf("load client directory: %w", err)
	}

	byCode := make(map[string]string, len(records))
	for _, r := range records {
		if r.Code == "" {
			continue
		}
		byCode[r.Code] = r.Name
	}

	d.mu.Lock()
	d.byCode = byCode
	d.loaded = true
	d.mu.Unlock()

	d.log.Info().Int("clients", len(byCode)).Msg("client directory loaded")
	return nil
}

// Ready reports whether Load has completed at least once.
func (d *Directory) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

// Resolve implements normalize.NameResolver.
func (d *Directory) Resolve(code string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.byCode[code]
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
