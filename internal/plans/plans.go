// Package plans loads the billing plan catalog and seeds it into the plan store.
package plans

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultCatalog []byte

// Catalog is the on-disk plan catalog format.
type Catalog struct {
	Plans []models.Plan `yaml:"plans"`
}

// Default returns the built in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file. An empty path loads the built in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse plans: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// Validate checks every plan has a unique id and a name.
func (c *Catalog) Validate() error {
	if len(c.Plans) == 0 {
		return errors.New("plan catalog is empty")
	}

	seen := make(map[string]bool, len(c.Plans))
	for i, p := range c.Plans {
		id := strings.TrimSpace(p.PlanID)
		if id == "" {
			return fmt.Errorf("plan %d: id is required", i)
		}
		if p.Name == "" {
			return fmt.Errorf("plan %q: name is required", id)
		}
		if p.MaxUsers < 0 || p.MaxProducts < 0 {
			return fmt.Errorf("plan %q: limits cannot be negative", id)
		}
		if seen[id] {
			return fmt.Errorf("plan %q: duplicate id", id)
		}
		seen[id] = true
	}

	return nil
}

// Seed upserts every plan of the catalog into the plan store.
func Seed(ctx context.Context, plans store.PlanStore, catalog *Catalog) error {
	now := time.Now().UTC()

	for _, p := range catalog.Plans {
		plan := p
		plan.PlanID = strings.TrimSpace(plan.PlanID)
		plan.CreatedAt = now
		plan.UpdatedAt = now

		if err := plans.Upsert(ctx, &plan); err != nil {
			return fmt.Errorf("failed to seed plan %q: %w", plan.PlanID, err)
		}

		log.Debug().Str("plan_id", plan.PlanID).Bool("active", plan.IsActive).Msg("plan seeded")
	}

	log.Info().Int("count", len(catalog.Plans)).Msg("plan catalog seeded")

	return nil
}
