package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"flotilla/internal/errors"
	"flotilla/internal/types"
)

// Catalog is the parsed services.yaml: the set of service manifests flotilla
// manages, keyed by service id.
type Catalog struct {
	Services map[string]catalogEntry `yaml:"services"`
}

// catalogEntry is one service block in services.yaml. The id comes from the
// map key, everything else from the block body.
type catalogEntry struct {
	Version      string                  `yaml:"version"`
	Port         int                     `yaml:"port"`
	Dependencies []string                `yaml:"dependencies"`
	Lifecycle    types.LifecycleConfig   `yaml:"lifecycle"`
	HealthCheck  types.HealthCheckConfig `yaml:"health_check"`
}

// LoadCatalog reads and parses the service catalog at path
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.CatalogNotFound(path)
		}
		return nil, errors.CatalogParseError(path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.CatalogParseError(path, err)
	}
	return &catalog, nil
}

// Manifests converts the catalog to service manifests, sorted by id so
// registration order is deterministic
func (c *Catalog) Manifests() []*types.ServiceManifest {
	ids := make([]string, 0, len(c.Services))
	for id := range c.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	manifests := make([]*types.ServiceManifest, 0, len(ids))
	for _, id := range ids {
		entry := c.Services[id]
		manifests = append(manifests, &types.ServiceManifest{
			ID:           id,
			Version:      entry.Version,
			Port:         entry.Port,
			Dependencies: entry.Dependencies,
			Lifecycle:    entry.Lifecycle,
			HealthCheck:  entry.HealthCheck,
		})
	}
	return manifests
}

// Validate checks the catalog for fatal problems and returns warnings for the
// non-fatal ones. A dependency on a service the catalog does not declare is a
// warning since the supervisor may know services flotilla does not manage.
func (c *Catalog) Validate() ([]string, error) {
	var warnings []string

	ids := make([]string, 0, len(c.Services))
	for id := range c.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entry := c.Services[id]
		if entry.Version == "" {
			return warnings, errors.ManifestValidation(fmt.Sprintf("service %q has no version", id))
		}
		for _, dep := range entry.Dependencies {
			if dep == id {
				return warnings, errors.CircularDependency(id, []string{id, id})
			}
			if _, ok := c.Services[dep]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("service %q depends on %q which is not in the catalog", id, dep))
			}
		}
	}

	if cycle := c.findCycle(); cycle != nil {
		return warnings, errors.CircularDependency(cycle[0], cycle)
	}
	return warnings, nil
}

// findCycle runs a DFS over the declared dependency edges and returns one
// cycle if any exists
func (c *Catalog) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	marks := make(map[string]int, len(c.Services))

	var stack []string
	var visit func(id string) []string
	visit = func(id string) []string {
		marks[id] = inStack
		stack = append(stack, id)
		for _, dep := range c.Services[id].Dependencies {
			if _, ok := c.Services[dep]; !ok {
				continue
			}
			switch marks[dep] {
			case inStack:
				for i, frame := range stack {
					if frame == dep {
						return append(append([]string(nil), stack[i:]...), dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[id] = done
		return nil
	}

	ids := make([]string, 0, len(c.Services))
	for id := range c.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if marks[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
