// Package catalog manages the per-project source-database catalog: a raw
// JSON cache of the server's list-sources response plus per-database YAML
// mirrors for human consumption.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"reorc-cli/internal/core"
	"reorc-cli/internal/transport"
	"reorc-cli/internal/workspace"
)

// freshness is how long a cached catalog stays valid.
const freshness = 24 * time.Hour

// Cache fetches and caches the source catalog for projects.
type Cache struct {
	store  *workspace.Store
	api    *transport.API
	clock  core.Clock
	logger core.Logger
}

// NewCache creates a Cache.
func NewCache(store *workspace.Store, api *transport.API, clock core.Clock, logger core.Logger) *Cache {
	return &Cache{store: store, api: api, clock: clock, logger: logger}
}

// Report is the result of a catalog read. Source names where the payload
// came from: "cache" or "live".
type Report struct {
	ProjectCode string          `json:"project_code"`
	Source      string          `json:"source"`
	Count       int             `json:"count"`
	Sources     json.RawMessage `json:"sources"`
}

// ListSources returns the project's source catalog. The live catalog is
// always fetched first, then the cache decides which copy wins: a cache
// file younger than 24 hours is returned verbatim, otherwise the cache
// directory is wiped and rebuilt from the live payload, including the YAML
// mirrors. Keeping the fetch unconditional preserves the behavior the
// server side depends on for usage accounting. A fetch failure is judged
// only after the cache check, so a fresh cache serves reads even when the
// server is down or misbehaving.
func (c *Cache) ListSources(ctx context.Context, projectCode string) (*Report, error) {
	live, liveErr := c.api.ListSources(ctx, projectCode)

	root, err := c.store.SourcesRoot()
	if err != nil {
		return nil, err
	}
	cacheDir := filepath.Join(root, projectCode)
	cacheFile := filepath.Join(cacheDir, projectCode+"_raw_sources.json")

	// The cache wins only when it is young AND still holds a non-empty
	// JSON array; a corrupt or empty cache falls through to a rebuild.
	if info, err := os.Stat(cacheFile); err == nil {
		if c.clock.Now().Sub(info.ModTime()) < freshness {
			cached, err := os.ReadFile(cacheFile)
			if err != nil {
				return nil, fmt.Errorf("reading catalog cache: %w", err)
			}
			if count, err := sourceCount(cached); err == nil && count > 0 {
				c.logger.Debug("catalog cache hit", "project", projectCode)
				return &Report{
					ProjectCode: projectCode,
					Source:      "cache",
					Count:       count,
					Sources:     cached,
				}, nil
			}
		}
	}

	if liveErr != nil {
		return nil, liveErr
	}

	if err := wipeDir(cacheDir); err != nil {
		return nil, err
	}
	if err := os.WriteFile(cacheFile, live, 0644); err != nil {
		return nil, fmt.Errorf("writing catalog cache: %w", err)
	}
	// Freshness is judged against the injected clock, so the cache file's
	// mtime must come from the same clock.
	now := c.clock.Now()
	if err := os.Chtimes(cacheFile, now, now); err != nil {
		return nil, fmt.Errorf("stamping catalog cache: %w", err)
	}

	if err := writeMirrors(cacheDir, live); err != nil {
		return nil, err
	}

	count, err := sourceCount(live)
	if err != nil {
		return nil, err
	}
	c.logger.Info("catalog refreshed", "project", projectCode, "sources", count)
	return &Report{
		ProjectCode: projectCode,
		Source:      "live",
		Count:       count,
		Sources:     live,
	}, nil
}

func sourceCount(raw json.RawMessage) (int, error) {
	var probe []json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, fmt.Errorf("%w: cached catalog is not an array", core.ErrUnexpectedShape)
	}
	return len(probe), nil
}

// wipeDir removes every regular file directly inside dir, creating dir if
// absent. Subdirectories are left alone.
func wipeDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating catalog cache directory: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing catalog cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clearing catalog cache: %w", err)
		}
	}
	return nil
}

// SourceDoc is one database entry in the catalog, as mirrored to YAML.
type SourceDoc struct {
	DatabaseName string     `json:"database_name" yaml:"database_name"`
	SchemaName   string     `json:"schema_name" yaml:"schema_name,omitempty"`
	ConnectionID any        `json:"connection_id" yaml:"connection_id"`
	Status       string     `json:"status" yaml:"status"`
	Tables       []TableDoc `json:"tables" yaml:"tables"`
}

// TableDoc is one table inside a source database. The server sends the
// name as "table_name"; the mirror writes it as plain "name".
type TableDoc struct {
	ID         any         `json:"id" yaml:"id"`
	Name       string      `json:"table_name" yaml:"name"`
	SourceType string      `json:"source_type" yaml:"source_type"`
	Status     string      `json:"status" yaml:"status"`
	Columns    []ColumnDoc `json:"columns" yaml:"columns"`
}

// ColumnDoc is one column of a table.
type ColumnDoc struct {
	Name           string `json:"name" yaml:"name"`
	Type           string `json:"type" yaml:"type"`
	NormalizedType string `json:"normalized_type" yaml:"normalized_type"`
	Comment        string `json:"comment" yaml:"comment"`
}

// writeMirrors writes one YAML file per source database into dir. The file
// is named after the database, with the schema appended when present, so
// multi-schema warehouses do not collide.
func writeMirrors(dir string, raw json.RawMessage) error {
	var sources []SourceDoc
	if err := json.Unmarshal(raw, &sources); err != nil {
		return fmt.Errorf("%w: decoding catalog for mirroring: %v", core.ErrUnexpectedShape, err)
	}

	for i := range sources {
		src := &sources[i]
		for j := range src.Tables {
			if src.Tables[j].SourceType == "" {
				src.Tables[j].SourceType = "table"
			}
		}

		name := src.DatabaseName
		if src.SchemaName != "" {
			name = fmt.Sprintf("%s_%s", src.DatabaseName, src.SchemaName)
		}

		out, err := yaml.Marshal(src)
		if err != nil {
			return fmt.Errorf("encoding mirror for %s: %w", name, err)
		}
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("writing mirror %s: %w", path, err)
		}
	}
	return nil
}
