package screening

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/aristath/screener/internal/domain"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed rulesets/*.yaml
var embedded embed.FS

// ParseRuleset decodes and validates a YAML ruleset. Unknown keys are rejected.
func ParseRuleset(data []byte, knows func(domain.MetricName) bool) (Ruleset, error) {
	var rs Ruleset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return Ruleset{}, fmt.Errorf("failed to parse ruleset: %w", err)
	}
	if err := rs.Validate(knows); err != nil {
		return Ruleset{}, err
	}
	return rs, nil
}

// Registry holds one ruleset per sector. It is populated once and read-only
// afterwards; lookups return copies.
type Registry struct {
	rulesets map[domain.Sector]Ruleset
}

// LoadRegistry loads the ruleset of every sector. A file named
// {sector}.yaml in overrideDir replaces the embedded default.
func LoadRegistry(overrideDir string, knows func(domain.MetricName) bool, log zerolog.Logger) (*Registry, error) {
	log = log.With().Str("component", "ruleset_registry").Logger()
	r := &Registry{rulesets: make(map[domain.Sector]Ruleset)}

	for _, sector := range domain.Sectors() {
		data, source, err := readRuleset(overrideDir, sector)
		if err != nil {
			return nil, err
		}

		rs, err := ParseRuleset(data, knows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		if rs.Sector != sector {
			return nil, fmt.Errorf("%s: declares sector %s, expected %s", source, rs.Sector, sector)
		}
		r.rulesets[sector] = rs

		log.Debug().
			Str("sector", string(sector)).
			Str("ruleset", rs.Name).
			Str("version", rs.Version).
			Str("source", source).
			Msg("Loaded ruleset")
	}

	log.Info().Int("rulesets", len(r.rulesets)).Msg("Ruleset registry initialized")
	return r, nil
}

func readRuleset(overrideDir string, sector domain.Sector) ([]byte, string, error) {
	name := string(sector) + ".yaml"
	if overrideDir != "" {
		path := filepath.Join(overrideDir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, fmt.Errorf("failed to read ruleset override: %w", err)
		}
	}

	data, err := embedded.ReadFile("rulesets/" + name)
	if err != nil {
		return nil, name, fmt.Errorf("no ruleset for sector %s: %w", sector, err)
	}
	return data, "embedded:" + name, nil
}

// Get returns a copy of the sector's ruleset.
func (r *Registry) Get(sector domain.Sector) (Ruleset, error) {
	rs, ok := r.rulesets[sector]
	if !ok {
		return Ruleset{}, &domain.UnknownSectorError{Sector: string(sector)}
	}
	return rs.Clone(), nil
}

// ForEntity resolves the ruleset for an entity's sector.
// Sector names are normalised first, so "Penny-Stock" resolves.
func (r *Registry) ForEntity(entity domain.Entity) (Ruleset, error) {
	sector, err := domain.ParseSector(string(entity.Sector))
	if err != nil {
		return Ruleset{}, err
	}
	return r.Get(sector)
}

// List returns copies of every ruleset ordered by sector.
func (r *Registry) List() []Ruleset {
	out := make([]Ruleset, 0, len(r.rulesets))
	for _, rs := range r.rulesets {
		out = append(out, rs.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out
}
