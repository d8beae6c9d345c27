package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/event-seat-assignment/internal/seating"
)

// catalogFile is the on-disk layout of SEAT_CATALOG_FILE:
//
//	default_capacity: 90
//	groups:
//	  A: 90
//	  B: 100
//	  VIP: 40
type catalogFile struct {
	DefaultCapacity int            `yaml:"default_capacity"`
	Groups          map[string]int `yaml:"groups"`
}

// LoadCatalog returns the seat catalog for c.  Without a catalog file the
// built-in venue layout is used; SEAT_DEFAULT_CAPACITY overrides the
// fallback capacity in both cases unless the file sets its own.
func (c Config) LoadCatalog() (seating.Catalog, error) {
	if c.SeatCatalogFile == "" {
		cat := seating.DefaultCatalog()
		if c.SeatDefaultCapacity > 0 {
			cat.DefaultCapacity = c.SeatDefaultCapacity
		}
		return cat, nil
	}
	raw, err := os.ReadFile(c.SeatCatalogFile)
	if err != nil {
		return seating.Catalog{}, fmt.Errorf("read seat catalog: %w", err)
	}
	return ParseCatalog(raw, c.SeatDefaultCapacity)
}

// ParseCatalog decodes a YAML catalog.  fallback is used when the document
// has no default_capacity.
func ParseCatalog(raw []byte, fallback int) (seating.Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return seating.Catalog{}, fmt.Errorf("parse seat catalog: %w", err)
	}
	if len(f.Groups) == 0 {
		return seating.Catalog{}, fmt.Errorf("parse seat catalog: %w", seating.ErrNoGroups)
	}
	for g, n := range f.Groups {
		if n <= 0 {
			return seating.Catalog{}, fmt.Errorf("parse seat catalog: group %q has capacity %d", g, n)
		}
		// group ids must survive the label round trip
		if strings.TrimSpace(g) != g || g == "" || strings.Contains(g, "-") {
			return seating.Catalog{}, fmt.Errorf("parse seat catalog: bad group id %q", g)
		}
	}
	def := f.DefaultCapacity
	if def <= 0 {
		def = fallback
	}
	return seating.NewCatalog(f.Groups, def), nil
}
