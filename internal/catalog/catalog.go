// Package catalog holds the immutable list of offered services.
package catalog

import (
	"fmt"
	"os"

	"bookingdesk/internal/model"

	"gopkg.in/yaml.v3"
)

// Catalog is a read-only service list. It is built once at startup and
// never mutated afterwards, so it is safe for concurrent use.
type Catalog struct {
	services []model.Service
	byID     map[string]model.Service
}

// defaultServices mirrors the services advertised on the landing page.
var defaultServices = []model.Service{
	{ID: "1", Name: "Virtual Assistant Consultation", DurationMinutes: 60, Price: 50, Category: model.CategoryVirtualAssistance},
	{ID: "2", Name: "HR Strategy Session", DurationMinutes: 90, Price: 120, Category: model.CategoryHumanResources},
	{ID: "3", Name: "English Class", DurationMinutes: 60, Price: 40, Category: model.CategoryTeaching},
	{ID: "4", Name: "Tattoo Session (Small)", DurationMinutes: 180, Price: 200, Category: model.CategoryTattoo},
	{ID: "5", Name: "Nail Art Appointment", DurationMinutes: 90, Price: 60, Category: model.CategoryNailArt},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultServices)
	if err != nil {
		panic(err)
	}
	return c
}

// New validates services and builds a catalog from a copy of them.
func New(services []model.Service) (*Catalog, error) {
	if err := Validate(services); err != nil {
		return nil, err
	}
	c := &Catalog{
		services: append([]model.Service(nil), services...),
		byID:     make(map[string]model.Service, len(services)),
	}
	for _, s := range c.services {
		c.byID[s.ID] = s
	}
	return c, nil
}

type fileConfig struct {
	Services []model.Service `yaml:"services"`
}

// Load reads a services.yaml file. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c, err := New(cfg.Services)
	if err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return c, nil
}

// Validate checks the service list for errors.
func Validate(services []model.Service) error {
	if len(services) == 0 {
		return fmt.Errorf("no services defined")
	}

	ids := make(map[string]bool)
	for i, s := range services {
		if s.ID == "" {
			return fmt.Errorf("service[%d]: id is required", i)
		}
		if ids[s.ID] {
			return fmt.Errorf("service[%d]: duplicate id %q", i, s.ID)
		}
		ids[s.ID] = true

		if s.Name == "" {
			return fmt.Errorf("service[%d]: name is required", i)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("service[%d]: duration must be positive, got %d", i, s.DurationMinutes)
		}
		if s.Price < 0 {
			return fmt.Errorf("service[%d]: price cannot be negative", i)
		}
		if s.Category == "" {
			return fmt.Errorf("service[%d]: category is required", i)
		}
	}
	return nil
}

// List returns all services in catalog order.
func (c *Catalog) List() []model.Service {
	return append([]model.Service(nil), c.services...)
}

// Get returns a service by id.
func (c *Catalog) Get(id string) (model.Service, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// ByCategory returns the services of one category in catalog order.
func (c *Catalog) ByCategory(cat model.Category) []model.Service {
	var out []model.Service
	for _, s := range c.services {
		if s.Category == cat {
			out = append(out, s)
		}
	}
	return out
}

// Group is a display group of services.
type Group struct {
	Category model.Category  `json:"category"`
	Services []model.Service `json:"services"`
}

// Grouped returns services grouped by category. Built-in categories come
// first in their fixed order, custom ones follow in order of appearance.
func (c *Catalog) Grouped() []Group {
	order := append([]model.Category(nil), model.KnownCategories...)
	seen := make(map[model.Category]bool, len(order))
	for _, cat := range order {
		seen[cat] = true
	}
	for _, s := range c.services {
		if !seen[s.Category] {
			seen[s.Category] = true
			order = append(order, s.Category)
		}
	}

	var groups []Group
	for _, cat := range order {
		if svcs := c.ByCategory(cat); len(svcs) > 0 {
			groups = append(groups, Group{Category: cat, Services: svcs})
		}
	}
	return groups
}

// FormatDuration formats minutes as "45 min", "1 h", "1 h 30 min".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	if mins == 0 {
		return fmt.Sprintf("%d h", hours)
	}
	return fmt.Sprintf("%d h %d min", hours, mins)
}
