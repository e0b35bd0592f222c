package genre

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultGenre is used when a lookup names a genre the catalog doesn't know.
const DefaultGenre = "detective"

// Catalog resolves genre names and aliases to their configs.
type Catalog struct {
	byName map[string]*Config
}

func NewCatalog(configs ...*Config) *Catalog {
	c := &Catalog{byName: make(map[string]*Config)}
	for _, cfg := range configs {
		c.Add(cfg)
	}
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog(detective(), romcom(), horror(), adventure(), thriller(), war(), drama())
}

// Add registers cfg under its name and aliases, replacing earlier entries.
func (c *Catalog) Add(cfg *Config) {
	c.byName[strings.ToLower(cfg.Name)] = cfg
	for _, alias := range cfg.Aliases {
		c.byName[strings.ToLower(alias)] = cfg
	}
}

// Lookup returns the config for name, falling back to DefaultGenre.
func (c *Catalog) Lookup(name string) *Config {
	if cfg, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return cfg
	}
	return c.byName[DefaultGenre]
}

// Has reports whether name resolves without falling back.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Names lists canonical genre names in sorted order.
func (c *Catalog) Names() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, cfg := range c.byName {
		if _, ok := seen[cfg.Name]; ok {
			continue
		}
		seen[cfg.Name] = struct{}{}
		names = append(names, cfg.Name)
	}
	sort.Strings(names)
	return names
}

type catalogFile struct {
	// Replace drops the built-in genres instead of extending them.
	Replace bool      `yaml:"replace"`
	Genres  []*Config `yaml:"genres"`
}

// LoadCatalog reads genres from a YAML file on top of the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genre catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse genre catalog %s: %w", path, err)
	}

	catalog := DefaultCatalog()
	if file.Replace {
		catalog = NewCatalog()
	}
	for _, cfg := range file.Genres {
		if cfg.Name == "" {
			return nil, fmt.Errorf("genre catalog %s: genre without name", path)
		}
		if len(cfg.Beats) == 0 {
			return nil, fmt.Errorf("genre catalog %s: genre %q has no beats", path, cfg.Name)
		}
		catalog.Add(cfg)
	}
	if _, ok := catalog.byName[DefaultGenre]; !ok {
		return nil, fmt.Errorf("genre catalog %s: missing %q genre", path, DefaultGenre)
	}
	return catalog, nil
}
