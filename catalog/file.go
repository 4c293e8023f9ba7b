// Package catalog provides template catalogs backed by YAML form definitions,
// plus a TTL cache that can sit in front of any liftcheck.TemplateCatalog.
package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/dukerupert/liftcheck"
	"gopkg.in/yaml.v3"
)

// maxTemplateFileSize bounds a single template definition file (1 MB).
const maxTemplateFileSize = 1 << 20

//go:embed templates/*.yaml
var defaultTemplates embed.FS

// Compile-time interface check
var _ liftcheck.TemplateCatalog = (*FileCatalog)(nil)

// FileCatalog serves templates loaded once from YAML files. Each file holds
// one version of one template. Returned templates are shared and must not
// be modified by callers.
type FileCatalog struct {
	versions map[string][]*liftcheck.Template // sorted by version, ascending
}

// templateFile is the YAML layout of a template definition.
type templateFile struct {
	ID          string        `yaml:"id"`
	Version     int           `yaml:"version"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Sections    []sectionFile `yaml:"sections"`
}

type sectionFile struct {
	ID    string                     `yaml:"id"`
	Title string                     `yaml:"title"`
	Items []liftcheck.ItemDefinition `yaml:"items"`
}

// Default returns a catalog of the built-in templates.
func Default() (*FileCatalog, error) {
	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load reads every .yaml and .yml file under fsys. Every template must
// validate and every (id, version) pair must be unique.
func Load(fsys fs.FS) (*FileCatalog, error) {
	c := &FileCatalog{versions: make(map[string][]*liftcheck.Template)}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := strings.ToLower(path.Ext(p)); ext != ".yaml" && ext != ".yml" {
			return nil
		}

		t, err := loadFile(fsys, p)
		if err != nil {
			return err
		}
		for _, existing := range c.versions[t.ID] {
			if existing.Version == t.Version {
				return fmt.Errorf("%s: duplicate template %s version %d", p, t.ID, t.Version)
			}
		}
		c.versions[t.ID] = append(c.versions[t.ID], t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, versions := range c.versions {
		slices.SortFunc(versions, func(a, b *liftcheck.Template) int { return a.Version - b.Version })
	}
	return c, nil
}

func loadFile(fsys fs.FS, p string) (*liftcheck.Template, error) {
	info, err := fs.Stat(fsys, p)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxTemplateFileSize {
		return nil, fmt.Errorf("%s exceeds maximum size (%d bytes > %d byte limit)", p, info.Size(), maxTemplateFileSize)
	}

	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", p, err)
	}
	return t, nil
}

// Parse decodes and validates one YAML template definition.
func Parse(data []byte) (*liftcheck.Template, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	t := &liftcheck.Template{
		ID:          f.ID,
		Version:     f.Version,
		Name:        f.Name,
		Description: f.Description,
	}
	for _, s := range f.Sections {
		section := liftcheck.Section{ID: s.ID, Title: s.Title}
		for _, def := range s.Items {
			item, err := def.Item()
			if err != nil {
				return nil, err
			}
			section.Items = append(section.Items, item)
		}
		t.Sections = append(t.Sections, section)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", err, liftcheck.ErrorFields(err))
	}
	return t, nil
}

// Marshal encodes a template in the YAML definition layout.
func Marshal(t *liftcheck.Template) ([]byte, error) {
	f := templateFile{
		ID:          t.ID,
		Version:     t.Version,
		Name:        t.Name,
		Description: t.Description,
	}
	for _, s := range t.Sections {
		section := sectionFile{ID: s.ID, Title: s.Title}
		for _, item := range s.Items {
			section.Items = append(section.Items, item.Definition())
		}
		f.Sections = append(f.Sections, section)
	}
	return yaml.Marshal(f)
}

// FindTemplate retrieves the latest version of a template.
func (c *FileCatalog) FindTemplate(ctx context.Context, id string) (*liftcheck.Template, error) {
	versions := c.versions[id]
	if len(versions) == 0 {
		return nil, liftcheck.NotFound("Template %s not found", id)
	}
	return versions[len(versions)-1], nil
}

// FindTemplateVersion retrieves a specific version of a template.
func (c *FileCatalog) FindTemplateVersion(ctx context.Context, id string, version int) (*liftcheck.Template, error) {
	for _, t := range c.versions[id] {
		if t.Version == version {
			return t, nil
		}
	}
	return nil, liftcheck.NotFound("Template %s version %d not found", id, version)
}

// FindTemplates retrieves the latest version of every template, ordered by ID.
func (c *FileCatalog) FindTemplates(ctx context.Context) ([]*liftcheck.Template, error) {
	out := make([]*liftcheck.Template, 0, len(c.versions))
	for _, versions := range c.versions {
		out = append(out, versions[len(versions)-1])
	}
	slices.SortFunc(out, func(a, b *liftcheck.Template) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// All returns every version of every template, ordered by ID then version.
func (c *FileCatalog) All() []*liftcheck.Template {
	var out []*liftcheck.Template
	for _, versions := range c.versions {
		out = append(out, versions...)
	}
	slices.SortFunc(out, func(a, b *liftcheck.Template) int {
		if n := strings.Compare(a.ID, b.ID); n != 0 {
			return n
		}
		return a.Version - b.Version
	})
	return out
}
