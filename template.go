package liftcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Template is an immutable, versioned inspection form definition.
// Inspections record both ID and Version at start so later edits to a
// template never alter in-flight work.
type Template struct {
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Section groups ordered template items.
type Section struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Items []TemplateItem `json:"items"`
}

// TemplateItem is one question or check on a form.
type TemplateItem struct {
	ID              string
	Label           string
	Required        bool
	OptionalPhoto   bool
	OptionalComment bool
	Kind            ItemKind
}

// KindName is the serialized discriminator of an ItemKind.
type KindName string

const (
	KindChecklist     KindName = "checklist"
	KindSingleSelect  KindName = "single_select"
	KindNumeric       KindName = "numeric"
	KindDate          KindName = "date"
	KindText          KindName = "text"
	KindPhotoRequired KindName = "photo_required"
)

// ItemKind is the closed set of item variants. Each variant carries only
// the fields that are meaningful for it.
type ItemKind interface {
	Name() KindName
	itemKind()
}

// Checklist is a pass/defect item. Only checklist rows can carry a Defect.
type Checklist struct{}

// SingleSelect picks one of Options. Selecting ConditionalCommentOn forces
// a comment before the inspection can be completed.
type SingleSelect struct {
	Options              []string
	ConditionalCommentOn string
}

// Numeric records a measurement, optionally bounded.
type Numeric struct {
	Unit string
	Min  *float64
	Max  *float64
}

// Date records a calendar date (e.g. last load test).
type Date struct{}

// Text records free text.
type Text struct{}

// PhotoRequired is answered by attaching at least MinPhotos photos.
type PhotoRequired struct {
	MinPhotos int
}

func (Checklist) Name() KindName     { return KindChecklist }
func (SingleSelect) Name() KindName  { return KindSingleSelect }
func (Numeric) Name() KindName       { return KindNumeric }
func (Date) Name() KindName          { return KindDate }
func (Text) Name() KindName          { return KindText }
func (PhotoRequired) Name() KindName { return KindPhotoRequired }

func (Checklist) itemKind()     {}
func (SingleSelect) itemKind()  {}
func (Numeric) itemKind()       {}
func (Date) itemKind()          {}
func (Text) itemKind()          {}
func (PhotoRequired) itemKind() {}

// IsChecklist returns true for pass/defect items.
func (i TemplateItem) IsChecklist() bool {
	_, ok := i.Kind.(Checklist)
	return ok
}

// ItemDefinition is the flat serialized form of a TemplateItem, shared by
// the JSON API, YAML template files and the database.
type ItemDefinition struct {
	ID                   string   `json:"id" yaml:"id"`
	Label                string   `json:"label" yaml:"label"`
	Kind                 KindName `json:"kind" yaml:"kind"`
	Required             bool     `json:"required,omitempty" yaml:"required,omitempty"`
	OptionalPhoto        bool     `json:"optionalPhoto,omitempty" yaml:"optional_photo,omitempty"`
	OptionalComment      bool     `json:"optionalComment,omitempty" yaml:"optional_comment,omitempty"`
	Options              []string `json:"options,omitempty" yaml:"options,omitempty"`
	ConditionalCommentOn string   `json:"conditionalCommentOn,omitempty" yaml:"conditional_comment_on,omitempty"`
	Unit                 string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Min                  *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max                  *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinPhotos            int      `json:"minPhotos,omitempty" yaml:"min_photos,omitempty"`
}

// Item converts a definition into a typed TemplateItem.
func (d ItemDefinition) Item() (TemplateItem, error) {
	item := TemplateItem{
		ID:              d.ID,
		Label:           d.Label,
		Required:        d.Required,
		OptionalPhoto:   d.OptionalPhoto,
		OptionalComment: d.OptionalComment,
	}

	switch d.Kind {
	case KindChecklist, "":
		item.Kind = Checklist{}
	case KindSingleSelect:
		item.Kind = SingleSelect{Options: d.Options, ConditionalCommentOn: d.ConditionalCommentOn}
	case KindNumeric:
		item.Kind = Numeric{Unit: d.Unit, Min: d.Min, Max: d.Max}
	case KindDate:
		item.Kind = Date{}
	case KindText:
		item.Kind = Text{}
	case KindPhotoRequired:
		minPhotos := d.MinPhotos
		if minPhotos <= 0 {
			minPhotos = 1
		}
		item.Kind = PhotoRequired{MinPhotos: minPhotos}
	default:
		return TemplateItem{}, Invalid("Item %q has unknown kind %q", d.ID, d.Kind)
	}
	return item, nil
}

// Definition returns the flat serialized form of the item.
func (i TemplateItem) Definition() ItemDefinition {
	d := ItemDefinition{
		ID:              i.ID,
		Label:           i.Label,
		Required:        i.Required,
		OptionalPhoto:   i.OptionalPhoto,
		OptionalComment: i.OptionalComment,
	}
	switch k := i.Kind.(type) {
	case SingleSelect:
		d.Options = k.Options
		d.ConditionalCommentOn = k.ConditionalCommentOn
	case Numeric:
		d.Unit, d.Min, d.Max = k.Unit, k.Min, k.Max
	case PhotoRequired:
		d.MinPhotos = k.MinPhotos
	}
	if i.Kind != nil {
		d.Kind = i.Kind.Name()
	} else {
		d.Kind = KindChecklist
	}
	return d
}

// MarshalJSON encodes the item in its flat definition form.
func (i TemplateItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Definition())
}

// UnmarshalJSON decodes the flat definition form.
func (i *TemplateItem) UnmarshalJSON(data []byte) error {
	var d ItemDefinition
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	item, err := d.Item()
	if err != nil {
		return err
	}
	*i = item
	return nil
}

// Validate checks the structural rules of a template.
func (t *Template) Validate() error {
	fields := make(map[string]string)
	if t.ID == "" {
		fields["id"] = "Template ID is required"
	}
	if t.Version < 1 {
		fields["version"] = "Version must be 1 or greater"
	}
	if len(t.Sections) == 0 {
		fields["sections"] = "At least one section is required"
	}

	seenSections := make(map[string]bool)
	for _, s := range t.Sections {
		if s.ID == "" || seenSections[s.ID] {
			fields["sections."+s.ID] = "Section IDs must be non-empty and unique"
			continue
		}
		seenSections[s.ID] = true

		seenItems := make(map[string]bool)
		for _, item := range s.Items {
			key := s.ID + "." + item.ID
			if item.ID == "" || seenItems[item.ID] {
				fields[key] = "Item IDs must be non-empty and unique within a section"
				continue
			}
			seenItems[item.ID] = true

			switch k := item.Kind.(type) {
			case nil:
				fields[key] = "Item kind is required"
			case SingleSelect:
				if len(k.Options) == 0 {
					fields[key] = "Single select items need options"
				} else if k.ConditionalCommentOn != "" && !slices.Contains(k.Options, k.ConditionalCommentOn) {
					fields[key] = fmt.Sprintf("Conditional comment value %q is not an option", k.ConditionalCommentOn)
				}
			case Numeric:
				if k.Min != nil && k.Max != nil && *k.Min > *k.Max {
					fields[key] = "Numeric min exceeds max"
				}
			}
		}
	}

	if len(fields) > 0 {
		return ErrorWithFields(fields)
	}
	return nil
}

// Item looks up a template item by key.
func (t *Template) Item(key ItemKey) (TemplateItem, bool) {
	for _, s := range t.Sections {
		if s.ID != key.SectionID {
			continue
		}
		for _, item := range s.Items {
			if item.ID == key.ItemID {
				return item, true
			}
		}
	}
	return TemplateItem{}, false
}

// Keys returns every item key in form order.
func (t *Template) Keys() []ItemKey {
	var keys []ItemKey
	for _, s := range t.Sections {
		for _, item := range s.Items {
			keys = append(keys, ItemKey{SectionID: s.ID, ItemID: item.ID})
		}
	}
	return keys
}

// TemplateCatalog is the read-only, versioned source of inspection forms.
type TemplateCatalog interface {
	// FindTemplate retrieves the latest version of a template.
	// Returns ENOTFOUND if the template does not exist.
	FindTemplate(ctx context.Context, id string) (*Template, error)

	// FindTemplateVersion retrieves a specific version of a template.
	// Returns ENOTFOUND if the version does not exist.
	FindTemplateVersion(ctx context.Context, id string, version int) (*Template, error)

	// FindTemplates retrieves the latest version of every template.
	FindTemplates(ctx context.Context) ([]*Template, error)
}
