package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dukerupert/liftcheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Compile-time check that TemplateService implements liftcheck.TemplateCatalog.
var _ liftcheck.TemplateCatalog = (*TemplateService)(nil)

// TemplateService stores versioned templates. Rows are insert-only; a new
// version of a form is a new row.
type TemplateService struct {
	db *DB
}

const templateColumns = `id, version, name, description, sections, created_at`

func (s *TemplateService) FindTemplate(ctx context.Context, id string) (*liftcheck.Template, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1 ORDER BY version DESC LIMIT 1`,
		id)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, liftcheck.NotFound("Template %s not found", id)
		}
		return nil, liftcheck.Internal("Failed to fetch template", err)
	}
	return t, nil
}

func (s *TemplateService) FindTemplateVersion(ctx context.Context, id string, version int) (*liftcheck.Template, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = $1 AND version = $2`,
		id, version)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, liftcheck.NotFound("Template %s version %d not found", id, version)
		}
		return nil, liftcheck.Internal("Failed to fetch template", err)
	}
	return t, nil
}

func (s *TemplateService) FindTemplates(ctx context.Context) ([]*liftcheck.Template, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT DISTINCT ON (id) `+templateColumns+` FROM templates ORDER BY id, version DESC`)
	if err != nil {
		return nil, liftcheck.Internal("Failed to list templates", err)
	}
	defer rows.Close()

	var templates []*liftcheck.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, liftcheck.Internal("Failed to read template", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, liftcheck.Internal("Failed to list templates", err)
	}
	return templates, nil
}

// CreateTemplate stores a new template version.
// Returns ECONFLICT if the version already exists.
func (s *TemplateService) CreateTemplate(ctx context.Context, t *liftcheck.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	sections, err := json.Marshal(t.Sections)
	if err != nil {
		return liftcheck.Internal("Failed to encode template sections", err)
	}

	var createdAt pgtype.Timestamptz
	err = s.db.pool.QueryRow(ctx,
		`INSERT INTO templates (id, version, name, description, sections)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		t.ID, t.Version, t.Name, t.Description, sections,
	).Scan(&createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return liftcheck.Conflict("Template %s version %d already exists", t.ID, t.Version)
		}
		return liftcheck.Internal("Failed to create template", err)
	}

	t.CreatedAt = fromPgTimestamp(createdAt)
	return nil
}

// SeedTemplates stores every template that is not already present and
// returns how many were inserted.
func (s *TemplateService) SeedTemplates(ctx context.Context, templates []*liftcheck.Template) (int, error) {
	var created int
	for _, t := range templates {
		c := *t
		err := s.CreateTemplate(ctx, &c)
		if liftcheck.ErrorCode(err) == liftcheck.ECONFLICT {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func scanTemplate(row pgx.Row) (*liftcheck.Template, error) {
	var (
		t         liftcheck.Template
		sections  []byte
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&t.ID, &t.Version, &t.Name, &t.Description, &sections, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(sections, &t.Sections); err != nil {
		return nil, err
	}
	t.CreatedAt = fromPgTimestamp(createdAt)
	return &t, nil
}
