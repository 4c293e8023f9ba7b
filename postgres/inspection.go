package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Compile-time check that InspectionService implements liftcheck.InspectionService.
var _ liftcheck.InspectionService = (*InspectionService)(nil)

// InspectionService implements liftcheck.InspectionService using PostgreSQL.
// Item rows are stored as a single JSONB document per inspection.
type InspectionService struct {
	db *DB
}

const inspectionColumns = `id, template_id, template_version, asset_id, technician_id, status,
	crane_status, crane_status_overridden, items, started_at, completed_at, last_edited_at, updated_at`

func (s *InspectionService) FindInspectionByID(ctx context.Context, id uuid.UUID) (*liftcheck.Inspection, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE id = $1`,
		toPgUUID(id))
	inspection, err := scanInspection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, liftcheck.NotFound("Inspection not found")
		}
		return nil, liftcheck.Internal("Failed to fetch inspection", err)
	}
	return inspection, nil
}

func (s *InspectionService) FindActiveInspectionByAsset(ctx context.Context, assetID string) (*liftcheck.Inspection, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+inspectionColumns+` FROM inspections WHERE asset_id = $1 AND status = 'in_progress'`,
		assetID)
	inspection, err := scanInspection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, liftcheck.NotFound("No active inspection for asset %s", assetID)
		}
		return nil, liftcheck.Internal("Failed to fetch active inspection", err)
	}
	return inspection, nil
}

func (s *InspectionService) FindLatestCompletedInspection(ctx context.Context, assetID string) (*liftcheck.Inspection, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+inspectionColumns+` FROM inspections
		WHERE asset_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1`,
		assetID)
	inspection, err := scanInspection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, liftcheck.NotFound("No completed inspection for asset %s", assetID)
		}
		return nil, liftcheck.Internal("Failed to fetch latest inspection", err)
	}
	return inspection, nil
}

func (s *InspectionService) FindInspections(ctx context.Context, filter liftcheck.InspectionFilter) ([]*liftcheck.Inspection, int, error) {
	var w where
	if filter.ID != nil {
		w.add("id = ?", toPgUUID(*filter.ID))
	}
	if filter.AssetID != nil {
		w.add("asset_id = ?", *filter.AssetID)
	}
	if filter.TechnicianID != nil {
		w.add("technician_id = ?", *filter.TechnicianID)
	}
	if filter.Status != nil {
		w.add("status = ?", string(*filter.Status))
	}

	var total int
	if err := s.db.pool.QueryRow(ctx, `SELECT count(*) FROM inspections`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, liftcheck.Internal("Failed to count inspections", err)
	}

	query := `SELECT ` + inspectionColumns + ` FROM inspections` + w.String() + ` ORDER BY started_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.next(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + w.next(filter.Offset)
	}

	rows, err := s.db.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, liftcheck.Internal("Failed to list inspections", err)
	}
	defer rows.Close()

	var inspections []*liftcheck.Inspection
	for rows.Next() {
		inspection, err := scanInspection(rows)
		if err != nil {
			return nil, 0, liftcheck.Internal("Failed to read inspection", err)
		}
		inspections = append(inspections, inspection)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, liftcheck.Internal("Failed to list inspections", err)
	}

	return inspections, total, nil
}

func (s *InspectionService) CreateInspection(ctx context.Context, inspection *liftcheck.Inspection) error {
	items, err := json.Marshal(inspection.Items)
	if err != nil {
		return liftcheck.Internal("Failed to encode inspection items", err)
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO inspections (`+inspectionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		toPgUUID(inspection.ID),
		inspection.TemplateID,
		inspection.TemplateVersion,
		inspection.AssetID,
		inspection.TechnicianID,
		string(inspection.Status),
		toPgStatus(inspection.CraneStatus),
		inspection.CraneStatusOverridden,
		items,
		toPgTimestamp(inspection.StartedAt),
		toPgTimestampPtr(inspection.CompletedAt),
		toPgTimestampPtr(inspection.LastEditedAt),
		toPgTimestamp(inspection.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return liftcheck.Conflict("Asset %s already has an inspection in progress", inspection.AssetID)
		}
		if isCheckViolation(err) {
			return liftcheck.Invalid("Inspection has an invalid status")
		}
		return liftcheck.Internal("Failed to create inspection", err)
	}
	return nil
}

func (s *InspectionService) SaveInspection(ctx context.Context, inspection *liftcheck.Inspection) error {
	items, err := json.Marshal(inspection.Items)
	if err != nil {
		return liftcheck.Internal("Failed to encode inspection items", err)
	}

	tag, err := s.db.pool.Exec(ctx,
		`UPDATE inspections SET
			status = $2,
			crane_status = $3,
			crane_status_overridden = $4,
			items = $5,
			completed_at = $6,
			last_edited_at = $7,
			updated_at = $8
		WHERE id = $1`,
		toPgUUID(inspection.ID),
		string(inspection.Status),
		toPgStatus(inspection.CraneStatus),
		inspection.CraneStatusOverridden,
		items,
		toPgTimestampPtr(inspection.CompletedAt),
		toPgTimestampPtr(inspection.LastEditedAt),
		toPgTimestamp(inspection.UpdatedAt),
	)
	if err != nil {
		// Reopening while a newer inspection of the same asset is in progress.
		if isUniqueViolation(err) {
			return liftcheck.Conflict("Asset %s already has an inspection in progress", inspection.AssetID)
		}
		if isCheckViolation(err) {
			return liftcheck.Invalid("Inspection has an invalid status")
		}
		return liftcheck.Internal("Failed to save inspection", err)
	}
	if tag.RowsAffected() == 0 {
		return liftcheck.NotFound("Inspection not found")
	}
	return nil
}

func scanInspection(row pgx.Row) (*liftcheck.Inspection, error) {
	var (
		id                                   pgtype.UUID
		status                               string
		craneStatus                          pgtype.Text
		items                                []byte
		startedAt, completedAt, lastEditedAt pgtype.Timestamptz
		updatedAt                            pgtype.Timestamptz
		inspection                           liftcheck.Inspection
	)
	err := row.Scan(
		&id,
		&inspection.TemplateID,
		&inspection.TemplateVersion,
		&inspection.AssetID,
		&inspection.TechnicianID,
		&status,
		&craneStatus,
		&inspection.CraneStatusOverridden,
		&items,
		&startedAt,
		&completedAt,
		&lastEditedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &inspection.Items); err != nil {
		return nil, err
	}

	inspection.ID = fromPgUUID(id)
	inspection.Status = liftcheck.InspectionStatus(status)
	inspection.CraneStatus = fromPgStatus(craneStatus)
	inspection.StartedAt = fromPgTimestamp(startedAt)
	inspection.CompletedAt = fromPgTimestampPtr(completedAt)
	inspection.LastEditedAt = fromPgTimestampPtr(lastEditedAt)
	inspection.UpdatedAt = fromPgTimestamp(updatedAt)
	return &inspection, nil
}
