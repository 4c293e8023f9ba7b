package postgres

import (
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// UUID conversions

// toPgUUID converts a google/uuid.UUID to pgtype.UUID.
func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

// fromPgUUID converts a pgtype.UUID to google/uuid.UUID.
func fromPgUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.UUID{}
	}
	return uuid.UUID(id.Bytes)
}

// Text conversions

// toPgStatus converts an optional operational status to pgtype.Text.
func toPgStatus(s liftcheck.OperationalStatus) pgtype.Text {
	return pgtype.Text{String: string(s), Valid: s != ""}
}

// fromPgStatus converts a pgtype.Text to an operational status.
func fromPgStatus(t pgtype.Text) liftcheck.OperationalStatus {
	if !t.Valid {
		return ""
	}
	return liftcheck.OperationalStatus(t.String)
}

// Timestamp conversions

// toPgTimestamp converts a time.Time to pgtype.Timestamptz.
func toPgTimestamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

// toPgTimestampPtr converts a time.Time pointer to pgtype.Timestamptz.
func toPgTimestampPtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// fromPgTimestamp converts a pgtype.Timestamptz to time.Time.
func fromPgTimestamp(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// fromPgTimestampPtr converts a pgtype.Timestamptz to time.Time pointer (nil if not valid).
func fromPgTimestampPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
