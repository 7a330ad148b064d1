package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ideacapital/core/state"
	"ideacapital/core/types"
)

// CursorName identifies the archive relay's row in the cursor table.
const CursorName = "archive"

// ErrDigestMismatch reports an archived row whose content no longer matches
// its stored digest.
var ErrDigestMismatch = errors.New("relay: archived event digest mismatch")

// Archive stores relayed outbox records through gorm.
type Archive struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewArchive migrates the schema and returns an archive bound to db.
func NewArchive(db *gorm.DB) (*Archive, error) {
	if db == nil {
		return nil, errors.New("relay: archive database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("relay: migrate archive: %w", err)
	}
	return &Archive{db: db, nowFn: time.Now}, nil
}

// Cursor returns the last archived sequence number.
func (a *Archive) Cursor(ctx context.Context) (uint64, error) {
	var cur Cursor
	err := a.db.WithContext(ctx).First(&cur, "name = ?", CursorName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cur.Seq, nil
}

// Append stores records and moves the cursor to the last one in a single
// transaction. Records already archived are left untouched.
func (a *Archive) Append(ctx context.Context, records []state.Record) error {
	if len(records) == 0 {
		return nil
	}
	now := a.nowFn().UTC()
	rows := make([]ArchivedEvent, 0, len(records))
	for _, rec := range records {
		if rec.Event == nil {
			continue
		}
		attrs, err := json.Marshal(rec.Event.Attributes)
		if err != nil {
			return fmt.Errorf("relay: encode attributes: %w", err)
		}
		rows = append(rows, ArchivedEvent{
			Seq:         rec.Seq,
			Type:        rec.Event.Type,
			Attributes:  string(attrs),
			Digest:      Digest(rec),
			CommittedAt: rec.Time,
			ArchivedAt:  now,
		})
	}
	last := records[len(records)-1].Seq
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
				return err
			}
		}
		cur := Cursor{Name: CursorName, Seq: last, UpdatedAt: now}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"seq", "updated_at"}),
		}).Create(&cur).Error
	})
}

// Events lists archived records after the given sequence number, optionally
// filtered by type. Each row's digest is checked on the way out.
func (a *Archive) Events(ctx context.Context, after uint64, eventType string, limit int) ([]state.Record, error) {
	query := a.db.WithContext(ctx).Where("seq > ?", after).Order("seq ASC")
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []ArchivedEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]state.Record, 0, len(rows))
	for _, row := range rows {
		attrs := map[string]string{}
		if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("relay: decode attributes of %d: %w", row.Seq, err)
		}
		rec := state.Record{
			Seq:   row.Seq,
			Time:  row.CommittedAt.UTC(),
			Event: &types.Event{Type: row.Type, Attributes: attrs},
		}
		if Digest(rec) != row.Digest {
			return nil, fmt.Errorf("%w: seq %d", ErrDigestMismatch, row.Seq)
		}
		out = append(out, rec)
	}
	return out, nil
}
