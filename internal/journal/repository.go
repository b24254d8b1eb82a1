// Package journal keeps a Postgres log of published posts.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/internal/lifecycle"
)

// Publication is one row of the publications table.
type Publication struct {
	ID          uuid.UUID `db:"id"`
	OwnerID     int64     `db:"owner_id"`
	Username    *string   `db:"username"`
	MediaCount  int       `db:"media_count"`
	CaptionLen  int       `db:"caption_len"`
	Channel     string    `db:"channel"`
	PublishedAt time.Time `db:"published_at"`
}

// Repository stores publications.
type Repository struct {
	db    *sqlx.DB
	newID func() uuid.UUID
}

// NewRepository returns a Repository over db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, newID: uuid.New}
}

var _ lifecycle.Journal = (*Repository)(nil)

// RecordPublication inserts rec with a fresh id.
func (r *Repository) RecordPublication(ctx context.Context, rec lifecycle.PublicationRecord) error {
	row := Publication{
		ID:          r.newID(),
		OwnerID:     rec.OwnerID,
		Username:    pointer.ToStringOrNil(rec.Username),
		MediaCount:  rec.MediaCount,
		CaptionLen:  rec.CaptionLen,
		Channel:     rec.Channel,
		PublishedAt: rec.PublishedAt.UTC(),
	}

	start := time.Now()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO publications
		(id, owner_id, username, media_count, caption_len, channel, published_at)
		VALUES (:id, :owner_id, :username, :media_count, :caption_len, :channel, :published_at)
	`, row)
	if err != nil {
		return fmt.Errorf("journal.RecordPublication: %w", err)
	}

	logger.Debug(ctx, "journal", "publication.insert",
		slog.String("status", "ok"),
		slog.String("id", row.ID.String()),
		slog.Int64("user_id", row.OwnerID),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// CountSince returns the number of publications at or after since.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT count(*) FROM publications
		WHERE published_at >= $1
	`, since.UTC())
	if err != nil {
		return 0, fmt.Errorf("journal.CountSince: %w", err)
	}
	return n, nil
}

// LatestByOwner returns the most recent publications of one user, newest first.
func (r *Repository) LatestByOwner(ctx context.Context, ownerID int64, limit int) ([]Publication, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []Publication
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, owner_id, username, media_count, caption_len, channel, published_at
		FROM publications
		WHERE owner_id = $1
		ORDER BY published_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("journal.LatestByOwner: %w", err)
	}
	return out, nil
}
