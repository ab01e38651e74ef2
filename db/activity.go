package db

import (
	"database/sql"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// ActivityStore is a Postgres-backed activity feed with the same bounded
// retention semantics as the in-memory ring: once the capacity is exceeded
// the oldest entries are pruned.
type ActivityStore struct {
	db       *sql.DB
	capacity int
}

// NewActivityStore returns an activity store backed by the given database
// connection that retains up to capacity entries.
func NewActivityStore(db *sql.DB, capacity int) *ActivityStore {
	return &ActivityStore{db: db, capacity: capacity}
}

// Add records a single activity entry, pruning the oldest entries beyond the
// configured capacity.
func (s *ActivityStore) Add(entry model.ActivityEntry) error {
	wrapMsg := "unable to record the activity entry"

	// Build the statement to insert the entry.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("activity_log").
		Columns("actor_id", "actor_name", "event", "details", "source", "timestamp").
		Values(entry.ActorID, entry.ActorName, entry.Event, entry.Details, entry.Source, entry.Timestamp).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the insert statement.
	_, err = s.db.Exec(statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Prune entries beyond the retention capacity.
	if s.capacity > 0 {
		statement, args, err = sq.StatementBuilder.
			PlaceholderFormat(sq.Dollar).
			Delete("activity_log").
			Where("id NOT IN (SELECT id FROM activity_log ORDER BY id DESC LIMIT ?)", s.capacity).
			ToSql()
		if err != nil {
			return errors.Wrap(err, wrapMsg)
		}
		_, err = s.db.Exec(statement, args...)
		if err != nil {
			return errors.Wrap(err, wrapMsg)
		}
	}

	return nil
}

// List returns up to limit entries ordered newest-first, optionally filtered
// by actor.
func (s *ActivityStore) List(subjectID string, limit int) ([]model.ActivityEntry, error) {
	wrapMsg := "unable to list activity entries"

	// Build the query.
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("actor_id", "actor_name", "event", "details", "source", "timestamp").
		From("activity_log").
		OrderBy("id DESC")
	if subjectID != "" {
		builder = builder.Where(sq.Eq{"actor_id": subjectID})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	// Query the database and scan the results.
	rows, err := s.db.Query(statement, args...)
	if err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		var entry model.ActivityEntry
		err = rows.Scan(&entry.ActorID, &entry.ActorName, &entry.Event, &entry.Details, &entry.Source, &entry.Timestamp)
		if err != nil {
			return nil, errors.Wrap(err, wrapMsg)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, wrapMsg)
	}

	return entries, nil
}
