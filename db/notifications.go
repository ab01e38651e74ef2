package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/jrmsu-wise/presence-tracker/model"
)

// notificationColumns are the columns scanned into a model.Notification.
var notificationColumns = []string{
	"id",
	"recipient",
	"kind",
	"title",
	"message",
	"details",
	"created_at",
	"read",
	"action_required",
	"action_payload",
	"action_consumed",
}

// NotificationStore is a Postgres-backed implementation of
// notifications.Store.
type NotificationStore struct {
	db *sql.DB
}

// NewNotificationStore returns a notification store backed by the given
// database connection.
func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Save persists a single notification record.
func (s *NotificationStore) Save(notification *model.Notification) error {
	wrapMsg := "unable to save notification"

	// Marshal the opaque payloads.
	details, err := marshalPayload(notification.Details)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}
	actionPayload, err := marshalPayload(notification.ActionPayload)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Build the statement to insert the notification.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert("notifications").
		Columns(
			"id",
			"recipient",
			"kind",
			"title",
			"message",
			"details",
			"created_at",
			"read",
			"action_required",
			"action_payload",
			"action_consumed").
		Values(
			notification.ID,
			string(notification.Recipient),
			string(notification.Kind),
			notification.Title,
			notification.Message,
			details,
			notification.CreatedAt,
			notification.Read,
			notification.ActionRequired,
			actionPayload,
			notification.ActionConsumed).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the insert statement.
	_, err = s.db.Exec(statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// List returns one page of a recipient's notifications ordered newest first,
// along with the total and unread counts for the recipient.
func (s *NotificationStore) List(
	recipient model.Recipient,
	unreadOnly bool,
	offset, limit int,
) ([]model.Notification, int, int, error) {
	wrapMsg := "unable to list notifications"

	// Build the statement to select one page of notifications.
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select(notificationColumns...).
		From("notifications").
		Where(sq.Eq{"recipient": string(recipient)})
	if unreadOnly {
		builder = builder.Where(sq.Eq{"read": false})
	}
	statement, args, err := builder.
		OrderBy("created_at DESC", "id DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, wrapMsg)
	}

	// Query the database and scan the results.
	rows, err := s.db.Query(statement, args...)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, wrapMsg)
	}
	defer rows.Close()

	var page []model.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, 0, 0, errors.Wrap(err, wrapMsg)
		}
		page = append(page, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, errors.Wrap(err, wrapMsg)
	}

	// Count the recipient's notifications.
	total, err := s.countNotifications(recipient, false)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, wrapMsg)
	}
	unread, err := s.countNotifications(recipient, true)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, wrapMsg)
	}

	return page, total, unread, nil
}

// countNotifications counts a recipient's notifications, optionally limited
// to the ones that haven't been marked as read.
func (s *NotificationStore) countNotifications(recipient model.Recipient, unreadOnly bool) (int, error) {
	wrapMsg := "unable to count notifications"

	// Build the statement to count the notifications.
	builder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("count(*)").
		From("notifications").
		Where(sq.Eq{"recipient": string(recipient)})
	if unreadOnly {
		builder = builder.Where(sq.Eq{"read": false})
	}
	statement, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	// Execute the statement.
	var total int
	err = s.db.QueryRow(statement, args...).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, wrapMsg)
	}

	return total, nil
}

// MarkRead marks the identified notifications as read. Unknown IDs and
// already-read notifications are skipped silently.
func (s *NotificationStore) MarkRead(ids []string) error {
	wrapMsg := "unable to mark notifications as read"

	if len(ids) == 0 {
		return nil
	}

	// Build the statement to mark the notifications as read.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("notifications").
		Set("read", true).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the update statement.
	_, err = s.db.Exec(statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// MarkAllRead marks all of a recipient's notifications as read.
func (s *NotificationStore) MarkAllRead(recipient model.Recipient) error {
	wrapMsg := "unable to mark all notifications as read"

	// Build the statement to mark the notifications as read.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("notifications").
		Set("read", true).
		Where(sq.Eq{"recipient": string(recipient)}).
		Where(sq.Eq{"read": false}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	// Execute the update statement.
	_, err = s.db.Exec(statement, args...)
	if err != nil {
		return errors.Wrap(err, wrapMsg)
	}

	return nil
}

// ConsumeAction marks an action-required notification's payload as consumed
// and returns the updated record.
func (s *NotificationStore) ConsumeAction(id string) (model.Notification, error) {
	wrapMsg := "unable to consume the notification action"

	// Build the statement to mark the action as consumed.
	statement, args, err := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Update("notifications").
		Set("action_consumed", true).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(notificationColumns, ", ")).
		ToSql()
	if err != nil {
		return model.Notification{}, errors.Wrap(err, wrapMsg)
	}

	// Execute the update statement, scanning the updated record.
	notification, err := scanNotification(s.db.QueryRow(statement, args...))
	if err == sql.ErrNoRows {
		return model.Notification{}, model.ErrNotFound
	}
	if err != nil {
		return model.Notification{}, errors.Wrap(err, wrapMsg)
	}

	return notification, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanNotification scans one notification row.
func scanNotification(row rowScanner) (model.Notification, error) {
	var (
		notification  model.Notification
		details       []byte
		actionPayload []byte
	)
	err := row.Scan(
		&notification.ID,
		&notification.Recipient,
		&notification.Kind,
		&notification.Title,
		&notification.Message,
		&details,
		&notification.CreatedAt,
		&notification.Read,
		&notification.ActionRequired,
		&actionPayload,
		&notification.ActionConsumed,
	)
	if err != nil {
		return model.Notification{}, err
	}

	if notification.Details, err = unmarshalPayload(details); err != nil {
		return model.Notification{}, err
	}
	if notification.ActionPayload, err = unmarshalPayload(actionPayload); err != nil {
		return model.Notification{}, err
	}

	return notification, nil
}

// marshalPayload converts an opaque payload to JSON, mapping empty payloads
// to NULL.
func marshalPayload(payload map[string]interface{}) (interface{}, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// unmarshalPayload converts a JSON column value back to an opaque payload.
func unmarshalPayload(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
