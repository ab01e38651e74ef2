package db

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/jrmsu-wise/presence-tracker/model"
)

func testActivityEntry() model.ActivityEntry {
	return model.ActivityEntry{
		ActorID:   "S-1",
		ActorName: "Jane Doe",
		Event:     "LIBRARY LOGIN",
		Details:   "Method: QR, Action #1 (ODD)",
		Source:    "MIRROR",
		Timestamp: time.Unix(1594336370, 0),
	}
}

func TestAddActivityEntry(t *testing.T) {
	assert := assert.New(t)

	mockDB, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer mockDB.Close()

	entry := testActivityEntry()

	// Set up the expectations.
	mock.ExpectExec("INSERT INTO activity_log").
		WithArgs(entry.ActorID, entry.ActorName, entry.Event, entry.Details, entry.Source, entry.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM activity_log WHERE id NOT IN").
		WithArgs(1000).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Record the entry.
	store := NewActivityStore(mockDB, 1000)
	err = store.Add(entry)
	assert.NoError(err, "unexpected error occurred while recording the activity entry")

	// Verify that all mock expectations were met.
	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}

func TestListActivityEntries(t *testing.T) {
	assert := assert.New(t)

	mockDB, mock, err := sqlmock.New()
	assert.NoError(err, "unable to open the mock database connection")
	defer mockDB.Close()

	entry := testActivityEntry()

	// Set up the expectations.
	rows := sqlmock.NewRows([]string{"actor_id", "actor_name", "event", "details", "source", "timestamp"}).
		AddRow(entry.ActorID, entry.ActorName, entry.Event, entry.Details, entry.Source, entry.Timestamp)
	mock.ExpectQuery("SELECT actor_id, actor_name, event, details, source, timestamp FROM activity_log WHERE actor_id =").
		WithArgs("S-1").
		WillReturnRows(rows)

	// List the entries.
	store := NewActivityStore(mockDB, 1000)
	entries, err := store.List("S-1", 50)
	assert.NoError(err, "unexpected error occurred while listing activity entries")
	assert.Len(entries, 1, "incorrect number of entries")
	assert.Equal(entry, entries[0], "incorrect entry")

	// Verify that all mock expectations were met.
	err = mock.ExpectationsWereMet()
	assert.NoError(err, "not all mock expectations were met")
}
