package activity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jrmsu-wise/presence-tracker/model"
)

func testEntry(actorID string, seq int) model.ActivityEntry {
	return model.ActivityEntry{
		ActorID:   actorID,
		ActorName: "Jane Doe",
		Event:     "LIBRARY LOGIN",
		Details:   fmt.Sprintf("entry %d", seq),
		Source:    "MIRROR",
		Timestamp: time.Unix(int64(1594336370+seq), 0),
	}
}

func TestAppendAndQueryNewestFirst(t *testing.T) {
	assert := assert.New(t)

	log := NewLog(10)
	for i := 0; i < 3; i++ {
		log.Append(testEntry("S-1", i))
	}

	entries := log.Query("", 0)
	assert.Len(entries, 3, "incorrect number of entries")
	assert.Equal("entry 2", entries[0].Details, "newest entry should come first")
	assert.Equal("entry 0", entries[2].Details, "oldest entry should come last")
}

func TestCapacityEviction(t *testing.T) {
	assert := assert.New(t)

	log := NewLog(3)
	for i := 0; i < 5; i++ {
		log.Append(testEntry("S-1", i))
	}

	entries := log.Query("", 0)
	assert.Len(entries, 3, "the log should retain only the configured capacity")
	assert.Equal("entry 4", entries[0].Details, "incorrect newest entry")
	assert.Equal("entry 2", entries[2].Details, "the oldest entries should have been evicted")
}

func TestQuerySubjectFilter(t *testing.T) {
	assert := assert.New(t)

	log := NewLog(10)
	log.Append(testEntry("S-1", 0))
	log.Append(testEntry("S-2", 1))
	log.Append(testEntry("S-1", 2))

	entries := log.Query("S-1", 0)
	assert.Len(entries, 2, "incorrect number of filtered entries")
	for _, entry := range entries {
		assert.Equal("S-1", entry.ActorID, "incorrect actor in filtered results")
	}
}

func TestQueryLimit(t *testing.T) {
	assert := assert.New(t)

	log := NewLog(10)
	for i := 0; i < 5; i++ {
		log.Append(testEntry("S-1", i))
	}

	entries := log.Query("", 2)
	assert.Len(entries, 2, "the limit was not applied")
	assert.Equal("entry 4", entries[0].Details, "incorrect newest entry")
}

func TestDefaultCapacity(t *testing.T) {
	log := NewLog(0)
	assert.Equal(t, DefaultCapacity, len(log.entries), "incorrect default capacity")
}
