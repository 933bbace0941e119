package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryWithID(id string) *HistoryEntry {
	return &HistoryEntry{
		Report:    &Report{ID: id},
		CreatedAt: time.Now(),
	}
}

func TestSessionServiceCreateAndGet(t *testing.T) {
	ss := NewSessionService()

	s := ss.Create()
	require.NotEmpty(t, s.ID)

	got := ss.Get(s.ID)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)

	assert.Nil(t, ss.Get("nope"))
}

func TestSessionServiceExpiry(t *testing.T) {
	ss := NewSessionService()
	ss.Duration = time.Millisecond

	s := ss.Create()
	time.Sleep(5 * time.Millisecond)
	assert.Nil(t, ss.Get(s.ID), "expired session should be gone")
}

func TestSessionServiceHistoryCap(t *testing.T) {
	ss := NewSessionService()
	ss.HistoryLimit = 3

	s := ss.Create()
	for i := 0; i < 5; i++ {
		ss.Add(s.ID, entryWithID(fmt.Sprintf("r%d", i)))
	}

	history := ss.History(s.ID)
	require.Len(t, history, 3)

	// Newest first, oldest dropped.
	assert.Equal(t, "r4", history[0].Report.ID)
	assert.Equal(t, "r2", history[2].Report.ID)

	_, err := ss.Entry(s.ID, "r0")
	assert.ErrorIs(t, err, ErrReportNotFound)
}

func TestSessionServiceIsolation(t *testing.T) {
	ss := NewSessionService()

	a := ss.Create()
	b := ss.Create()
	ss.Add(a.ID, entryWithID("report-a"))

	// Session b never sees session a's reports.
	_, err := ss.Entry(b.ID, "report-a")
	assert.ErrorIs(t, err, ErrReportNotFound)

	entry, err := ss.Entry(a.ID, "report-a")
	require.NoError(t, err)
	assert.Equal(t, "report-a", entry.Report.ID)
}

func TestHistoryEntryFailed(t *testing.T) {
	e := entryWithID("r1")
	assert.False(t, e.Failed())

	e.Err = "step fetch: could not fetch content from URL"
	assert.True(t, e.Failed())
}
