package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"secure-mail-digest-go/internal/config"
	"secure-mail-digest-go/internal/model"
)

func newTestStore(t *testing.T) *DB {
	t.Helper()
	s, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkAndCheckProcessed(t *testing.T) {
	s := newTestStore(t)

	processed, err := s.IsProcessed("msg-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, s.MarkProcessed("msg-1"))

	processed, err = s.IsProcessed("msg-1")
	require.NoError(t, err)
	assert.True(t, processed)

	// Marking the same id again must not error.
	require.NoError(t, s.MarkProcessed("msg-1"))

	count, err := s.CountProcessed()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCheckpointLifecycle(t *testing.T) {
	s := newTestStore(t)

	_, exists, err := s.LastCheckpoint("INBOX")
	require.NoError(t, err)
	assert.False(t, exists)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AdvanceCheckpoint("INBOX", base))

	got, exists, err := s.LastCheckpoint("INBOX")
	require.NoError(t, err)
	require.True(t, exists)
	assert.True(t, got.Equal(base))

	// Moving backwards is ignored.
	require.NoError(t, s.AdvanceCheckpoint("INBOX", base.Add(-time.Hour)))
	got, _, err = s.LastCheckpoint("INBOX")
	require.NoError(t, err)
	assert.True(t, got.Equal(base))

	// Moving forwards takes effect.
	require.NoError(t, s.AdvanceCheckpoint("INBOX", base.Add(time.Hour)))
	got, _, err = s.LastCheckpoint("INBOX")
	require.NoError(t, err)
	assert.True(t, got.Equal(base.Add(time.Hour)))
}

func TestCheckpointPerFolder(t *testing.T) {
	s := newTestStore(t)

	inboxTime := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	archiveTime := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AdvanceCheckpoint("INBOX", inboxTime))
	require.NoError(t, s.AdvanceCheckpoint("Archive", archiveTime))

	got, exists, err := s.LastCheckpoint("INBOX")
	require.NoError(t, err)
	require.True(t, exists)
	assert.True(t, got.Equal(inboxTime))

	got, exists, err = s.LastCheckpoint("Archive")
	require.NoError(t, err)
	require.True(t, exists)
	assert.True(t, got.Equal(archiveTime))
}

func TestSummaryHistoryPagination(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := model.SummaryRecord{
			MessageID: "msg-" + string(rune('a'+i)),
			Sender:    "sender@example.com",
			Subject:   "Subject",
			Summary:   "Summary",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.AppendSummary(&rec))
	}

	records, total, err := s.History(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "msg-e", records[0].MessageID)
	assert.Equal(t, "msg-d", records[1].MessageID)

	records, _, err = s.History(3, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "msg-a", records[0].MessageID)

	// Out-of-range page is empty, defaults guard bad values.
	records, _, err = s.History(10, 2)
	require.NoError(t, err)
	assert.Empty(t, records)

	records, _, err = s.History(0, 0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestGetSummary(t *testing.T) {
	s := newTestStore(t)

	rec := model.SummaryRecord{MessageID: "msg-1", Sender: "a@example.com", Subject: "Hi", Summary: "text"}
	require.NoError(t, s.AppendSummary(&rec))
	require.NotZero(t, rec.ID)

	got, err := s.GetSummary(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", got.MessageID)

	_, err = s.GetSummary(9999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCommitSummaryAtomic(t *testing.T) {
	s := newTestStore(t)

	rec := model.SummaryRecord{
		MessageID: "msg-1",
		Sender:    "a@example.com",
		Subject:   "Report",
		Summary:   "- done",
	}
	require.NoError(t, s.CommitSummary(&rec))

	processed, err := s.IsProcessed("msg-1")
	require.NoError(t, err)
	assert.True(t, processed)

	_, total, err := s.History(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// A second commit for the same message id violates the unique index and
	// must leave the history unchanged.
	dup := model.SummaryRecord{MessageID: "msg-1", Summary: "other"}
	require.Error(t, s.CommitSummary(&dup))

	_, total, err = s.History(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestReconcileRebuildsProcessedMarks(t *testing.T) {
	s := newTestStore(t)

	// Two records written without their processed marks, as after a crash of a
	// state layout that predates the transactional commit.
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendSummary(&model.SummaryRecord{MessageID: "msg-1", Summary: "a", CreatedAt: created}))
	require.NoError(t, s.AppendSummary(&model.SummaryRecord{MessageID: "msg-2", Summary: "b", CreatedAt: created}))

	// A skip mark without a record is legitimate and must survive untouched.
	require.NoError(t, s.MarkProcessed("skipped-msg"))

	repaired, err := s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)

	for _, id := range []string{"msg-1", "msg-2", "skipped-msg"} {
		processed, err := s.IsProcessed(id)
		require.NoError(t, err)
		assert.True(t, processed, id)
	}

	// A second pass finds nothing to do.
	repaired, err = s.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}
