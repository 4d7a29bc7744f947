// Package store persists the pipeline's durable state: processed-message ids,
// per-folder checkpoints, and the append-only summary history.
package store

import (
	"time"

	"secure-mail-digest-go/internal/model"
)

// DedupStore tracks which message ids have already been handled.
type DedupStore interface {
	IsProcessed(messageID string) (bool, error)
	MarkProcessed(messageID string) error
	CountProcessed() (int64, error)
}

// CheckpointStore tracks the newest message timestamp each folder has seen.
// AdvanceCheckpoint never moves a checkpoint backwards.
type CheckpointStore interface {
	LastCheckpoint(folder string) (time.Time, bool, error)
	AdvanceCheckpoint(folder string, seen time.Time) error
}

// SummaryStore is the append-only record of processed messages and their
// summaries. History returns records newest first.
type SummaryStore interface {
	AppendSummary(rec *model.SummaryRecord) error
	History(page, limit int) ([]model.SummaryRecord, int64, error)
	GetSummary(id uint) (*model.SummaryRecord, error)
}

// Store is the combined persistence surface used by the pipeline.
//
// CommitSummary writes the summary record and the processed mark in a single
// transaction so a crash can never leave one without the other. Reconcile
// repairs the opposite kind of drift at startup: summary records are the
// source of truth, so any record without a processed mark gets one rebuilt.
type Store interface {
	DedupStore
	CheckpointStore
	SummaryStore

	CommitSummary(rec *model.SummaryRecord) error
	Reconcile() (int, error)
	Ping() error
	Close() error
}
