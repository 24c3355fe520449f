package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// pruneInterval is how often the retention pruner runs.
	pruneInterval = 6 * time.Hour
)

// Entry is a single recorded entity state observation.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the thermostat identifier.
	DeviceID string `json:"device_id"`

	// Entity names what the state belongs to: "climate" for the main
	// entity, a sensor or alert slug otherwise.
	Entity string `json:"entity"`

	// State is the JSON snapshot of the entity state.
	State map[string]any `json:"state"`

	// ObservedAt is when the state was observed (UTC).
	ObservedAt time.Time `json:"observed_at"`
}

// Store persists entity state history in SQLite.
//
// Every published state change gets a row, giving a local audit trail
// even when the time-series database is unavailable.
type Store struct {
	db *sql.DB

	// Retention pruner.
	retention time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewStore creates a state history store on an open database.
// Retention <= 0 disables pruning.
func NewStore(db *sql.DB, retention time.Duration) *Store {
	return &Store{
		db:        db,
		retention: retention,
		done:      make(chan struct{}),
	}
}

// RecordState inserts a new history entry.
func (s *Store) RecordState(ctx context.Context, deviceID, entity string, state map[string]any, observedAt time.Time) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if entity == "" {
		entity = "climate"
	}
	if state == nil {
		state = map[string]any{}
	}
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, entity, state, observed_at) VALUES (?, ?, ?, ?)",
		deviceID,
		entity,
		string(stateJSON),
		observedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}

	return nil
}

// History returns recent entries for a device, newest first.
// Limit defaults to 50 and is clamped to 200.
func (s *Store) History(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, device_id, entity, state, observed_at
		 FROM state_history
		 WHERE device_id = ?
		 ORDER BY observed_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var stateJSON string
		var observedAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.Entity, &stateJSON, &observedAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}

		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}

		entry.ObservedAt, err = time.Parse(time.RFC3339, observedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing observed_at: %w", err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the given duration.
// Returns the number of rows deleted.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE observed_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// StartPruner begins periodic retention pruning. No-op when retention
// is disabled. Call Stop to shut down.
func (s *Store) StartPruner(ctx context.Context) {
	if s.retention <= 0 {
		return
	}

	s.wg.Add(1)
	go s.pruneLoop(ctx)
}

// Stop gracefully stops the pruner. Safe to call multiple times.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// pruneLoop runs periodic retention pruning.
func (s *Store) pruneLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	s.pruneOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.pruneOnce(ctx)
		}
	}
}

// pruneOnce runs one pruning pass and logs the outcome.
func (s *Store) pruneOnce(ctx context.Context) {
	deleted, err := s.Prune(ctx, s.retention)
	if err != nil {
		s.logWarn("history pruning failed", "error", err.Error())
		return
	}
	if deleted > 0 {
		s.logInfo("pruned state history", "deleted", deleted)
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Store) logInfo(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (s *Store) logWarn(msg string, keysAndValues ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
