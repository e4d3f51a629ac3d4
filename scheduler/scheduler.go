package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"warden/model"
	"warden/utils/database"

	"go.uber.org/zap"
)

// ErrUnknownTask marks an entry whose task name has no registered handler.
// Such entries are removed without retry; a handler that cannot be found
// will never be found on a later attempt either.
var ErrUnknownTask = errors.New("no handler registered for task")

// ErrStopped is returned by Schedule after Stop has been called.
var ErrStopped = errors.New("scheduler is stopped")

// CompletionFunc is invoked after an entry fires, with the handler outcome.
// Completions are in-memory only and do not survive a restart; state that
// must transition durably belongs in the registered handler itself.
type CompletionFunc func(entry model.ScheduledEntry, err error)

type pendingEntry struct {
	entry model.ScheduledEntry
	timer *time.Timer // nil while a past-due entry waits for reconciliation
	done  CompletionFunc
}

// Scheduler owns the in-memory timers for persisted entries and guarantees
// each entry fires at most once. The entry store is the source of truth:
// every store mutation commits before the matching timer is armed or
// disarmed.
type Scheduler struct {
	store    *database.EntryStore
	registry *Registry
	clock    Clock
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingEntry // by entry ID
	byKey   map[string]string        // supersession key -> entry ID
	stopped bool
	wg      sync.WaitGroup
}

// New creates a scheduler. Call Start to reconcile persisted entries.
func New(store *database.EntryStore, registry *Registry, clock Clock, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		registry: registry,
		clock:    clock,
		logger:   logger,
		pending:  make(map[string]*pendingEntry),
		byKey:    make(map[string]string),
	}
}

// Start rebuilds timers from the store. Entries whose run time has already
// passed fire immediately, in store order, on a single reconciliation
// goroutine; the rest get one-shot timers.
func (s *Scheduler) Start() error {
	entries, err := s.store.ListAll()
	if err != nil {
		return fmt.Errorf("failed to load scheduled entries: %w", err)
	}

	now := s.clock.Now()
	var due []string

	s.mu.Lock()
	for _, entry := range entries {
		if entry.RunAt.After(now) {
			s.armLocked(entry, nil)
			continue
		}
		s.pending[entry.ID] = &pendingEntry{entry: entry}
		s.byKey[entry.Key()] = entry.ID
		due = append(due, entry.ID)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler reconciled",
		zap.Int("armed", len(entries)-len(due)),
		zap.Int("past_due", len(due)))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, id := range due {
			s.fire(id)
		}
	}()
	return nil
}

// Schedule persists the entry, then arms its timer. A pending entry with
// the same (guild, subject, task) key is cancelled first, so at most one
// reversal stays pending per key. A store failure fails the whole call and
// arms nothing.
func (s *Scheduler) Schedule(entry model.ScheduledEntry, done CompletionFunc) error {
	if entry.RunAt.Before(entry.CreatedAt) {
		return fmt.Errorf("entry %s run time precedes creation time", entry.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}

	if prevID, ok := s.byKey[entry.Key()]; ok {
		s.disarmLocked(prevID)
		if err := s.store.Remove(prevID); err != nil {
			return fmt.Errorf("failed to remove superseded entry: %w", err)
		}
	} else {
		// A persisted entry with no armed timer can only exist before
		// Start or after a partial crash; supersede it in the store too.
		prev, err := s.store.FindByKey(entry.GuildID, entry.SubjectID, entry.TaskName)
		if err != nil {
			return err
		}
		if prev != nil {
			if err := s.store.Remove(prev.ID); err != nil {
				return fmt.Errorf("failed to remove superseded entry: %w", err)
			}
		}
	}

	if err := s.store.Put(entry); err != nil {
		return fmt.Errorf("failed to persist scheduled entry: %w", err)
	}

	s.armLocked(entry, done)
	s.logger.Info("entry scheduled",
		zap.String("entry_id", entry.ID),
		zap.String("task", entry.TaskName),
		zap.String("guild_id", entry.GuildID),
		zap.String("subject_id", entry.SubjectID),
		zap.Time("run_at", entry.RunAt))
	return nil
}

// Cancel disarms and removes the pending entry for a key, if any. Used for
// manual early reversal. Returns whether an entry was found; calling it
// again for the same key reports not found without error.
func (s *Scheduler) Cancel(guildID, subjectID, taskName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[model.EntryKey(guildID, subjectID, taskName)]
	if !ok {
		prev, err := s.store.FindByKey(guildID, subjectID, taskName)
		if err != nil {
			return false, err
		}
		if prev == nil {
			return false, nil
		}
		if err := s.store.Remove(prev.ID); err != nil {
			return true, err
		}
		return true, nil
	}

	s.disarmLocked(id)
	if err := s.store.Remove(id); err != nil {
		return true, err
	}
	return true, nil
}

// PendingCount reports how many entries currently have armed timers.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop disarms every timer and waits for the reconciliation pass. Entries
// stay in the store and fire on the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id := range s.pending {
		s.disarmLocked(id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// armLocked installs the timer for an entry. Caller holds s.mu and has
// already persisted the entry.
func (s *Scheduler) armLocked(entry model.ScheduledEntry, done CompletionFunc) {
	pe := &pendingEntry{entry: entry, done: done}
	delay := entry.RunAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	id := entry.ID
	pe.timer = time.AfterFunc(delay, func() { s.fire(id) })
	s.pending[id] = pe
	s.byKey[entry.Key()] = id
}

// disarmLocked stops and forgets a pending entry. Caller holds s.mu. The
// store row is the caller's responsibility.
func (s *Scheduler) disarmLocked(id string) {
	pe, ok := s.pending[id]
	if !ok {
		return
	}
	if pe.timer != nil {
		pe.timer.Stop()
	}
	delete(s.pending, id)
	if cur, ok := s.byKey[pe.entry.Key()]; ok && cur == id {
		delete(s.byKey, pe.entry.Key())
	}
}

// fire executes one entry. The pending-map check under the mutex makes the
// execution at-most-once: a cancellation or supersession that won the race
// already deleted the ID and this call becomes a no-op.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	pe, ok := s.pending[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	if cur, ok := s.byKey[pe.entry.Key()]; ok && cur == id {
		delete(s.byKey, pe.entry.Key())
	}
	s.mu.Unlock()

	entry := pe.entry
	execErr := s.execute(entry)

	// One-shot semantics: the entry leaves the store whatever the handler
	// outcome, so a failed handler is not retried on the next restart.
	if err := s.store.Remove(entry.ID); err != nil {
		s.logger.Error("failed to remove fired entry",
			zap.String("entry_id", entry.ID), zap.Error(err))
	}

	if pe.done != nil {
		pe.done(entry, execErr)
	}
}

func (s *Scheduler) execute(entry model.ScheduledEntry) error {
	handler, ok := s.registry.Lookup(entry.TaskName)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownTask, entry.TaskName)
		s.logger.Error("dropping entry with unknown task",
			zap.String("entry_id", entry.ID),
			zap.String("task", entry.TaskName))
		return err
	}

	args, err := entry.ArgList()
	if err != nil {
		// Corrupted args are permanent; the entry is dropped like an
		// unknown task.
		s.logger.Error("dropping entry with corrupted args",
			zap.String("entry_id", entry.ID), zap.Error(err))
		return fmt.Errorf("corrupted entry args: %w", err)
	}

	if err := handler(entry.GuildID, entry.SubjectID, args); err != nil {
		s.logger.Warn("entry handler failed",
			zap.String("entry_id", entry.ID),
			zap.String("task", entry.TaskName),
			zap.String("guild_id", entry.GuildID),
			zap.String("subject_id", entry.SubjectID),
			zap.Error(err))
		return err
	}

	s.logger.Info("entry executed",
		zap.String("entry_id", entry.ID),
		zap.String("task", entry.TaskName),
		zap.String("guild_id", entry.GuildID),
		zap.String("subject_id", entry.SubjectID))
	return nil
}
