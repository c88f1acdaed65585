// Package worldstate reconciles world-state tables out of model output.
//
// The reconciler owns the runtime table rows for a session. Each model turn
// may carry a <table_stored> text block or a <state_update> JSON block; the
// reconciler extracts whichever is present, runs it through the LSR codec and
// merges the result. State always reflects the currently active alternate of
// the latest model turn, not a running log: swiping to another alternate
// re-reconciles from that alternate's text.
package worldstate

import (
	"sync"

	"go.uber.org/zap"

	"github.com/mythos-rpg/mythos/pkg/lsr"
	"github.com/mythos-rpg/mythos/pkg/tags"
)

// Reconciler owns the runtime world-state tables for one session.
type Reconciler struct {
	defs   []lsr.TableDefinition
	logger *zap.Logger

	mu     sync.RWMutex
	tables lsr.Tables
}

// NewReconciler creates a reconciler with the given table schema. The schema
// is static configuration, parsed once.
func NewReconciler(defs []lsr.TableDefinition, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		defs:   defs,
		logger: logger,
		tables: lsr.Tables{},
	}
}

// Definitions returns the static table schema.
func (r *Reconciler) Definitions() []lsr.TableDefinition {
	return r.defs
}

// Reconcile extracts a table block from model output and merges it into the
// owned state. Absent or malformed blocks leave the state unchanged; a codec
// failure is logged, never surfaced.
func (r *Reconciler) Reconcile(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables = ReconcileTables(text, r.tables, r.logger)
}

// Reset replaces the owned state wholesale, e.g. when loading a save or
// switching the active alternate's baseline.
func (r *Reconciler) Reset(tables lsr.Tables) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tables == nil {
		tables = lsr.Tables{}
	}
	r.tables = tables.Clone()
}

// Snapshot returns a copy of the current tables.
func (r *Reconciler) Snapshot() lsr.Tables {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.tables.Clone()
}

// Serialized renders the current tables in LSR text form for prompt
// injection.
func (r *Reconciler) Serialized() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lsr.Serialize(r.tables, r.defs)
}

// ReconcileTables is the pure reconciliation step: locate a table block in
// text and merge it into current. Returns current unchanged when no block is
// present or the block cannot be decoded.
func ReconcileTables(text string, current lsr.Tables, logger *zap.Logger) lsr.Tables {
	if block := tags.Extract(text, tags.TagTableStored); block != "" {
		return lsr.Merge(current, lsr.ParseRuntime(block))
	}

	if block := tags.Extract(text, tags.TagStateUpdate); block != "" {
		next, err := lsr.ApplyStateUpdate(block, current)
		if err != nil {
			logger.Warn("discarding malformed state update", zap.Error(err))
			return current
		}
		return next
	}

	return current
}
