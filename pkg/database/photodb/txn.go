// Etiquette
// Copyright (c) 2026 The Etiquette Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Etiquette.
//
// Etiquette is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Etiquette is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Etiquette.  If not, see <http://www.gnu.org/licenses/>.

package photodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// deferredAction is an opaque queued side effect: file deletions and moves
// that must happen if and only if the transaction settles the right way.
type deferredAction struct {
	fn   func() error
	note string
}

// txnFrame is the bookkeeping for one savepoint. Releasing a frame merges
// its queues into the parent; rolling it back runs the rollback queue LIFO
// and discards the commit queue.
type txnFrame struct {
	savepoint  string
	onCommit   []deferredAction
	onRollback []deferredAction
}

// Savepoint starts a new savepoint (and the transaction itself when none is
// open) and returns its name.
func (db *PhotoDB) Savepoint(ctx context.Context) (string, error) {
	if db.sql == nil {
		return "", ErrNullSQL
	}
	if !db.inTxn {
		db.txnMu.Lock()
		if _, err := db.sql.ExecContext(ctx, "BEGIN;"); err != nil {
			db.txnMu.Unlock()
			return "", fmt.Errorf("failed to begin transaction: %w", err)
		}
		db.inTxn = true
	}

	name := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := db.sql.ExecContext(ctx, "SAVEPOINT "+name+";"); err != nil {
		return "", fmt.Errorf("failed to create savepoint: %w", err)
	}
	db.frames = append(db.frames, txnFrame{savepoint: name})
	return name, nil
}

// findFrame returns the stack index of a savepoint, or -1.
func (db *PhotoDB) findFrame(savepoint string) int {
	for i := len(db.frames) - 1; i >= 0; i-- {
		if db.frames[i].savepoint == savepoint {
			return i
		}
	}
	return -1
}

// OnCommit queues an action to run when the outermost savepoint commits.
// Outside a transaction the action runs immediately.
func (db *PhotoDB) OnCommit(note string, fn func() error) error {
	if !db.inTxn {
		return fn()
	}
	top := &db.frames[len(db.frames)-1]
	top.onCommit = append(top.onCommit, deferredAction{fn: fn, note: note})
	return nil
}

// OnRollback queues a compensating action to run if the enclosing
// transaction rolls back. Outside a transaction it is dropped: there is
// nothing to compensate.
func (db *PhotoDB) OnRollback(note string, fn func() error) {
	if !db.inTxn {
		return
	}
	top := &db.frames[len(db.frames)-1]
	top.onRollback = append(top.onRollback, deferredAction{fn: fn, note: note})
}

// ReleaseSavepoint releases a savepoint. Releasing the outermost savepoint
// with allowCommit true flushes the deferred side effects in queue order and
// commits; any side-effect failure rolls the whole transaction back. An
// inner release keeps both queues pending on the parent frame.
func (db *PhotoDB) ReleaseSavepoint(ctx context.Context, savepoint string, allowCommit bool) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	i := db.findFrame(savepoint)
	if i < 0 {
		return fmt.Errorf("savepoint %s is not on the stack", savepoint)
	}

	// merge queues of the released frames, outermost first
	var commits, rollbacks []deferredAction
	for _, frame := range db.frames[i:] {
		commits = append(commits, frame.onCommit...)
		rollbacks = append(rollbacks, frame.onRollback...)
	}
	db.frames = db.frames[:i]

	if i > 0 {
		parent := &db.frames[i-1]
		parent.onCommit = append(parent.onCommit, commits...)
		parent.onRollback = append(parent.onRollback, rollbacks...)
		if _, err := db.sql.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint+";"); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		return nil
	}

	db.rootCommit = append(db.rootCommit, commits...)
	db.rootRollback = append(db.rootRollback, rollbacks...)

	if !allowCommit {
		if _, err := db.sql.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint+";"); err != nil {
			return fmt.Errorf("failed to release savepoint: %w", err)
		}
		return nil
	}
	return db.Commit(ctx)
}

// Commit flushes the pending side effects in queue order and commits the
// open transaction. A side-effect failure aborts the commit and rolls back.
func (db *PhotoDB) Commit(ctx context.Context) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if !db.inTxn {
		return nil
	}

	// remaining frames are committed implicitly
	for _, frame := range db.frames {
		db.rootCommit = append(db.rootCommit, frame.onCommit...)
		db.rootRollback = append(db.rootRollback, frame.onRollback...)
	}
	db.frames = nil

	for idx, action := range db.rootCommit {
		if err := action.fn(); err != nil {
			log.Error().Err(err).Str("action", action.note).Msg("deferred commit action failed, rolling back")
			// queue order: already-started frame state is undone; actions
			// after the failed one are skipped
			db.rootCommit = db.rootCommit[idx+1:]
			if rbErr := db.Rollback(ctx); rbErr != nil {
				log.Warn().Err(rbErr).Msg("rollback after failed commit action also failed")
			}
			return fmt.Errorf("deferred commit action %q failed: %w", action.note, err)
		}
	}
	db.rootCommit = nil
	db.rootRollback = nil

	if _, err := db.sql.ExecContext(ctx, "COMMIT;"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	db.inTxn = false
	db.commitCount++
	db.txnMu.Unlock()
	return nil
}

// RollbackTo rolls back to a savepoint: compensating actions queued after it
// run in LIFO order, their commit-queue counterparts are discarded, and the
// savepoint is consumed. Rolling back to an inner savepoint keeps the
// transaction open; rolling back to the outermost one abandons it entirely,
// since no frame remains that could ever commit.
func (db *PhotoDB) RollbackTo(ctx context.Context, savepoint string) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	i := db.findFrame(savepoint)
	if i < 0 {
		return fmt.Errorf("savepoint %s is not on the stack", savepoint)
	}
	if i == 0 {
		return db.Rollback(ctx)
	}

	for j := len(db.frames) - 1; j >= i; j-- {
		runCompensations(db.frames[j].onRollback)
	}
	db.frames = db.frames[:i]

	if _, err := db.sql.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint+";"); err != nil {
		return fmt.Errorf("failed to roll back to savepoint: %w", err)
	}
	if _, err := db.sql.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint+";"); err != nil {
		return fmt.Errorf("failed to release rolled-back savepoint: %w", err)
	}
	return nil
}

// Rollback abandons the whole transaction, running every compensating
// action in LIFO order.
func (db *PhotoDB) Rollback(ctx context.Context) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	if !db.inTxn {
		return nil
	}

	for j := len(db.frames) - 1; j >= 0; j-- {
		runCompensations(db.frames[j].onRollback)
	}
	db.frames = nil
	runCompensations(db.rootRollback)
	db.rootCommit = nil
	db.rootRollback = nil

	_, err := db.sql.ExecContext(ctx, "ROLLBACK;")
	db.inTxn = false
	db.txnMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func runCompensations(actions []deferredAction) {
	for i := len(actions) - 1; i >= 0; i-- {
		if err := actions[i].fn(); err != nil {
			log.Warn().Err(err).Str("action", actions[i].note).Msg("rollback compensation failed")
		}
	}
}

// withTransaction runs fn inside a savepoint, rolling back to it on error
// and otherwise releasing with commit allowed. Nested calls join the
// caller's transaction; only the outermost release commits.
func (db *PhotoDB) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	savepoint, err := db.Savepoint(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		// fn may have failed because ctx is done, and the rollback must
		// still reach the database
		if rbErr := db.RollbackTo(context.WithoutCancel(ctx), savepoint); rbErr != nil {
			log.Warn().Err(rbErr).Msg("failed to roll back savepoint")
		}
		return err
	}
	return db.ReleaseSavepoint(ctx, savepoint, true)
}
