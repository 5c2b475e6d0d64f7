/*
entry.go - Ledger entry operations

PURPOSE:
  Create, update, soft-delete and restore entries while keeping account
  balances consistent. Each operation is one WithTx unit: validation and
  ownership checks run first, then the entry write and its balance deltas
  commit together.

GUARDS:
  UpdateEntry, DeleteEntry  edit window (12h from CreatedAt)
  RestoreEntry              undo window (30s from DeletedAt)

TRANSFER LEGS:
  A leg is part of a pair. Deleting or restoring one leg does the same to
  its counterpart in the same unit. Only description and date may be
  edited on a leg; a date change is mirrored on the counterpart.

SEE ALSO:
  - balance.go: Deltas for every transition
  - window.go: Edit and undo checks
  - transfer.go: Creates legs
*/
package ledger

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// NewEntry is the input to CreateEntry. Date defaults to now and Division
// to personal.
type NewEntry struct {
	Kind        Kind
	Amount      decimal.Decimal
	CategoryID  CategoryID
	Description string
	Date        time.Time
	Division    Division
	AccountID   AccountID
}

// EntryPatch is a partial update. Nil fields are left unchanged. Setting
// AccountID to a pointer to "" detaches the entry from its account.
type EntryPatch struct {
	Kind        *Kind
	Amount      *decimal.Decimal
	CategoryID  *CategoryID
	Description *string
	Date        *time.Time
	Division    *Division
	AccountID   *AccountID
}

// DeletionReceipt reports a soft-delete and when it stops being undoable.
type DeletionReceipt struct {
	EntryID       EntryID
	LinkedEntryID EntryID
	DeletedAt     time.Time
	UndoUntil     time.Time
}

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return validationf("amount must not be negative")
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return validationf("description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

func validateEntryKind(kind Kind) error {
	switch kind {
	case KindIncome, KindExpense:
		return nil
	case KindTransfer:
		return validationf("transfers must be created through the transfer operation")
	}
	return validationf("kind must be income or expense")
}

// =============================================================================
// CREATE
// =============================================================================

// CreateEntry records an income or expense and applies it to its account.
func (e *Engine) CreateEntry(ctx context.Context, owner UserID, in NewEntry) (*Entry, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := validateEntryKind(in.Kind); err != nil {
		return nil, err
	}
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}
	if in.Division == "" {
		in.Division = DivisionPersonal
	}
	if !in.Division.Valid() {
		return nil, validationf("division must be personal or office")
	}
	if in.CategoryID == "" {
		return nil, validationf("category is required")
	}

	now := e.now()
	entry := Entry{
		ID:          EntryID(e.NewID()),
		OwnerID:     owner,
		Kind:        in.Kind,
		Amount:      in.Amount,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Date:        in.Date,
		Division:    in.Division,
		AccountID:   in.AccountID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if entry.Date.IsZero() {
		entry.Date = now
	}

	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := categoryForKind(ctx, s, owner, entry.CategoryID, entry.Kind); err != nil {
			return err
		}
		if entry.AccountID != "" {
			if _, err := ownedAccount(ctx, s, owner, entry.AccountID); err != nil {
				return err
			}
		}
		if err := s.InsertEntry(ctx, entry); err != nil {
			return err
		}
		return ApplyDeltas(ctx, s, EntryDeltas(entry, Apply))
	})
	if err != nil {
		return nil, internal("create transaction", err)
	}
	return &entry, nil
}

// =============================================================================
// READ
// =============================================================================

// GetEntry returns a non-deleted entry owned by owner.
func (e *Engine) GetEntry(ctx context.Context, owner UserID, id EntryID) (*Entry, error) {
	var en *Entry
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		en, err = ownedEntry(ctx, s, owner, id)
		return err
	})
	if err != nil {
		return nil, internal("get transaction", err)
	}
	return en, nil
}

// ListEntries returns the owner's entries matching filter. The owner on
// the filter is always replaced by owner.
func (e *Engine) ListEntries(ctx context.Context, owner UserID, filter EntryFilter) ([]Entry, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	filter.OwnerID = owner
	var entries []Entry
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		entries, err = s.ListEntries(ctx, filter)
		return err
	})
	if err != nil {
		return nil, internal("list transactions", err)
	}
	return entries, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// UpdateEntry applies patch within the edit window and reconciles the
// affected balances with net deltas.
func (e *Engine) UpdateEntry(ctx context.Context, owner UserID, id EntryID, patch EntryPatch) (*Entry, error) {
	var updated Entry
	err := e.Store.WithTx(ctx, func(s Store) error {
		old, err := ownedEntry(ctx, s, owner, id)
		if err != nil {
			return err
		}
		if err := e.Window.CheckEdit(*old); err != nil {
			return err
		}

		if old.IsTransferLeg() {
			updated, err = e.patchTransferLeg(ctx, s, *old, patch)
			return err
		}

		updated = *old
		if patch.Kind != nil {
			if err := validateEntryKind(*patch.Kind); err != nil {
				return err
			}
			updated.Kind = *patch.Kind
		}
		if patch.Amount != nil {
			if err := validateAmount(*patch.Amount); err != nil {
				return err
			}
			updated.Amount = *patch.Amount
		}
		if patch.Description != nil {
			if err := validateDescription(*patch.Description); err != nil {
				return err
			}
			updated.Description = *patch.Description
		}
		if patch.Date != nil && !patch.Date.IsZero() {
			updated.Date = *patch.Date
		}
		if patch.Division != nil {
			if !patch.Division.Valid() {
				return validationf("division must be personal or office")
			}
			updated.Division = *patch.Division
		}
		if patch.CategoryID != nil {
			updated.CategoryID = *patch.CategoryID
		}
		if updated.Kind != old.Kind || updated.CategoryID != old.CategoryID {
			if _, err := categoryForKind(ctx, s, owner, updated.CategoryID, updated.Kind); err != nil {
				return err
			}
		}
		if patch.AccountID != nil && *patch.AccountID != old.AccountID {
			if *patch.AccountID != "" {
				if _, err := ownedAccount(ctx, s, owner, *patch.AccountID); err != nil {
					return err
				}
			}
			updated.AccountID = *patch.AccountID
		}

		updated.UpdatedAt = e.now()
		if err := s.UpdateEntry(ctx, updated); err != nil {
			return err
		}
		return ApplyDeltas(ctx, s, UpdateDeltas(*old, updated))
	})
	if err != nil {
		return nil, internal("update transaction", err)
	}
	return &updated, nil
}

// patchTransferLeg edits description and date only. Anything that would
// move money is rejected.
func (e *Engine) patchTransferLeg(ctx context.Context, s Store, old Entry, patch EntryPatch) (Entry, error) {
	if (patch.Kind != nil && *patch.Kind != old.Kind) ||
		(patch.Amount != nil && !patch.Amount.Equal(old.Amount)) ||
		(patch.AccountID != nil && *patch.AccountID != old.AccountID) ||
		(patch.CategoryID != nil && *patch.CategoryID != old.CategoryID) ||
		(patch.Division != nil && *patch.Division != old.Division) {
		return Entry{}, validationf("only description and date can be changed on a transfer")
	}

	now := e.now()
	updated := old
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return Entry{}, err
		}
		updated.Description = *patch.Description
	}
	dateChanged := patch.Date != nil && !patch.Date.IsZero() && !patch.Date.Equal(old.Date)
	if dateChanged {
		updated.Date = *patch.Date
	}
	updated.UpdatedAt = now
	if err := s.UpdateEntry(ctx, updated); err != nil {
		return Entry{}, err
	}

	if dateChanged && old.LinkedEntryID != "" {
		linked, err := s.GetEntry(ctx, old.LinkedEntryID)
		if err != nil {
			return Entry{}, err
		}
		if linked != nil {
			linked.Date = updated.Date
			linked.UpdatedAt = now
			if err := s.UpdateEntry(ctx, *linked); err != nil {
				return Entry{}, err
			}
		}
	}
	return updated, nil
}

// =============================================================================
// DELETE / RESTORE
// =============================================================================

// DeleteEntry soft-deletes an entry within the edit window and reverses its
// balance effect. Deleting a transfer leg deletes the whole pair.
func (e *Engine) DeleteEntry(ctx context.Context, owner UserID, id EntryID) (*DeletionReceipt, error) {
	var receipt DeletionReceipt
	err := e.Store.WithTx(ctx, func(s Store) error {
		en, err := ownedEntry(ctx, s, owner, id)
		if err != nil {
			return err
		}
		if err := e.Window.CheckEdit(*en); err != nil {
			return err
		}

		group, err := withCounterpart(ctx, s, *en, false)
		if err != nil {
			return err
		}
		now := e.now()
		for _, g := range group {
			g.Deleted = true
			g.DeletedAt = &now
			g.UpdatedAt = now
			if err := s.UpdateEntry(ctx, g); err != nil {
				return err
			}
			if err := ApplyDeltas(ctx, s, EntryDeltas(g, Reverse)); err != nil {
				return err
			}
		}
		receipt = DeletionReceipt{
			EntryID:       en.ID,
			LinkedEntryID: en.LinkedEntryID,
			DeletedAt:     now,
			UndoUntil:     e.Window.UndoDeadline(now),
		}
		return nil
	})
	if err != nil {
		return nil, internal("delete transaction", err)
	}
	return &receipt, nil
}

// RestoreEntry undoes a soft-delete within the undo window and re-applies
// the original balance effect.
func (e *Engine) RestoreEntry(ctx context.Context, owner UserID, id EntryID) (*Entry, error) {
	var restored Entry
	err := e.Store.WithTx(ctx, func(s Store) error {
		en, err := s.GetEntry(ctx, id)
		if err != nil {
			return err
		}
		if en == nil || en.OwnerID != owner || !en.Deleted {
			return notFoundf("deleted transaction %s not found", id)
		}
		if err := e.Window.CheckUndo(*en); err != nil {
			return err
		}

		group, err := withCounterpart(ctx, s, *en, true)
		if err != nil {
			return err
		}
		now := e.now()
		for i, g := range group {
			g.Deleted = false
			g.DeletedAt = nil
			g.UpdatedAt = now
			if err := s.UpdateEntry(ctx, g); err != nil {
				return err
			}
			if err := ApplyDeltas(ctx, s, EntryDeltas(g, Apply)); err != nil {
				return err
			}
			if i == 0 {
				restored = g
			}
		}
		return nil
	})
	if err != nil {
		return nil, internal("restore transaction", err)
	}
	return &restored, nil
}

// withCounterpart returns en followed by its transfer counterpart when the
// counterpart is in the same deleted state as en.
func withCounterpart(ctx context.Context, s Store, en Entry, deleted bool) ([]Entry, error) {
	group := []Entry{en}
	if !en.IsTransferLeg() || en.LinkedEntryID == "" {
		return group, nil
	}
	linked, err := s.GetEntry(ctx, en.LinkedEntryID)
	if err != nil {
		return nil, err
	}
	if linked != nil && linked.Deleted == deleted {
		group = append(group, *linked)
	}
	return group, nil
}
