/*
balance.go - Balance synchronizer

PURPOSE:
  Computes the balance delta an entry state transition implies for the
  account(s) it touches, and applies those deltas through the store's
  atomic increment. The computation is pure; only ApplyDeltas writes.

SIGNED EFFECT:
  income                +amount on its account
  expense               -amount on its account
  transfer withdrawal   -amount (expense-equivalent)
  transfer deposit      +amount (income-equivalent)

TRANSITIONS (one call per logical transition):
  create   EntryDeltas(e, Apply)
  delete   EntryDeltas(e, Reverse)
  restore  EntryDeltas(e, Apply)
  update   UpdateDeltas(old, new)

UPDATE SEMANTICS:
  Same account: a single net delta (newSigned - oldSigned), so readers never
  see the intermediate reversed state.
  Different account: reverse on the old account, apply on the new one.

NO ACCOUNT:
  Entries are not required to reference an account. An empty AccountID
  produces no delta.

SEE ALSO:
  - entry.go: Calls these helpers inside WithTx
  - transfer.go: Applies one delta per leg
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction selects whether an effect is applied or undone.
type Direction int

const (
	Apply Direction = iota
	Reverse
)

// Delta is a signed change to one account balance.
type Delta struct {
	AccountID AccountID
	Amount    decimal.Decimal
}

// ApplyEffect is the primitive: the delta that applying (or reversing) an
// income or expense of amount implies for accountID. Transfer kind and an
// empty account produce no delta.
func ApplyEffect(accountID AccountID, amount decimal.Decimal, kind Kind, dir Direction) (Delta, bool) {
	if accountID == "" {
		return Delta{}, false
	}
	var signed decimal.Decimal
	switch kind {
	case KindIncome:
		signed = amount
	case KindExpense:
		signed = amount.Neg()
	default:
		return Delta{}, false
	}
	if dir == Reverse {
		signed = signed.Neg()
	}
	return Delta{AccountID: accountID, Amount: signed}, true
}

// effectKind maps transfer legs onto their income/expense equivalent.
func effectKind(e Entry) Kind {
	if e.Kind != KindTransfer {
		return e.Kind
	}
	if e.Leg == LegDeposit {
		return KindIncome
	}
	return KindExpense
}

// SignedEffect is the contribution of e to its account's balance.
func SignedEffect(e Entry) decimal.Decimal {
	d, ok := ApplyEffect(e.AccountID, e.Amount, effectKind(e), Apply)
	if !ok {
		return decimal.Zero
	}
	return d.Amount
}

// EntryDeltas returns the deltas for creating (Apply), deleting (Reverse)
// or restoring (Apply) e.
func EntryDeltas(e Entry, dir Direction) []Delta {
	d, ok := ApplyEffect(e.AccountID, e.Amount, effectKind(e), dir)
	if !ok {
		return nil
	}
	return []Delta{d}
}

// UpdateDeltas returns the deltas for replacing old with updated.
func UpdateDeltas(old, updated Entry) []Delta {
	if old.AccountID != updated.AccountID {
		return append(EntryDeltas(old, Reverse), EntryDeltas(updated, Apply)...)
	}
	if updated.AccountID == "" {
		return nil
	}
	net := SignedEffect(updated).Sub(SignedEffect(old))
	if net.IsZero() {
		return nil
	}
	return []Delta{{AccountID: updated.AccountID, Amount: net}}
}

// ApplyDeltas writes deltas through the store's atomic increment.
// Call it with the Store handed to WithTx so the deltas commit together
// with the entry writes.
func ApplyDeltas(ctx context.Context, s Store, deltas []Delta) error {
	for _, d := range deltas {
		if d.Amount.IsZero() {
			continue
		}
		if err := s.AdjustBalance(ctx, d.AccountID, d.Amount); err != nil {
			return fmt.Errorf("adjust balance of %s: %w", d.AccountID, err)
		}
	}
	return nil
}
