/*
transfer.go - Transfer orchestrator

PURPOSE:
  Moves money between two accounts of the same owner by creating a linked
  pair of transfer entries: a withdrawal leg on the source account and a
  deposit leg on the destination account.

PRECONDITIONS (checked in order, first failure wins):
  1. Both accounts exist, belong to the caller and are active  -> NOT_FOUND
  2. From != To                                                -> VALIDATION_ERROR
  3. Amount > 0                                                -> VALIDATION_ERROR

ALGORITHM (one WithTx unit):
  1. Resolve the system Transfer category (get-or-create by natural key)
  2. Insert withdrawal leg ("Transfer to <to.name>" unless described)
  3. Insert deposit leg ("Transfer from <from.name>"), linked to withdrawal
  4. Back-patch the withdrawal leg's link to the deposit leg
  5. Decrement from.balance, increment to.balance

  A failure at any step rolls back all of it: no orphan leg, no one-sided
  balance change.

DIVISION:
  Both legs are tagged personal regardless of anything else. Aggregation
  by division depends on this tag, so it is kept as observed.

OVERDRAFT:
  There is no minimum-balance check; the source account may go negative.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest is the input to Transfer. Date defaults to now.
type TransferRequest struct {
	From        AccountID
	To          AccountID
	Amount      decimal.Decimal
	Description string
	Date        time.Time
}

// TransferResult holds both committed legs.
type TransferResult struct {
	Withdrawal Entry
	Deposit    Entry
}

// Transfer creates a withdrawal/deposit pair and moves the balance.
func (e *Engine) Transfer(ctx context.Context, owner UserID, req TransferRequest) (*TransferResult, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var result TransferResult
	err := e.Store.WithTx(ctx, func(s Store) error {
		from, err := ownedAccount(ctx, s, owner, req.From)
		if err != nil {
			return err
		}
		to, err := ownedAccount(ctx, s, owner, req.To)
		if err != nil {
			return err
		}
		if from.ID == to.ID {
			return validationf("cannot transfer to the same account")
		}
		if !req.Amount.IsPositive() {
			return validationf("transfer amount must be greater than zero")
		}
		if err := validateDescription(req.Description); err != nil {
			return err
		}

		category, err := e.transferCategory(ctx, s)
		if err != nil {
			return err
		}

		now := e.now()
		date := req.Date
		if date.IsZero() {
			date = now
		}
		leg := func(account *Account, direction LegDirection, desc string) Entry {
			return Entry{
				ID:          EntryID(e.NewID()),
				OwnerID:     owner,
				Kind:        KindTransfer,
				Amount:      req.Amount,
				CategoryID:  category.ID,
				Description: desc,
				Date:        date,
				Division:    DivisionPersonal,
				AccountID:   account.ID,
				Leg:         direction,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
		}

		withdrawalDesc, depositDesc := req.Description, req.Description
		if withdrawalDesc == "" {
			withdrawalDesc = fmt.Sprintf("Transfer to %s", to.Name)
			depositDesc = fmt.Sprintf("Transfer from %s", from.Name)
		}

		withdrawal := leg(from, LegWithdrawal, withdrawalDesc)
		if err := s.InsertEntry(ctx, withdrawal); err != nil {
			return err
		}

		deposit := leg(to, LegDeposit, depositDesc)
		deposit.LinkedEntryID = withdrawal.ID
		if err := s.InsertEntry(ctx, deposit); err != nil {
			return err
		}

		withdrawal.LinkedEntryID = deposit.ID
		if err := s.UpdateEntry(ctx, withdrawal); err != nil {
			return err
		}

		deltas := append(EntryDeltas(withdrawal, Apply), EntryDeltas(deposit, Apply)...)
		if err := ApplyDeltas(ctx, s, deltas); err != nil {
			return err
		}

		result = TransferResult{Withdrawal: withdrawal, Deposit: deposit}
		return nil
	})
	if err != nil {
		return nil, internal("transfer", err)
	}
	return &result, nil
}
