package ledger

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// NewAccount is the input to CreateAccount.
type NewAccount struct {
	Name    string
	Type    AccountType
	Balance decimal.Decimal
}

// AccountPatch holds the user-editable account fields. Nil fields are left
// unchanged. A Balance here is an authoritative override: it replaces the
// stored balance without going through the synchronizer.
type AccountPatch struct {
	Name    *string
	Type    *AccountType
	Balance *decimal.Decimal
}

func (e *Engine) newAccount(owner UserID, name string, typ AccountType) Account {
	now := e.now()
	return Account{
		ID:        AccountID(e.NewID()),
		OwnerID:   owner,
		Name:      name,
		Type:      typ,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func normalizeAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationf("account name is required")
	}
	if utf8.RuneCountInString(name) > MaxAccountNameLength {
		return "", validationf("account name must be at most %d characters", MaxAccountNameLength)
	}
	return name, nil
}

// CreateAccount opens an account. Names are unique per owner, ignoring case.
func (e *Engine) CreateAccount(ctx context.Context, owner UserID, in NewAccount) (*Account, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	name, err := normalizeAccountName(in.Name)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, validationf("account type must be one of bank, cash, wallet")
	}

	a := e.newAccount(owner, name, in.Type)
	a.Balance = in.Balance
	err = e.Store.WithTx(ctx, func(s Store) error {
		existing, err := s.FindAccountByName(ctx, owner, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return conflictf("account %q already exists", name)
		}
		return s.InsertAccount(ctx, a)
	})
	if err != nil {
		return nil, internal("create account", err)
	}
	return &a, nil
}

// GetAccount returns an active account owned by owner.
func (e *Engine) GetAccount(ctx context.Context, owner UserID, id AccountID) (*Account, error) {
	var a *Account
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		a, err = ownedAccount(ctx, s, owner, id)
		return err
	})
	if err != nil {
		return nil, internal("get account", err)
	}
	return a, nil
}

// ListAccounts returns the owner's active accounts.
func (e *Engine) ListAccounts(ctx context.Context, owner UserID) ([]Account, error) {
	var accounts []Account
	err := e.Store.View(ctx, func(s Store) error {
		var err error
		accounts, err = s.ListAccounts(ctx, owner, false)
		return err
	})
	if err != nil {
		return nil, internal("list accounts", err)
	}
	return accounts, nil
}

// UpdateAccount edits name, type and/or balance.
func (e *Engine) UpdateAccount(ctx context.Context, owner UserID, id AccountID, patch AccountPatch) (*Account, error) {
	var updated Account
	err := e.Store.WithTx(ctx, func(s Store) error {
		a, err := ownedAccount(ctx, s, owner, id)
		if err != nil {
			return err
		}
		updated = *a
		if patch.Name != nil {
			name, err := normalizeAccountName(*patch.Name)
			if err != nil {
				return err
			}
			if !strings.EqualFold(name, a.Name) {
				existing, err := s.FindAccountByName(ctx, owner, name)
				if err != nil {
					return err
				}
				if existing != nil && existing.ID != a.ID {
					return conflictf("account %q already exists", name)
				}
			}
			updated.Name = name
		}
		if patch.Type != nil {
			if !patch.Type.Valid() {
				return validationf("account type must be one of bank, cash, wallet")
			}
			updated.Type = *patch.Type
		}
		if patch.Balance != nil {
			updated.Balance = *patch.Balance
		}
		updated.UpdatedAt = e.now()
		return s.UpdateAccount(ctx, updated)
	})
	if err != nil {
		return nil, internal("update account", err)
	}
	return &updated, nil
}

// DeleteAccount soft-deletes an account. Its entries and balance history
// are kept; it just stops appearing in active listings.
func (e *Engine) DeleteAccount(ctx context.Context, owner UserID, id AccountID) error {
	err := e.Store.WithTx(ctx, func(s Store) error {
		a, err := ownedAccount(ctx, s, owner, id)
		if err != nil {
			return err
		}
		a.Deleted = true
		a.UpdatedAt = e.now()
		return s.UpdateAccount(ctx, *a)
	})
	return internal("delete account", err)
}
