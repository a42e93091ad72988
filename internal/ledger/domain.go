package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// AccountType follows the usual accounting split.
type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
)

// Account is a chart-of-accounts row. The ledger is single-entry: each
// entry touches exactly one account and the balance is the sum of its
// signed amounts.
type Account struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Type      AccountType `json:"account_type"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

// Validate checks account fields before persistence.
func (a Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: account name required", shared.ErrValidation)
	}
	switch a.Type {
	case AccountAsset, AccountLiability, AccountIncome, AccountExpense:
		return nil
	default:
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, a.Type)
	}
}

// ReferenceKind names the business transaction behind an entry.
type ReferenceKind string

const (
	ReferenceSale       ReferenceKind = "SALE"
	ReferenceRefund     ReferenceKind = "REFUND"
	ReferenceAdjustment ReferenceKind = "ADJUSTMENT"
)

// Entry is one immutable ledger event. Amount is signed; interpretation
// depends on the account type.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	ReferenceKind ReferenceKind   `json:"reference_kind"`
	ReferenceID   uuid.UUID       `json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate enforces the append contract: a non-zero signed amount and a
// reference to the originating transaction.
func (e Entry) Validate() error {
	if e.AccountID == uuid.Nil {
		return fmt.Errorf("%w: ledger account required", shared.ErrValidation)
	}
	if e.Amount.IsZero() {
		return fmt.Errorf("%w: ledger amount must be non zero", shared.ErrValidation)
	}
	switch e.ReferenceKind {
	case ReferenceSale, ReferenceRefund, ReferenceAdjustment:
	default:
		return fmt.Errorf("%w: unknown reference kind %q", shared.ErrValidation, e.ReferenceKind)
	}
	if e.ReferenceID == uuid.Nil {
		return fmt.Errorf("%w: ledger entry requires a reference id", shared.ErrValidation)
	}
	return nil
}

// EntryFilter narrows entry queries.
type EntryFilter struct {
	AccountID     *uuid.UUID
	ReferenceKind ReferenceKind
	ReferenceID   *uuid.UUID
	From          time.Time
	To            time.Time
	Limit         int
}
