package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokoerp/sokoerp/internal/audit"
	"github.com/sokoerp/sokoerp/internal/shared"
)

// Service coordinates account maintenance and ledger reads. Financial
// events for sales are appended by the sales workflow inside its own
// transaction; this service only appends manual adjustments.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// AccountInput carries the mutable account fields.
type AccountInput struct {
	Name     string      `json:"name" validate:"required,max=120"`
	Type     AccountType `json:"account_type" validate:"required"`
	IsActive bool        `json:"is_active"`
	ActorID  uuid.UUID   `json:"-"`
}

// AdjustmentInput describes one manual ledger correction.
type AdjustmentInput struct {
	AccountID   uuid.UUID       `json:"account_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	ActorID     uuid.UUID       `json:"-"`
}

// CreateAccount inserts an account and audits the creation.
func (s *Service) CreateAccount(ctx context.Context, input AccountInput) (Account, error) {
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		created, err = tx.CreateAccount(ctx, Account{
			Name:     input.Name,
			Type:     input.Type,
			IsActive: input.IsActive,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "Account",
			EntityID:   created.ID,
			After:      created,
		})
	})
	if err != nil {
		return Account{}, err
	}
	return created, nil
}

// UpdateAccount rewrites an account and audits before and after states.
func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, input AccountInput) (Account, error) {
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		updated = before
		updated.Name = input.Name
		updated.Type = input.Type
		updated.IsActive = input.IsActive
		if err := tx.UpdateAccount(ctx, updated); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionUpdate,
			EntityType: "Account",
			EntityID:   id,
			Before:     before,
			After:      updated,
		})
	})
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

// DeleteAccount removes an account that no entry references. Referenced
// accounts are refused so history keeps resolving.
func (s *Service) DeleteAccount(ctx context.Context, id, actorID uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		before, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		referenced, err := tx.AccountReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: account %q has ledger entries", shared.ErrReferentialIntegrity, before.Name)
		}
		if err := tx.DeleteAccount(ctx, id); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionDelete,
			EntityType: "Account",
			EntityID:   id,
			Before:     before,
		})
	})
}

// GetAccount fetches one account.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// GetAccountByName fetches one account by its unique name.
func (s *Service) GetAccountByName(ctx context.Context, name string) (Account, error) {
	return s.repo.GetAccountByName(ctx, name)
}

// ListAccounts lists accounts.
func (s *Service) ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.ListAccounts(ctx, activeOnly)
}

// PostAdjustment appends one manual ADJUSTMENT entry against an active
// account and audits it in the same transaction.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput) (Entry, error) {
	if input.Amount.IsZero() {
		return Entry{}, fmt.Errorf("%w: adjustment amount must be non zero", shared.ErrValidation)
	}
	referenceID := uuid.New()
	if input.ReferenceID != nil {
		referenceID = *input.ReferenceID
	}
	var stored Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		account, err := tx.GetAccount(ctx, input.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return fmt.Errorf("%w: account %q is inactive", shared.ErrValidation, account.Name)
		}
		stored, err = tx.AppendEntry(ctx, Entry{
			AccountID:     input.AccountID,
			Amount:        input.Amount,
			ReferenceKind: ReferenceAdjustment,
			ReferenceID:   referenceID,
		})
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:    input.ActorID,
			Action:     audit.ActionCreate,
			EntityType: "LedgerEntry",
			EntityID:   stored.ID,
			After:      stored,
		})
	})
	if err != nil {
		return Entry{}, err
	}
	return stored, nil
}

// AccountBalance returns the derived balance for one account; zero when
// it has no entries.
func (s *Service) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Zero, fmt.Errorf("%w: account required", shared.ErrValidation)
	}
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	return s.repo.AccountBalance(ctx, accountID)
}

// Entries lists raw ledger events matching the filter.
func (s *Service) Entries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}
