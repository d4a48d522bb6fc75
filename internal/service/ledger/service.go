// Package ledger implements the chart-of-accounts rules: immutable identity
// fields, editable descriptive fields, soft-deletes, and unique codes.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/storeops/finledger/internal/errs"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/slug"
)

// ErrNameExists indicates a group with the same normalized name already
// exists for the type.
var ErrNameExists = errors.New("group name already exists for type")

// ErrCodeExists indicates a ledger with the same code already exists.
var ErrCodeExists = errors.New("ledger code already exists")

type Repo interface {
	ListGroups(ctx context.Context) ([]finance.AccountGroup, error)
	GetGroup(ctx context.Context, id uuid.UUID) (finance.AccountGroup, error)
	ListLedgers(ctx context.Context) ([]finance.Ledger, error)
	GetLedger(ctx context.Context, id uuid.UUID) (finance.Ledger, error)
}

type Writer interface {
	CreateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error)
	UpdateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error)
	CreateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error)
	UpdateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error)
}

type Service interface {
	CreateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error)
	UpdateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error)
	ListGroups(ctx context.Context) ([]finance.AccountGroup, error)
	GetGroup(ctx context.Context, id uuid.UUID) (finance.AccountGroup, error)

	ValidateCreateLedger(l finance.Ledger) error
	CreateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error)
	UpdateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error)
	ListLedgers(ctx context.Context) ([]finance.Ledger, error)
	GetLedger(ctx context.Context, id uuid.UUID) (finance.Ledger, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo         Repo
	writer       Writer
	baseCurrency string
}

// New constructs the chart service. baseCurrency fills ledgers created
// without an explicit currency.
func New(repo Repo, writer Writer, baseCurrency string) Service {
	return &service{repo: repo, writer: writer, baseCurrency: strings.ToUpper(baseCurrency)}
}

func (s *service) CreateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error) {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return finance.AccountGroup{}, fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if !g.Type.Valid() {
		return finance.AccountGroup{}, fmt.Errorf("%w: invalid group type %q", errs.ErrInvalid, g.Type)
	}
	existing, err := s.repo.ListGroups(ctx)
	if err != nil {
		return finance.AccountGroup{}, err
	}
	desired := slug.Slugify(g.Name)
	for _, other := range existing {
		if other.Type == g.Type && slug.Slugify(other.Name) == desired {
			return finance.AccountGroup{}, ErrNameExists
		}
	}
	g.ID = uuid.New()
	g.Active = true
	return s.writer.CreateGroup(ctx, g)
}

// UpdateGroup applies allowed changes to name/description/active.
// Type is immutable after creation.
func (s *service) UpdateGroup(ctx context.Context, g finance.AccountGroup) (finance.AccountGroup, error) {
	if g.ID == uuid.Nil {
		return finance.AccountGroup{}, errs.ErrInvalid
	}
	current, err := s.repo.GetGroup(ctx, g.ID)
	if err != nil {
		return finance.AccountGroup{}, err
	}
	if g.Type != "" && g.Type != current.Type {
		return finance.AccountGroup{}, errs.ErrImmutable
	}
	g.Type = current.Type
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		g.Name = current.Name
	}
	if g.Name != current.Name {
		existing, err := s.repo.ListGroups(ctx)
		if err != nil {
			return finance.AccountGroup{}, err
		}
		desired := slug.Slugify(g.Name)
		for _, other := range existing {
			if other.ID != g.ID && other.Type == g.Type && slug.Slugify(other.Name) == desired {
				return finance.AccountGroup{}, ErrNameExists
			}
		}
	}
	return s.writer.UpdateGroup(ctx, g)
}

func (s *service) ListGroups(ctx context.Context) ([]finance.AccountGroup, error) {
	return s.repo.ListGroups(ctx)
}

func (s *service) GetGroup(ctx context.Context, id uuid.UUID) (finance.AccountGroup, error) {
	if id == uuid.Nil {
		return finance.AccountGroup{}, errs.ErrInvalid
	}
	return s.repo.GetGroup(ctx, id)
}

func (s *service) ValidateCreateLedger(l finance.Ledger) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", errs.ErrInvalid)
	}
	if l.GroupID == uuid.Nil {
		return fmt.Errorf("%w: group_id is required", errs.ErrInvalid)
	}
	if !slug.IsSlug(slug.Slugify(l.Name)) {
		return fmt.Errorf("%w: name does not normalize to a valid code", errs.ErrInvalid)
	}
	if l.OpeningBalanceMinor < 0 {
		return fmt.Errorf("%w: opening balance must be >= 0", errs.ErrInvalid)
	}
	return nil
}

func (s *service) CreateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error) {
	l.Name = strings.TrimSpace(l.Name)
	l.Currency = strings.ToUpper(strings.TrimSpace(l.Currency))
	if l.Currency == "" {
		l.Currency = s.baseCurrency
	}
	if err := s.ValidateCreateLedger(l); err != nil {
		return finance.Ledger{}, err
	}
	group, err := s.repo.GetGroup(ctx, l.GroupID)
	if err != nil {
		return finance.Ledger{}, err
	}
	if !group.Active {
		return finance.Ledger{}, fmt.Errorf("%w: group is inactive", errs.ErrInvalid)
	}
	l.Code = slug.Slugify(l.Name)
	existing, err := s.repo.ListLedgers(ctx)
	if err != nil {
		return finance.Ledger{}, err
	}
	for _, other := range existing {
		if other.Code == l.Code {
			return finance.Ledger{}, ErrCodeExists
		}
	}
	l.ID = uuid.New()
	l.Active = true
	return s.writer.CreateLedger(ctx, l)
}

// UpdateLedger applies allowed changes to name/description/metadata/active.
// GroupID and Currency are immutable; corrections happen via new ledgers and
// offsetting transactions.
func (s *service) UpdateLedger(ctx context.Context, l finance.Ledger) (finance.Ledger, error) {
	if l.ID == uuid.Nil {
		return finance.Ledger{}, errs.ErrInvalid
	}
	current, err := s.repo.GetLedger(ctx, l.ID)
	if err != nil {
		return finance.Ledger{}, err
	}
	if l.GroupID != uuid.Nil && l.GroupID != current.GroupID {
		return finance.Ledger{}, errs.ErrImmutable
	}
	if l.Currency != "" && !strings.EqualFold(l.Currency, current.Currency) {
		return finance.Ledger{}, errs.ErrImmutable
	}
	l.GroupID = current.GroupID
	l.Currency = current.Currency
	l.Code = current.Code
	l.OpeningBalanceMinor = current.OpeningBalanceMinor
	l.CreatedBy = current.CreatedBy
	l.CreatedAt = current.CreatedAt
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		l.Name = current.Name
	}
	return s.writer.UpdateLedger(ctx, l)
}

func (s *service) ListLedgers(ctx context.Context) ([]finance.Ledger, error) {
	return s.repo.ListLedgers(ctx)
}

func (s *service) GetLedger(ctx context.Context, id uuid.UUID) (finance.Ledger, error) {
	if id == uuid.Nil {
		return finance.Ledger{}, errs.ErrInvalid
	}
	return s.repo.GetLedger(ctx, id)
}

// Deactivate sets Active=false (soft delete). Historical entries remain
// visible to reports; new entries against the ledger are rejected.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	l, err := s.repo.GetLedger(ctx, id)
	if err != nil {
		return err
	}
	l.Active = false
	if _, err := s.writer.UpdateLedger(ctx, l); err != nil {
		return err
	}
	return nil
}
