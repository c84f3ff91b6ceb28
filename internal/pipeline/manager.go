package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/domain"
)

// DefaultStages are created by SeedDefaults on an empty pipeline
var DefaultStages = []struct {
	Name  string
	Color string
}{
	{"Lead", "bg-blue-500"},
	{"Prospect", "bg-yellow-500"},
	{"Customer", "bg-green-500"},
}

// Options tunes a Manager
type Options struct {
	// ReloadStagesOnLock reloads the stage list after acquiring the
	// structural lock. Set when the lock is shared with other replicas.
	ReloadStagesOnLock bool
	// LockLease bounds a structural operation once the lock is held.
	// Set it to the shared lock's lease so the lease cannot lapse mid-operation.
	LockLease time.Duration
}

// DeleteStageOptions controls what happens to customers of a deleted stage
type DeleteStageOptions struct {
	// ReassignTo moves referencing customers to this stage before deleting.
	// Without it, deleting a referenced stage fails with ErrStageInUse.
	ReassignTo *uuid.UUID
}

// MoveResult describes the outcome of MoveCustomer
type MoveResult struct {
	Customer    CustomerView
	FromStageID *uuid.UUID
	Moved       bool
}

// DeleteStageResult lists the customers moved off a deleted stage
type DeleteStageResult struct {
	Stage      domain.Stage
	Reassigned []CustomerView
}

// Manager is the only component performing cross-entity pipeline operations.
// Structural stage operations (create, delete, reorder) run one at a time
// through the Locker; customer moves and edits are not serialized.
type Manager struct {
	stages    *Stages
	customers *Customers
	locker    Locker
	logger    *zap.Logger
	opts      Options
}

// NewManager composes the stage and customer caches
func NewManager(stages *Stages, customers *Customers, locker Locker, logger *zap.Logger, opts Options) *Manager {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		stages:    stages,
		customers: customers,
		locker:    locker,
		logger:    logger,
		opts:      opts,
	}
}

// Stages exposes the stage cache
func (m *Manager) Stages() *Stages { return m.stages }

// Customers exposes the customer cache
func (m *Manager) Customers() *Customers { return m.customers }

// Refresh reloads stages, then customers. Each cache keeps its previous
// contents when its load fails.
func (m *Manager) Refresh(ctx context.Context) error {
	_, stageErr := m.stages.Load(ctx)
	_, customerErr := m.customers.Load(ctx)
	return errors.Join(stageErr, customerErr)
}

// GetBoard groups the cached customers under the cached stages
func (m *Manager) GetBoard(filter BoardFilter) Board {
	return buildBoard(m.stages.List(), m.customers.List(), filter)
}

// CreateStage appends a stage at the end of the pipeline
func (m *Manager) CreateStage(ctx context.Context, name, color string) (domain.Stage, error) {
	var created domain.Stage
	err := m.structural(ctx, func(ctx context.Context) error {
		var err error
		created, err = m.stages.Create(ctx, name, color)
		return err
	})
	return created, err
}

// UpdateStage renames or recolors a stage
func (m *Manager) UpdateStage(ctx context.Context, id uuid.UUID, name, color string) (domain.Stage, error) {
	return m.stages.Update(ctx, id, name, color)
}

// DeleteStage deletes a stage, optionally reassigning its customers first.
// Reassignment moves are committed one by one; a failure part way leaves
// the already moved customers in the target stage and the stage in place.
func (m *Manager) DeleteStage(ctx context.Context, id uuid.UUID, opts DeleteStageOptions) (DeleteStageResult, error) {
	result := DeleteStageResult{}
	err := m.structural(ctx, func(ctx context.Context) error {
		stage, ok := m.stages.Get(id)
		if !ok {
			return ErrNotFound
		}
		result.Stage = stage

		// Other replicas may have placed customers in the stage since the last load
		if _, err := m.customers.Load(ctx); err != nil {
			return err
		}
		refs := m.customers.ReferencingStage(id)
		if len(refs) > 0 {
			if opts.ReassignTo == nil {
				return fmt.Errorf("%w: %d customers in stage %q", ErrStageInUse, len(refs), stage.Name)
			}
			target := *opts.ReassignTo
			if target == id || !m.stages.Exists(target) {
				return ErrInvalidTarget
			}
			for _, ref := range refs {
				moved, changed, err := m.customers.MoveToStage(ctx, ref.ID, target)
				if err != nil {
					return err
				}
				if changed {
					result.Reassigned = append(result.Reassigned, moved)
				}
			}
		}

		return m.stages.Delete(ctx, id)
	})
	return result, err
}

// ReorderStages rewrites stage positions to follow orderedIDs, which must be
// a permutation of exactly the live stage ids. *PartialReorderError from a
// sequential store is returned as is.
func (m *Manager) ReorderStages(ctx context.Context, orderedIDs []uuid.UUID) ([]domain.Stage, error) {
	var stages []domain.Stage
	err := m.structural(ctx, func(ctx context.Context) error {
		if err := checkPermutation(m.stages.IDs(), orderedIDs); err != nil {
			return err
		}
		var err error
		stages, err = m.stages.Reorder(ctx, orderedIDs)
		return err
	})
	if stages == nil {
		stages = m.stages.List()
	}
	return stages, err
}

// MoveCustomer moves a customer to toStageID. When fromStageID is given it
// must match the customer's current stage, otherwise ErrStaleMove is returned.
// Moving a customer to the stage it is already in is a no-op.
func (m *Manager) MoveCustomer(ctx context.Context, customerID uuid.UUID, fromStageID *uuid.UUID, toStageID uuid.UUID) (MoveResult, error) {
	if !m.stages.Exists(toStageID) {
		return MoveResult{}, ErrInvalidTarget
	}

	current, ok := m.customers.Get(customerID)
	if !ok {
		return MoveResult{}, ErrNotFound
	}
	result := MoveResult{Customer: current, FromStageID: current.StageID}

	if current.InStage(toStageID) {
		return result, nil
	}
	if fromStageID != nil && !current.InStage(*fromStageID) {
		return result, ErrStaleMove
	}

	moved, changed, err := m.customers.MoveToStage(ctx, customerID, toStageID)
	if err != nil {
		return result, err
	}
	result.Customer = moved
	result.Moved = changed

	m.logger.Debug("Customer moved",
		zap.String("customer_id", customerID.String()),
		zap.String("to_stage_id", toStageID.String()),
	)
	return result, nil
}

// CreateCustomer adds a customer, defaulting to the first stage
func (m *Manager) CreateCustomer(ctx context.Context, fields NewCustomer) (CustomerView, error) {
	return m.customers.Create(ctx, fields)
}

// UpdateCustomer edits customer fields other than the stage
func (m *Manager) UpdateCustomer(ctx context.Context, id uuid.UUID, patch CustomerPatch) (CustomerView, error) {
	return m.customers.Update(ctx, id, patch)
}

// DeleteCustomer removes a customer after explicit confirmation
func (m *Manager) DeleteCustomer(ctx context.Context, id uuid.UUID, confirmed bool) error {
	return m.customers.Delete(ctx, id, confirmed)
}

// SeedDefaults creates DefaultStages when the pipeline has no stages.
// It returns the stages it created.
func (m *Manager) SeedDefaults(ctx context.Context) ([]domain.Stage, error) {
	var created []domain.Stage
	err := m.structural(ctx, func(ctx context.Context) error {
		if len(m.stages.List()) > 0 {
			return nil
		}
		for _, d := range DefaultStages {
			stage, err := m.stages.Create(ctx, d.Name, d.Color)
			if err != nil {
				return err
			}
			created = append(created, stage)
		}
		return nil
	})
	if len(created) > 0 {
		m.logger.Info("Seeded default stages", zap.Int("count", len(created)))
	}
	return created, err
}

// structural runs fn holding the structural lock
func (m *Manager) structural(ctx context.Context, fn func(ctx context.Context) error) error {
	unlock, err := m.locker.Lock(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("wait for stage lock: %w: %w", ErrStoreUnavailable, err)
		}
		return err
	}
	defer unlock()

	if m.opts.LockLease > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.LockLease)
		defer cancel()
	}
	if m.opts.ReloadStagesOnLock {
		if _, err := m.stages.Load(ctx); err != nil {
			return err
		}
	}
	return fn(ctx)
}

func checkPermutation(known, ordered []uuid.UUID) error {
	if len(known) != len(ordered) {
		return fmt.Errorf("%w: got %d ids, have %d stages", ErrInvalidPermutation, len(ordered), len(known))
	}
	remaining := make(map[uuid.UUID]bool, len(known))
	for _, id := range known {
		remaining[id] = true
	}
	for _, id := range ordered {
		if !remaining[id] {
			return fmt.Errorf("%w: unexpected or duplicate id %s", ErrInvalidPermutation, id)
		}
		delete(remaining, id)
	}
	return nil
}

// Stats summarizes the cached pipeline
type Stats struct {
	Stages            int
	Customers         int
	DanglingCustomers int
	PositionGaps      int
	TotalValue        float64
}

// Stats computes a summary of the cached stages and customers
func (m *Manager) Stats() Stats {
	stages := m.stages.List()
	board := buildBoard(stages, m.customers.List(), BoardFilter{})
	return Stats{
		Stages:            len(stages),
		Customers:         board.TotalCustomers,
		DanglingCustomers: len(board.Dangling),
		PositionGaps:      PositionGaps(stages),
		TotalValue:        board.TotalValue,
	}
}
