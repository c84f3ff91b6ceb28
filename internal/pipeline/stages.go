package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/repository"
)

// Stages owns the ordered list of pipeline stages.
// Every mutation reaches the local list only after the store confirmed it.
// Structural operations (Create, Delete, Reorder) must be serialized by the caller.
type Stages struct {
	repo   repository.StageRepository
	logger *zap.Logger

	mu   sync.RWMutex
	list []domain.Stage
}

// NewStages creates an empty stage cache over repo
func NewStages(repo repository.StageRepository, logger *zap.Logger) *Stages {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stages{repo: repo, logger: logger}
}

// Load replaces the cached list with the store's stages.
// On failure the previously cached list is kept.
func (s *Stages) Load(ctx context.Context) ([]domain.Stage, error) {
	rows, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Warn("Failed to load stages, keeping cached list", zap.Error(err))
		return s.List(), storeError("load stages", err)
	}

	list := make([]domain.Stage, 0, len(rows))
	for _, row := range rows {
		list = append(list, *row)
	}
	sortStages(list)

	s.mu.Lock()
	s.list = list
	s.mu.Unlock()

	return s.List(), nil
}

// List returns a copy of the cached stages in position order
func (s *Stages) List() []domain.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Stage, len(s.list))
	copy(out, s.list)
	return out
}

// Get returns the cached stage with id
func (s *Stages) Get(id uuid.UUID) (domain.Stage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.list[i], true
	}
	return domain.Stage{}, false
}

// Exists reports whether id is a live stage
func (s *Stages) Exists(id uuid.UUID) bool {
	_, ok := s.Get(id)
	return ok
}

// First returns the leftmost stage
func (s *Stages) First() (domain.Stage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.list) == 0 {
		return domain.Stage{}, false
	}
	return s.list[0], true
}

// IDs returns the cached stage ids in position order
func (s *Stages) IDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, len(s.list))
	for i, st := range s.list {
		ids[i] = st.ID
	}
	return ids
}

// Create inserts a stage after the current last position
func (s *Stages) Create(ctx context.Context, name, color string) (domain.Stage, error) {
	if blank(name) {
		return domain.Stage{}, validationError("stage name is required")
	}
	if blank(color) {
		return domain.Stage{}, validationError("stage color is required")
	}
	s.warnUnknownColor(color)

	stage := &domain.Stage{
		Name:           name,
		Color:          color,
		SecondaryColor: domain.SecondaryColorFor(color),
		Position:       s.maxPosition() + 1,
	}
	if err := s.repo.Create(ctx, stage); err != nil {
		return domain.Stage{}, storeError("create stage", err)
	}

	s.mu.Lock()
	s.list = append(s.list, *stage)
	sortStages(s.list)
	s.mu.Unlock()

	s.logger.Info("Stage created",
		zap.String("stage_id", stage.ID.String()),
		zap.String("name", stage.Name),
		zap.Int("position", stage.Position),
	)
	return *stage, nil
}

// Update renames and recolors a stage; its position is untouched
func (s *Stages) Update(ctx context.Context, id uuid.UUID, name, color string) (domain.Stage, error) {
	if _, ok := s.Get(id); !ok {
		return domain.Stage{}, ErrNotFound
	}
	if blank(name) {
		return domain.Stage{}, validationError("stage name is required")
	}
	if blank(color) {
		return domain.Stage{}, validationError("stage color is required")
	}
	s.warnUnknownColor(color)

	updated, err := s.repo.Update(ctx, id, map[string]interface{}{
		repository.FieldName:           name,
		repository.FieldColor:          color,
		repository.FieldSecondaryColor: domain.SecondaryColorFor(color),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.forget(id)
		}
		return domain.Stage{}, storeError("update stage", err)
	}

	s.replace(*updated)
	return *updated, nil
}

// warnUnknownColor logs colors outside the palette; they get the default background
func (s *Stages) warnUnknownColor(color string) {
	if !domain.IsPaletteColor(color) {
		s.logger.Warn("Stage color is not in the palette, using default background",
			zap.String("color", color),
			zap.String("background", domain.DefaultSecondaryColor),
		)
	}
}

// Delete removes a stage. Remaining positions are left as they are;
// gaps close on the next reorder.
func (s *Stages) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.Get(id); !ok {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Already gone at the store
			s.forget(id)
		}
		return storeError("delete stage", err)
	}

	s.forget(id)
	s.logger.Info("Stage deleted", zap.String("stage_id", id.String()))
	return nil
}

// Reorder assigns position index+1 to every id of orderedIDs, which must be a
// permutation of the cached ids. Only stages whose position changes are written.
//
// Stores implementing repository.PositionBatcher get one atomic batch. Other
// stores are written one stage at a time in index order; a failed write stops
// the sequence and yields *PartialReorderError with the committed prefix
// applied locally.
func (s *Stages) Reorder(ctx context.Context, orderedIDs []uuid.UUID) ([]domain.Stage, error) {
	changes := s.positionChanges(orderedIDs)
	if len(changes) == 0 {
		return s.List(), nil
	}

	if batcher, ok := s.repo.(repository.PositionBatcher); ok {
		updated, err := batcher.UpdatePositions(ctx, changes)
		if err != nil {
			return s.List(), storeError("reorder stages", err)
		}
		s.mu.Lock()
		for _, row := range updated {
			s.replaceLocked(*row)
		}
		sortStages(s.list)
		s.mu.Unlock()
		return s.List(), nil
	}

	for k, change := range changes {
		updated, err := s.repo.Update(ctx, change.ID, map[string]interface{}{
			repository.FieldPosition: change.Position,
		})
		if err != nil {
			pending := make([]uuid.UUID, 0, len(changes)-k)
			for _, p := range changes[k:] {
				pending = append(pending, p.ID)
			}
			s.logger.Warn("Stage reorder interrupted",
				zap.Int("committed", k),
				zap.Int("pending", len(pending)),
				zap.Error(err),
			)
			return s.List(), &PartialReorderError{
				Committed: k,
				Pending:   pending,
				Err:       storeError("reorder stages", err),
			}
		}
		s.replace(*updated)
	}
	return s.List(), nil
}

func (s *Stages) positionChanges(orderedIDs []uuid.UUID) []repository.StagePosition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	changes := make([]repository.StagePosition, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		idx := s.indexOf(id)
		if idx >= 0 && s.list[idx].Position == i+1 {
			continue
		}
		changes = append(changes, repository.StagePosition{ID: id, Position: i + 1})
	}
	return changes
}

func (s *Stages) maxPosition() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := 0
	for _, st := range s.list {
		if st.Position > highest {
			highest = st.Position
		}
	}
	return highest
}

func (s *Stages) replace(stage domain.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(stage)
	sortStages(s.list)
}

func (s *Stages) replaceLocked(stage domain.Stage) {
	if i := s.indexOf(stage.ID); i >= 0 {
		s.list[i] = stage
		return
	}
	s.list = append(s.list, stage)
}

func (s *Stages) forget(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.list = append(s.list[:i], s.list[i+1:]...)
	}
}

// indexOf must be called with mu held
func (s *Stages) indexOf(id uuid.UUID) int {
	for i := range s.list {
		if s.list[i].ID == id {
			return i
		}
	}
	return -1
}

func sortStages(list []domain.Stage) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Position != list[j].Position {
			return list[i].Position < list[j].Position
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
