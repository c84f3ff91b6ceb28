package pipeline

import (
	"strings"

	"github.com/google/uuid"

	"crm-pipeline-api/internal/domain"
)

// Board is the read model of the pipeline: stages in position order with
// their customers and per-stage totals.
type Board struct {
	Columns []BoardColumn
	// Unplaced customers have no stage
	Unplaced []CustomerView
	// Dangling customers reference a stage that no longer exists.
	// They belong to no column and contribute to no column total.
	Dangling       []CustomerView
	TotalCustomers int
	TotalValue     float64
}

// BoardColumn is one stage with the customers currently in it
type BoardColumn struct {
	Stage      domain.Stage
	Customers  []CustomerView
	TotalValue float64
}

// BoardFilter narrows the customers placed on the board.
// Columns are always present; only their buckets are filtered.
type BoardFilter struct {
	// Search matches name, email or company, case-insensitively
	Search  string
	StageID *uuid.UUID
}

// Matches reports whether v passes the filter
func (f BoardFilter) Matches(v CustomerView) bool {
	if f.StageID != nil && !v.InStage(*f.StageID) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(v.Name), term) ||
		strings.Contains(strings.ToLower(v.Email), term) ||
		strings.Contains(strings.ToLower(v.Company), term)
}

// buildBoard groups customers under stages. Stage membership is decided by
// id against the given stage list, not by the customer's joined view.
func buildBoard(stages []domain.Stage, customers []CustomerView, filter BoardFilter) Board {
	board := Board{
		Columns:  make([]BoardColumn, len(stages)),
		Unplaced: []CustomerView{},
		Dangling: []CustomerView{},
	}

	index := make(map[uuid.UUID]int, len(stages))
	for i, st := range stages {
		board.Columns[i] = BoardColumn{Stage: st, Customers: []CustomerView{}}
		index[st.ID] = i
	}

	for _, v := range customers {
		if !filter.Matches(v) {
			continue
		}
		board.TotalCustomers++
		board.TotalValue += v.Value

		if v.StageID == nil {
			board.Unplaced = append(board.Unplaced, v)
			continue
		}
		i, ok := index[*v.StageID]
		if !ok {
			board.Dangling = append(board.Dangling, v)
			continue
		}
		board.Columns[i].Customers = append(board.Columns[i].Customers, v)
		board.Columns[i].TotalValue += v.Value
	}
	return board
}

// PositionGaps counts stages whose position differs from their dense rank
// (1..N in list order). Zero means positions are contiguous.
func PositionGaps(stages []domain.Stage) int {
	gaps := 0
	for i, st := range stages {
		if st.Position != i+1 {
			gaps++
		}
	}
	return gaps
}
