package service

import (
	"encoding/json"

	"gorm.io/datatypes"

	"crm-pipeline-api/internal/domain"
	"crm-pipeline-api/internal/dto"
	"crm-pipeline-api/internal/pipeline"
	"crm-pipeline-api/internal/response"
)

func toStageResponse(st domain.Stage) dto.StageResponse {
	return dto.StageResponse{
		ID:        st.ID,
		Name:      st.Name,
		Color:     st.Color,
		BgColor:   st.SecondaryColor,
		Position:  st.Position,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

func toStageResponses(stages []domain.Stage) []dto.StageResponse {
	out := make([]dto.StageResponse, len(stages))
	for i, st := range stages {
		out[i] = toStageResponse(st)
	}
	return out
}

func toCustomerResponse(v pipeline.CustomerView) dto.CustomerResponse {
	resp := dto.CustomerResponse{
		ID:        v.ID,
		Name:      v.Name,
		Email:     v.Email,
		Phone:     v.Phone,
		Company:   v.Company,
		Source:    v.Source,
		StageID:   v.StageID,
		Dangling:  v.Dangling(),
		Value:     v.Value,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
	if !v.LastContact.IsZero() {
		resp.LastContact = v.LastContact.UTC().Format(dto.DateLayout)
	}
	if v.Stage != nil {
		resp.Stage = &dto.StageSummary{
			ID:      v.Stage.ID,
			Name:    v.Stage.Name,
			Color:   v.Stage.Color,
			BgColor: v.Stage.SecondaryColor,
		}
	}
	if len(v.CustomFields) > 0 {
		var fields map[string]interface{}
		if err := json.Unmarshal(v.CustomFields, &fields); err == nil {
			resp.CustomFields = fields
		}
	}
	return resp
}

func toCustomerResponses(views []pipeline.CustomerView) []dto.CustomerResponse {
	out := make([]dto.CustomerResponse, len(views))
	for i, v := range views {
		out[i] = toCustomerResponse(v)
	}
	return out
}

func toBoardResponse(b pipeline.Board) dto.BoardResponse {
	resp := dto.BoardResponse{
		Columns:  make([]dto.BoardColumnResponse, len(b.Columns)),
		Unplaced: toCustomerResponses(b.Unplaced),
		Dangling: toCustomerResponses(b.Dangling),
		Stats: dto.BoardStats{
			TotalCustomers:    b.TotalCustomers,
			TotalValue:        b.TotalValue,
			DanglingCustomers: len(b.Dangling),
			UnplacedCustomers: len(b.Unplaced),
		},
	}
	for i, col := range b.Columns {
		resp.Columns[i] = dto.BoardColumnResponse{
			Stage:         toStageResponse(col.Stage),
			Customers:     toCustomerResponses(col.Customers),
			CustomerCount: len(col.Customers),
			TotalValue:    col.TotalValue,
		}
	}
	return resp
}

func toBoardFilter(filters *dto.BoardFilters) pipeline.BoardFilter {
	if filters == nil {
		return pipeline.BoardFilter{}
	}
	return pipeline.BoardFilter{Search: filters.Search, StageID: filters.StageID}
}

// customFieldsJSON encodes request custom fields; nil stays nil
func customFieldsJSON(fields map[string]interface{}) (datatypes.JSON, error) {
	if fields == nil {
		return nil, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, response.NewValidationError("Invalid custom fields", err.Error())
	}
	return datatypes.JSON(raw), nil
}
