package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"crm-pipeline-api/internal/client"
	"crm-pipeline-api/internal/domain"
)

const (
	customersTable = "customers"
	dateLayout     = "2006-01-02"
)

// customerRow mirrors a customers row as PostgREST returns it.
// last_contact is a SQL date and arrives as YYYY-MM-DD.
type customerRow struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Company      string          `json:"company"`
	Source       string          `json:"source"`
	StageID      *uuid.UUID      `json:"stage_id"`
	Value        float64         `json:"value"`
	LastContact  string          `json:"last_contact"`
	CustomFields json.RawMessage `json:"custom_fields,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type customerInsert struct {
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Phone        string          `json:"phone"`
	Company      string          `json:"company"`
	Source       string          `json:"source"`
	StageID      *uuid.UUID      `json:"stage_id"`
	Value        float64         `json:"value"`
	LastContact  string          `json:"last_contact,omitempty"`
	CustomFields json.RawMessage `json:"custom_fields,omitempty"`
}

func (r customerRow) toDomain() (*domain.Customer, error) {
	c := &domain.Customer{
		BaseModel: domain.BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Company: r.Company,
		Source:  r.Source,
		StageID: r.StageID,
		Value:   r.Value,
	}
	if len(r.CustomFields) > 0 && string(r.CustomFields) != "null" {
		c.CustomFields = datatypes.JSON(r.CustomFields)
	}
	if r.LastContact != "" {
		lastContact, err := time.Parse(dateLayout, r.LastContact)
		if err != nil {
			return nil, fmt.Errorf("%w: bad last_contact %q: %v", ErrUnavailable, r.LastContact, err)
		}
		c.LastContact = lastContact
	}
	return c, nil
}

// restCustomerRepository stores customers through a PostgREST endpoint
type restCustomerRepository struct {
	client client.PostgRESTClient
	now    func() time.Time
}

// NewRESTCustomerRepository creates a CustomerRepository backed by PostgREST
func NewRESTCustomerRepository(c client.PostgRESTClient) CustomerRepository {
	return &restCustomerRepository{
		client: c,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *restCustomerRepository) FindAll(ctx context.Context) ([]*domain.Customer, error) {
	query := url.Values{}
	query.Set("order", "created_at.asc")

	var rows []customerRow
	if err := r.client.Select(ctx, customersTable, query, &rows); err != nil {
		return nil, translateRESTError(err)
	}

	customers := make([]*domain.Customer, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, nil
}

func (r *restCustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	insert := customerInsert{
		Name:         customer.Name,
		Email:        customer.Email,
		Phone:        customer.Phone,
		Company:      customer.Company,
		Source:       customer.Source,
		StageID:      customer.StageID,
		Value:        customer.Value,
		CustomFields: json.RawMessage(customer.CustomFields),
	}
	if !customer.LastContact.IsZero() {
		insert.LastContact = customer.LastContact.Format(dateLayout)
	}

	var rows []customerRow
	if err := r.client.Insert(ctx, customersTable, insert, &rows); err != nil {
		return translateRESTError(err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: insert into %s returned no row", ErrUnavailable, customersTable)
	}
	created, err := rows[0].toDomain()
	if err != nil {
		return err
	}
	*customer = *created
	return nil
}

func (r *restCustomerRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error) {
	patch := make(map[string]interface{}, len(fields)+1)
	for key, value := range fields {
		switch key {
		case FieldName, FieldEmail, FieldPhone, FieldCompany, FieldSource, FieldValue:
			patch[key] = value
		case FieldStageID:
			patch[key] = value
		case FieldLastContact:
			lastContact, ok := value.(time.Time)
			if !ok {
				return nil, fmt.Errorf("%w: invalid value for customer field %q", ErrConstraint, key)
			}
			patch[key] = lastContact.Format(dateLayout)
		case FieldCustomFields:
			raw, ok := value.(datatypes.JSON)
			if !ok {
				return nil, fmt.Errorf("%w: invalid value for customer field %q", ErrConstraint, key)
			}
			patch[key] = json.RawMessage(raw)
		default:
			return nil, fmt.Errorf("%w: unknown customer field %q", ErrConstraint, key)
		}
	}
	patch["updated_at"] = r.now().Format(time.RFC3339Nano)

	var rows []customerRow
	if err := r.client.UpdateByID(ctx, customersTable, id.String(), patch, &rows); err != nil {
		return nil, translateRESTError(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toDomain()
}

func (r *restCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var rows []customerRow
	if err := r.client.DeleteByID(ctx, customersTable, id.String(), &rows); err != nil {
		return translateRESTError(err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}
