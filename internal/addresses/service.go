package addresses

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
)

// CreateInput carries the fields for a new address.
type CreateInput struct {
	FullName   string
	Phone      string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	Type       enums.AddressType
	IsDefault  bool
}

// UpdateInput carries a partial address update. Nil fields are left as-is;
// field-by-field merge keeps invariants explicit.
type UpdateInput struct {
	FullName   *string
	Phone      *string
	Street     *string
	City       *string
	State      *string
	PostalCode *string
	Country    *string
	IsDefault  *bool
}

// Service owns the address book. An address referenced by any order can never
// be deleted because orders snapshot it by id for auditability.
type Service interface {
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error)
	Update(ctx context.Context, id, userID uuid.UUID, input UpdateInput) (*models.Address, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService validates dependencies and returns an address service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("address repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	address, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return address, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Address, error) {
	addressType := input.Type
	if addressType == "" {
		addressType = enums.AddressTypeShipping
	}
	if !addressType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown address type")
	}
	if input.FullName == "" || input.Street == "" || input.City == "" || input.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name, street, city, and postal code are required")
	}

	if input.IsDefault {
		if err := s.repo.ClearDefault(ctx, userID, addressType.String()); err != nil {
			return nil, err
		}
	}

	country := input.Country
	if country == "" {
		country = "IN"
	}
	address := &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		FullName:   input.FullName,
		Phone:      input.Phone,
		Street:     input.Street,
		City:       input.City,
		State:      input.State,
		PostalCode: input.PostalCode,
		Country:    country,
		Type:       addressType,
		IsDefault:  input.IsDefault,
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *service) Update(ctx context.Context, id, userID uuid.UUID, input UpdateInput) (*models.Address, error) {
	address, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		address.FullName = *input.FullName
	}
	if input.Phone != nil {
		address.Phone = *input.Phone
	}
	if input.Street != nil {
		address.Street = *input.Street
	}
	if input.City != nil {
		address.City = *input.City
	}
	if input.State != nil {
		address.State = *input.State
	}
	if input.PostalCode != nil {
		address.PostalCode = *input.PostalCode
	}
	if input.Country != nil {
		address.Country = *input.Country
	}
	if input.IsDefault != nil {
		if *input.IsDefault && !address.IsDefault {
			if err := s.repo.ClearDefault(ctx, userID, address.Type.String()); err != nil {
				return nil, err
			}
		}
		address.IsDefault = *input.IsDefault
	}

	if err := s.repo.Update(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	address, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}

	referencing, err := s.repo.CountOrdersReferencing(ctx, address.ID)
	if err != nil {
		return err
	}
	if referencing > 0 {
		return pkgerrors.New(pkgerrors.CodeAddressInUse, "address is referenced by existing orders")
	}

	affected, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}
