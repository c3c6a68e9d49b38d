package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/api/responses"
	"github.com/oaklinehq/oakline-backend/api/validators"
	addrsvc "github.com/oaklinehq/oakline-backend/internal/addresses"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
)

// AddressList returns the caller's address book.
func AddressList(svc addrsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]addressResponse, 0, len(records))
		for i := range records {
			out = append(out, newAddressResponse(&records[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

type createAddressRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country"`
	Type       string `json:"type"`
	IsDefault  bool   `json:"is_default"`
}

// AddressCreate adds an address to the caller's book.
func AddressCreate(svc addrsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressType := enums.AddressTypeShipping
		if payload.Type != "" {
			addressType, err = enums.ParseAddressType(payload.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address type"))
				return
			}
		}

		record, err := svc.Create(r.Context(), userID, addrsvc.CreateInput{
			FullName:   payload.FullName,
			Phone:      payload.Phone,
			Street:     payload.Street,
			City:       payload.City,
			State:      payload.State,
			PostalCode: payload.PostalCode,
			Country:    payload.Country,
			Type:       addressType,
			IsDefault:  payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(record))
	}
}

type updateAddressRequest struct {
	FullName   *string `json:"full_name"`
	Phone      *string `json:"phone"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	IsDefault  *bool   `json:"is_default"`
}

// AddressUpdate patches the provided fields of one address.
func AddressUpdate(svc addrsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := pathUUID(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Update(r.Context(), addressID, userID, addrsvc.UpdateInput{
			FullName:   payload.FullName,
			Phone:      payload.Phone,
			Street:     payload.Street,
			City:       payload.City,
			State:      payload.State,
			PostalCode: payload.PostalCode,
			Country:    payload.Country,
			IsDefault:  payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newAddressResponse(record))
	}
}

// AddressDelete removes an address unless an order references it.
func AddressDelete(svc addrsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		addressID, err := pathUUID(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), addressID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type addressResponse struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Type       string    `json:"type"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

func newAddressResponse(record *models.Address) addressResponse {
	return addressResponse{
		ID:         record.ID,
		FullName:   record.FullName,
		Phone:      record.Phone,
		Street:     record.Street,
		City:       record.City,
		State:      record.State,
		PostalCode: record.PostalCode,
		Country:    record.Country,
		Type:       record.Type.String(),
		IsDefault:  record.IsDefault,
		CreatedAt:  record.CreatedAt,
	}
}
