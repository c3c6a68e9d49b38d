package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/api/responses"
	"github.com/oaklinehq/oakline-backend/api/validators"
	checkoutsvc "github.com/oaklinehq/oakline-backend/internal/checkout"
	"github.com/oaklinehq/oakline-backend/pkg/enums"
	pkgerrors "github.com/oaklinehq/oakline-backend/pkg/errors"
	"github.com/oaklinehq/oakline-backend/pkg/gateway"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
)

type checkoutRequest struct {
	AddressID     uuid.UUID `json:"address_id" validate:"required"`
	CouponCode    *string   `json:"coupon_code"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
}

// Checkout converts the caller's cart into an order. For gateway methods the
// response carries the payment intent the client must settle.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Execute(r.Context(), checkoutsvc.Input{
			UserID:        userID,
			AddressID:     payload.AddressID,
			CouponCode:    payload.CouponCode,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type completePaymentRequest struct {
	OrderID          uuid.UUID `json:"order_id" validate:"required"`
	GatewayOrderID   string    `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string    `json:"gateway_payment_id" validate:"required"`
	GatewaySignature string    `json:"gateway_signature" validate:"required"`
}

// CheckoutCompletePayment verifies the gateway artifacts and confirms the order.
func CheckoutCompletePayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload completePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CompletePayment(r.Context(), checkoutsvc.CompleteInput{
			UserID:           userID,
			OrderID:          payload.OrderID,
			GatewayOrderID:   payload.GatewayOrderID,
			GatewayPaymentID: payload.GatewayPaymentID,
			GatewaySignature: payload.GatewaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(record))
	}
}

type gatewayIntentResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type checkoutResponse struct {
	Order         orderResponse          `json:"order"`
	GatewayIntent *gatewayIntentResponse `json:"gateway_intent,omitempty"`
}

func newCheckoutResponse(result *checkoutsvc.Result) checkoutResponse {
	out := checkoutResponse{Order: newOrderResponse(result.Order)}
	if result.GatewayIntent != nil {
		out.GatewayIntent = newGatewayIntentResponse(result.GatewayIntent)
	}
	return out
}

func newGatewayIntentResponse(intent *gateway.Intent) *gatewayIntentResponse {
	return &gatewayIntentResponse{
		ID:       intent.ID,
		Amount:   intent.Amount,
		Currency: intent.Currency,
	}
}
