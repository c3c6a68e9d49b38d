package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/oaklinehq/oakline-backend/api/responses"
	ordersvc "github.com/oaklinehq/oakline-backend/internal/orders"
	"github.com/oaklinehq/oakline-backend/pkg/db/models"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
	"github.com/oaklinehq/oakline-backend/pkg/pagination"
)

// OrdersList returns the caller's orders, newest first, cursor paginated.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, _ = strconv.Atoi(raw)
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		}

		records, nextCursor, err := svc.List(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(records))
		for i := range records {
			out = append(out, newOrderResponse(&records[i]))
		}
		responses.WriteSuccess(w, orderListResponse{Orders: out, NextCursor: nextCursor})
	}
}

// OrderGet returns one of the caller's orders with items and history.
func OrderGet(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Get(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(record))
	}
}

// OrderCancel cancels a pending or confirmed order and releases its stock.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Cancel(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(record))
	}
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type orderItemResponse struct {
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	VariantColor   *string    `json:"variant_color,omitempty"`
	VariantSize    *string    `json:"variant_size,omitempty"`
	VariantPattern *string    `json:"variant_pattern,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPrice      string     `json:"unit_price"`
	LineTotal      string     `json:"line_total"`
}

type orderHistoryResponse struct {
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Note          string    `json:"note"`
	CreatedAt     time.Time `json:"created_at"`
}

type orderAddressResponse struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type orderResponse struct {
	ID              uuid.UUID              `json:"id"`
	OrderNumber     uuid.UUID              `json:"order_number"`
	Status          string                 `json:"status"`
	PaymentStatus   string                 `json:"payment_status"`
	PaymentMethod   string                 `json:"payment_method"`
	Subtotal        string                 `json:"subtotal"`
	TaxAmount       string                 `json:"tax_amount"`
	PlatformFee     string                 `json:"platform_fee"`
	ShippingCost    string                 `json:"shipping_cost"`
	CouponDiscount  string                 `json:"coupon_discount"`
	TotalAmount     string                 `json:"total_amount"`
	CouponCode      *string                `json:"coupon_code,omitempty"`
	TrackingNumber  *string                `json:"tracking_number,omitempty"`
	Courier         *string                `json:"courier,omitempty"`
	ShippingAddress orderAddressResponse   `json:"shipping_address"`
	Items           []orderItemResponse    `json:"items,omitempty"`
	History         []orderHistoryResponse `json:"history,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

func newOrderResponse(record *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			VariantColor:   item.VariantColor,
			VariantSize:    item.VariantSize,
			VariantPattern: item.VariantPattern,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.StringFixed(2),
			LineTotal:      item.LineTotal.StringFixed(2),
		})
	}
	history := make([]orderHistoryResponse, 0, len(record.History))
	for _, entry := range record.History {
		history = append(history, orderHistoryResponse{
			Status:        entry.Status.String(),
			PaymentStatus: entry.PaymentStatus.String(),
			Note:          entry.Note,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return orderResponse{
		ID:             record.ID,
		OrderNumber:    record.OrderNumber,
		Status:         record.Status.String(),
		PaymentStatus:  record.PaymentStatus.String(),
		PaymentMethod:  record.PaymentMethod.String(),
		Subtotal:       record.Subtotal.StringFixed(2),
		TaxAmount:      record.TaxAmount.StringFixed(2),
		PlatformFee:    record.PlatformFee.StringFixed(2),
		ShippingCost:   record.ShippingCost.StringFixed(2),
		CouponDiscount: record.CouponDiscount.StringFixed(2),
		TotalAmount:    record.TotalAmount.StringFixed(2),
		CouponCode:     record.CouponCode,
		TrackingNumber: record.TrackingNumber,
		Courier:        record.Courier,
		ShippingAddress: orderAddressResponse{
			FullName:   record.ShipFullName,
			Phone:      record.ShipPhone,
			Street:     record.ShipStreet,
			City:       record.ShipCity,
			State:      record.ShipState,
			PostalCode: record.ShipPostalCode,
			Country:    record.ShipCountry,
		},
		Items:       items,
		History:     history,
		DeliveredAt: record.DeliveredAt,
		CancelledAt: record.CancelledAt,
		CreatedAt:   record.CreatedAt,
	}
}
