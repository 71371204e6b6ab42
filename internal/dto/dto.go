package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/storefront-api/internal/model"
)

// Response is the envelope of every API reply.
type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// --- Auth ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
}

// --- Product ---

type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	SKU         string          `json:"sku" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Stock       int             `json:"stock" binding:"min=0,max=1000000"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	SKU         *string          `json:"sku"`
	Price       *decimal.Decimal `json:"price"`
	Active      *bool            `json:"active"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=1000000"`
}

type ListProductsRequest struct {
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search string `form:"search"`
	Sort   string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SKU         string    `json:"sku"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Address ---

type AddressRequest struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type AddressResponse struct {
	ID         uuid.UUID `json:"id"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
}

func ToAddressResponse(a *model.Address) AddressResponse {
	return AddressResponse{
		ID: a.ID, Street: a.Street, City: a.City, State: a.State,
		PostalCode: a.PostalCode, Country: a.Country,
	}
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=1000000"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=1000000"`
}

type CartResponse struct {
	ID        *uuid.UUID         `json:"id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Total     string             `json:"total"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

type CartItemResponse struct {
	ProductID        uuid.UUID `json:"product_id"`
	Name             string    `json:"name"`
	Quantity         int       `json:"quantity"`
	UnitPrice        string    `json:"unit_price"`
	Subtotal         string    `json:"subtotal"`
	PriceLockedUntil time.Time `json:"price_locked_until"`
}

func ToCartResponse(c *model.Cart) CartResponse {
	resp := CartResponse{Items: make([]CartItemResponse, 0, len(c.Items)), Total: c.Total.StringFixed(2)}
	if c.ID != uuid.Nil {
		resp.ID = &c.ID
		resp.UpdatedAt = &c.UpdatedAt
		resp.ExpiresAt = &c.ExpiresAt
	}
	for _, item := range c.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ProductID:        item.ProductID,
			Name:             item.Name,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice.StringFixed(2),
			Subtotal:         item.Subtotal.StringFixed(2),
			PriceLockedUntil: item.PriceLockedUntil,
		})
	}
	return resp
}

// --- Checkout ---

type ShippingRequest struct {
	AddressID      uuid.UUID `json:"address_id" binding:"required"`
	ShippingMethod string    `json:"shipping_method" binding:"required"`
}

type CheckoutResponse struct {
	Items []OrderItemResponse `json:"items"`
	Total string              `json:"total"`
}

// --- Order ---

type PlaceOrderRequest struct {
	AddressID      uuid.UUID `json:"address_id" binding:"required"`
	ShippingMethod string    `json:"shipping_method"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	UserID            uuid.UUID           `json:"user_id"`
	OrderNumber       string              `json:"order_number"`
	Status            model.OrderStatus   `json:"status"`
	TotalAmount       string              `json:"total_amount"`
	Items             []OrderItemResponse `json:"items"`
	ShippingAddressID uuid.UUID           `json:"shipping_address_id"`
	ShippingMethod    string              `json:"shipping_method"`
	Active            bool                `json:"active"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
}

type OrderStatusResponse struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      model.OrderStatus `json:"status"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

func ToOrderItems(items []model.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
		})
	}
	return out
}

func ToOrderResponse(o *model.Order) OrderResponse {
	return OrderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		OrderNumber:       o.OrderNumber,
		Status:            o.Status,
		TotalAmount:       o.TotalAmount.StringFixed(2),
		Items:             ToOrderItems(o.Items),
		ShippingAddressID: o.ShippingAddressID,
		ShippingMethod:    o.ShippingMethod,
		Active:            o.Active,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

// --- Shipment ---

type AssignShipmentRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
	Carrier string    `json:"carrier" binding:"required"`
}

type AdvanceShipmentRequest struct {
	Status        string `json:"status" binding:"required"`
	DeliveryProof bool   `json:"delivery_proof"`
}

type ShipmentResponse struct {
	ID                  uuid.UUID            `json:"id"`
	OrderID             uuid.UUID            `json:"order_id"`
	TrackingNumber      string               `json:"tracking_number"`
	Carrier             string               `json:"carrier"`
	Status              model.ShipmentStatus `json:"status"`
	ShipmentAt          time.Time            `json:"shipment_at"`
	DeliveryAt          *time.Time           `json:"delivery_at,omitempty"`
	ConfirmedByCustomer bool                 `json:"confirmed_by_customer"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

func ToShipmentResponse(s *model.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:                  s.ID,
		OrderID:             s.OrderID,
		TrackingNumber:      s.TrackingNumber,
		Carrier:             s.Carrier,
		Status:              s.Status,
		ShipmentAt:          s.ShipmentAt,
		DeliveryAt:          s.DeliveryAt,
		ConfirmedByCustomer: s.ConfirmedByCustomer,
		UpdatedAt:           s.UpdatedAt,
	}
}
