package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/service"
)

type CartHandler struct {
	svc      *service.CartService
	checkout *service.CheckoutService
	log      *slog.Logger
}

func NewCartHandler(svc *service.CartService, checkout *service.CheckoutService, log *slog.Logger) *CartHandler {
	return &CartHandler{svc: svc, checkout: checkout, log: log}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.GetPrincipal(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.svc.AddItem(c.Request.Context(), middleware.GetPrincipal(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, dto.ToCartResponse(cart))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	var req dto.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	cart, err := h.svc.UpdateItemQuantity(c.Request.Context(), middleware.GetPrincipal(c).UserID, productID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}
	cart, err := h.svc.RemoveItem(c.Request.Context(), middleware.GetPrincipal(c).UserID, productID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.ToCartResponse(cart))
}

func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), middleware.GetPrincipal(c).UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CartHandler) Confirm(c *gin.Context) {
	summary, err := h.checkout.ConfirmCart(c.Request.Context(), middleware.GetPrincipal(c).UserID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.CheckoutResponse{Items: dto.ToOrderItems(summary.Items), Total: summary.Total.StringFixed(2)})
}

func (h *CartHandler) ValidateShipping(c *gin.Context) {
	var req dto.ShippingRequest
	if !bindJSON(c, &req) {
		return
	}
	address, err := h.checkout.ValidateShipping(c.Request.Context(), middleware.GetPrincipal(c), req.AddressID, req.ShippingMethod)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"address": dto.ToAddressResponse(address), "shipping_method": req.ShippingMethod})
}
