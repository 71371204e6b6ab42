package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/storefront-api/internal/dto"
	"github.com/flicky/storefront-api/internal/service"
)

type ShipmentHandler struct {
	svc *service.ShipmentService
	log *slog.Logger
}

func NewShipmentHandler(svc *service.ShipmentService, log *slog.Logger) *ShipmentHandler {
	return &ShipmentHandler{svc: svc, log: log}
}

func (h *ShipmentHandler) Assign(c *gin.Context) {
	var req dto.AssignShipmentRequest
	if !bindJSON(c, &req) {
		return
	}
	shipment, err := h.svc.Assign(c.Request.Context(), req.OrderID, req.Carrier)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, dto.ToShipmentResponse(shipment))
}

func (h *ShipmentHandler) List(c *gin.Context) {
	shipments, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]dto.ShipmentResponse, 0, len(shipments))
	for i := range shipments {
		out = append(out, dto.ToShipmentResponse(&shipments[i]))
	}
	respond(c, http.StatusOK, out)
}

func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	shipment, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.ToShipmentResponse(shipment))
}

func (h *ShipmentHandler) Advance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdvanceShipmentRequest
	if !bindJSON(c, &req) {
		return
	}
	shipment, err := h.svc.Advance(c.Request.Context(), id, req.Status, req.DeliveryProof)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, dto.ToShipmentResponse(shipment))
}

func (h *ShipmentHandler) Remove(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
