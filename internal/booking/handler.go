package booking

import (
	"errors"
	"net/http"
	"strconv"

	"fitbook/internal/api"
	"fitbook/internal/auth"
	"fitbook/internal/center"
	"fitbook/internal/waitlist"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

func (h *Handler) Reserve(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	reservation, err := h.service.Reserve(ctx, userID, slotID)
	if err != nil {
		switch {
		case errors.Is(err, center.ErrSlotNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Slot not found"})
		case errors.Is(err, ErrSlotFull):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Slot is full, you can join the waitlist"})
		case errors.Is(err, ErrDuplicateReservation):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "You already have a reservation for this slot"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to reserve slot"})
		}
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

func (h *Handler) Cancel(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	reservationID, ok := pathID(c, "reservationID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Cancel(ctx, userID, reservationID); err != nil {
		switch {
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Reservation not found"})
		case errors.Is(err, ErrAlreadyCancelled):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Reservation already cancelled"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "You can only cancel your own reservations"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to cancel reservation"})
		}
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Reservation cancelled"})
}

func (h *Handler) JoinWaitlist(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	entry, err := h.service.JoinWaitlist(ctx, userID, slotID)
	if err != nil {
		switch {
		case errors.Is(err, center.ErrSlotNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Slot not found"})
		case errors.Is(err, ErrSlotNotFull):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Slot has free seats, reserve it instead"})
		case errors.Is(err, waitlist.ErrAlreadyQueued):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "You are already on the waitlist"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to join waitlist"})
		}
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) LeaveWaitlist(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.service.LeaveWaitlist(ctx, userID, slotID); err != nil {
		switch {
		case errors.Is(err, center.ErrSlotNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Slot not found"})
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "You are not on the waitlist"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to leave waitlist"})
		}
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Left the waitlist"})
}

func (h *Handler) ListSlotWaitlist(c *gin.Context) {
	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	customerIDs, err := h.service.GetSlotWaitlist(ctx, slotID)
	if err != nil {
		if errors.Is(err, center.ErrSlotNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Slot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch waitlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"slot_id": slotID, "customer_ids": customerIDs})
}

func (h *Handler) ConflictCheck(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	conflicts, err := h.service.ConflictCheck(ctx, userID, slotID)
	if err != nil {
		if errors.Is(err, center.ErrSlotNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Slot not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to check conflicts"})
		return
	}

	c.JSON(http.StatusOK, conflicts)
}

func (h *Handler) Rebook(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	var req RebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	reservation, err := h.service.Rebook(ctx, userID, slotID, req.ReplaceReservationIDs)
	if err != nil {
		switch {
		case errors.Is(err, center.ErrSlotNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Slot not found"})
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Reservation to replace not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "You can only replace your own reservations"})
		case errors.Is(err, ErrAlreadyCancelled):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Reservation to replace is not active"})
		case errors.Is(err, ErrSlotFull):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "New slot is full"})
		case errors.Is(err, ErrDuplicateReservation):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "You already have a reservation for this slot"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to rebook"})
		}
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

func (h *Handler) ListMyReservations(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	ctx := c.Request.Context()
	reservations, err := h.service.GetUserReservations(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *Handler) ListSlotReservations(c *gin.Context) {
	slotID, ok := pathID(c, "slotID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	reservations, err := h.service.GetReservationsBySlot(ctx, slotID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *Handler) ListCenterReservations(c *gin.Context) {
	centerID, ok := pathID(c, "centerID")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	reservations, err := h.service.GetReservationsByCenter(ctx, centerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}
