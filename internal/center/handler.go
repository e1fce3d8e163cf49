package center

import (
	"errors"
	"net/http"
	"strconv"

	"fitbook/internal/api"

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

func (h *Handler) CreateCenter(c *gin.Context) {
	var req CreateCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	center, err := h.service.CreateCenter(ctx, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create center"})
		return
	}

	c.JSON(http.StatusCreated, center)
}

func (h *Handler) ListCenters(c *gin.Context) {
	ctx := c.Request.Context()
	centers, err := h.service.GetAllCenters(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch centers"})
		return
	}

	c.JSON(http.StatusOK, centers)
}

func (h *Handler) GetCenter(c *gin.Context) {
	centerID, err := strconv.Atoi(c.Param("centerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid center ID"})
		return
	}

	ctx := c.Request.Context()
	center, err := h.service.GetCenterByID(ctx, centerID)
	if err != nil {
		if errors.Is(err, ErrCenterNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Center not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch center"})
		return
	}

	c.JSON(http.StatusOK, center)
}

func (h *Handler) CreateSlot(c *gin.Context) {
	centerID, err := strconv.Atoi(c.Param("centerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid center ID"})
		return
	}

	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	slot, err := h.service.CreateSlot(ctx, centerID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrCenterNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Center not found"})
		case errors.Is(err, ErrSlotInvalid):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid slot data"})
		case errors.Is(err, ErrSlotOverlap):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Slot overlaps an existing slot"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create slot"})
		}
		return
	}

	c.JSON(http.StatusCreated, slot)
}

func (h *Handler) ListSlots(c *gin.Context) {
	centerID, err := strconv.Atoi(c.Param("centerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid center ID"})
		return
	}

	ctx := c.Request.Context()
	slots, err := h.service.GetSlots(ctx, centerID)
	if err != nil {
		if errors.Is(err, ErrCenterNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Center not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch slots"})
		return
	}

	c.JSON(http.StatusOK, slots)
}
