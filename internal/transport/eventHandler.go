package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/service"
	"github.com/ds124wfegd/afritix/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	eventService        service.EventService
	inventoryService    service.InventoryService
	notificationService service.NotificationService
}

func NewEventHandler(
	eventService service.EventService,
	inventoryService service.InventoryService,
	notificationService service.NotificationService,
) *EventHandler {
	return &EventHandler{
		eventService:        eventService,
		inventoryService:    inventoryService,
		notificationService: notificationService,
	}
}

// ListEvents shows only published events to regular users; admins can filter
// by any status.
func (h *EventHandler) ListEvents(c *gin.Context) {
	limit, offset := pagination(c)
	filter := entity.EventFilter{
		Title:    c.Query("title"),
		Category: c.Query("category"),
		Status:   entity.EventStatus(c.Query("status")),
		Limit:    limit,
		Offset:   offset,
	}
	if !middleware.IsAdmin(c) {
		filter.Status = entity.EventStatusPublished
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := c.Query(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, bound.name, err)
			return
		}
		*bound.dst = &t
	}

	events, err := h.eventService.ListEvents(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	if events == nil {
		events = []*entity.Event{}
	}

	c.JSON(http.StatusOK, events)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	// drafts do not exist for anyone but admins
	if event.Status == entity.EventStatusDraft && !middleware.IsAdmin(c) {
		fail(c, entity.ErrEventNotFound)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) CancelEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.CancelEvent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *EventHandler) AddTicketType(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.TicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	tt, err := h.eventService.AddTicketType(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, tt)
}

func (h *EventHandler) IncreaseQuantity(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Delta int `json:"delta" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "delta", err)
		return
	}

	tt, err := h.inventoryService.IncreaseQuantity(c.Request.Context(), id, req.Delta)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tt)
}

func (h *EventHandler) Announce(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Title   string `json:"title" binding:"required,max=255"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "", err)
		return
	}

	sent, err := h.notificationService.BroadcastAnnouncement(c.Request.Context(), id, req.Title, req.Message)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"notified": sent})
}
