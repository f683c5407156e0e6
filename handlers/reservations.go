// Package handlers exposes the reservation engine over HTTP.
package handlers

import (
	"github.com/kataras/iris/v12"

	"github.com/nejcselan19/rezervacije/booking"
	"github.com/nejcselan19/rezervacije/models"
)

// Handler holds the dependencies of the reservation routes.
type Handler struct {
	engine *booking.Engine
}

// New creates a Handler backed by engine.
func New(engine *booking.Engine) *Handler {
	return &Handler{engine: engine}
}

// Register mounts the routes under party, which is normally /api.
func (h *Handler) Register(party iris.Party) {
	party.Get("/health", h.Health)

	party.Post("/reservations", h.CreateReservation)
	party.Get("/reservations/{id}", h.GetReservation)
	party.Post("/reservations/{id}/cancel", h.CancelReservation)
	party.Get("/users/{id}/reservations", h.ListRenterReservations)

	party.Get("/items/{id}/reservations", h.ListItemReservations)
	party.Get("/items/{id}/availability", h.GetAvailability)
	party.Post("/items/{id}/quote", h.QuoteItem)
	party.Delete("/items/{id}", h.DeleteItem)
}

type CreateReservationInput struct {
	ItemID   string            `json:"itemId" validate:"required,max=64"`
	RenterID string            `json:"renterId" validate:"required,max=64"`
	Units    []models.TimeUnit `json:"units" validate:"required,min=1"`
}

type RequesterInput struct {
	RequesterID string `json:"requesterId" validate:"required,max=64"`
}

type QuoteInput struct {
	Units []models.TimeUnit `json:"units" validate:"required,min=1"`
}

func (h *Handler) Health(ctx iris.Context) {
	ctx.JSON(iris.Map{"status": "ok"})
}

func (h *Handler) CreateReservation(ctx iris.Context) {
	var input CreateReservationInput
	if err := ctx.ReadJSON(&input); err != nil {
		HandleValidationErrors(err, ctx)
		return
	}

	r, err := h.engine.Book(ctx.Request().Context(), booking.BookRequest{
		ItemID:   input.ItemID,
		RenterID: input.RenterID,
		Units:    input.Units,
	})
	if err != nil {
		handleEngineError(err, ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(r)
}

func (h *Handler) GetReservation(ctx iris.Context) {
	r, err := h.engine.Get(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleEngineError(err, ctx)
		return
	}
	ctx.JSON(r)
}

func (h *Handler) CancelReservation(ctx iris.Context) {
	var input RequesterInput
	if err := ctx.ReadJSON(&input); err != nil {
		HandleValidationErrors(err, ctx)
		return
	}

	r, err := h.engine.Cancel(ctx.Request().Context(), ctx.Params().Get("id"), input.RequesterID)
	if err != nil {
		handleEngineError(err, ctx)
		return
	}
	ctx.JSON(r)
}

func (h *Handler) ListRenterReservations(ctx iris.Context) {
	list, err := h.engine.ListByRenter(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleEngineError(err, ctx)
		return
	}
	ctx.JSON(nonNil(list))
}

func (h *Handler) ListItemReservations(ctx iris.Context) {
	list, err := h.engine.ListByItem(ctx.Request().Context(), ctx.Params().Get("id"))
	if err != nil {
		handleEngineError(err, ctx)
		return
	}
	ctx.JSON(nonNil(list))
}

func (h *Handler) GetAvailability(ctx iris.Context) {
	id := ctx.Params().Get("id")
	reserved, err := h.engine.Availability(ctx.Request().Context(), id)
	if err != nil {
		handleEngineError(err, ctx)
		return
	}
	if reserved == nil {
		reserved = []models.TimeUnit{}
	}
	ctx.JSON(iris.Map{"itemId": id, "reserved": reserved})
}

func (h *Handler) QuoteItem(ctx iris.Context) {
	var input QuoteInput
	if err := ctx.ReadJSON(&input); err != nil {
		HandleValidationErrors(err, ctx)
		return
	}

	id := ctx.Params().Get("id")
	total, units, err := h.engine.Quote(ctx.Request().Context(), id, input.Units)
	if err != nil {
		handleEngineError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"itemId": id, "units": units, "totalCost": total})
}

func (h *Handler) DeleteItem(ctx iris.Context) {
	var input RequesterInput
	if err := ctx.ReadJSON(&input); err != nil {
		HandleValidationErrors(err, ctx)
		return
	}

	id := ctx.Params().Get("id")
	if err := h.engine.RetireItem(ctx.Request().Context(), id, input.RequesterID); err != nil {
		handleEngineError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"itemId": id, "deleted": true})
}

func nonNil(list []models.Reservation) []models.Reservation {
	if list == nil {
		return []models.Reservation{}
	}
	return list
}
