// Package handler exposes the development backend's HTTP handlers.
// Responses are JSON; failures carry an {"error": "..."} body.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/model"
	"github.com/iliyamo/court-reservation/internal/repository"
	"github.com/iliyamo/court-reservation/internal/service"
)

// ReservationHandler serves courts and reservations.
type ReservationHandler struct {
	svc *service.Reservations
	log zerolog.Logger
}

// NewReservationHandler returns a handler backed by svc.
func NewReservationHandler(svc *service.Reservations, log zerolog.Logger) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc, log: log.With().Str("component", "http").Logger()}
}

// ListCourts handles GET /api/courts.
func (h *ReservationHandler) ListCourts(c echo.Context) error {
	courts, err := h.svc.Courts(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, courts)
}

// ListReservations handles GET /api/reservations.
func (h *ReservationHandler) ListReservations(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// CreateReservation handles POST /api/reservations.  It answers 201 with
// the stored reservation, 400 for an invalid body or slot, 404 for an
// unknown court and 409 when the slot is already reserved.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var req model.CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	created, err := h.svc.Create(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, created)
	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidSlot),
		errors.Is(err, service.ErrInvalidRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrCourtNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "court not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot already reserved"})
	default:
		return h.internal(c, err)
	}
}

// GetReservation handles GET /api/reservations/:id.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	res, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	default:
		return h.internal(c, err)
	}
}

// DeleteReservation handles DELETE /api/reservations/:id.
func (h *ReservationHandler) DeleteReservation(c echo.Context) error {
	err := h.svc.Delete(c.Request().Context(), c.Param("id"))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	default:
		return h.internal(c, err)
	}
}

func (h *ReservationHandler) internal(c echo.Context, err error) error {
	h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
