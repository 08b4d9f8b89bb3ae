// Package router registers the development backend's routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/handler"
)

// Middlewares are applied to individual routes.  A nil entry is skipped.
type Middlewares struct {
	Cache     echo.MiddlewareFunc // GET /api/courts
	RateLimit echo.MiddlewareFunc // POST /api/reservations
}

// RegisterRoutes registers the health check and the reservation API.
//
//	GET    /healthz
//	GET    /api/courts
//	GET    /api/reservations
//	POST   /api/reservations
//	GET    /api/reservations/:id
//	DELETE /api/reservations/:id
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, mw Middlewares) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	api.GET("/courts", h.ListCourts, use(mw.Cache)...)
	api.GET("/reservations", h.ListReservations)
	api.POST("/reservations", h.CreateReservation, use(mw.RateLimit)...)
	api.GET("/reservations/:id", h.GetReservation)
	api.DELETE("/reservations/:id", h.DeleteReservation)
}

func use(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}
