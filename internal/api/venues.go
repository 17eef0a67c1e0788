package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/gigfinder/gigfinder/internal/catalog"
	"github.com/gigfinder/gigfinder/internal/storage"
	"github.com/gigfinder/gigfinder/internal/venue"
)

// VenueResponse is the reply to a venue submission.
type VenueResponse struct {
	Created bool         `json:"created"`
	Venue   *venue.Venue `json:"venue"`
}

func (s *Server) createVenue(c echo.Context) error {
	var sub catalog.VenueSubmission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	v, created, err := s.catalog.CreateVenue(c.Request().Context(), sub)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, VenueResponse{Created: created, Venue: v})
}

// listVenues supports ?approved=, ?verified= and ?city= filters.
func (s *Server) listVenues(c echo.Context) error {
	q := storage.VenueQuery{City: c.QueryParam("city")}

	var err error
	if q.Approved, err = parseBoolFlag(c, "approved"); err != nil {
		return err
	}
	if q.Verified, err = parseBoolFlag(c, "verified"); err != nil {
		return err
	}

	venues, err := s.catalog.ListVenues(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"venues": venues, "count": len(venues)})
}

func parseBoolFlag(c echo.Context, name string) (*bool, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be true or false", name))
	}
	return &b, nil
}

func (s *Server) approveVenue(c echo.Context) error {
	v, err := s.catalog.ApproveVenue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) verifyVenue(c echo.Context) error {
	v, err := s.catalog.VerifyVenue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) rejectVenue(c echo.Context) error {
	result, err := s.catalog.RejectVenue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"venue":           result.Venue,
		"deleted_events":  result.DeletedEvents,
		"detached_events": result.DetachedEvents,
	})
}
