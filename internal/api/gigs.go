package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gigfinder/gigfinder/internal/calendar"
	"github.com/gigfinder/gigfinder/internal/catalog"
	"github.com/gigfinder/gigfinder/internal/filter"
	"github.com/gigfinder/gigfinder/internal/search"
	"github.com/gigfinder/gigfinder/internal/storage"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

// PartialHeader is set on search replies that lack a third-party source.
const PartialHeader = "X-Partial-Results"

const dateLayout = "2006-01-02"

// parseQuery reads search parameters:
//
//	location, q, from, to, when, vibe, postcode, radius, weekends, max_price, limit
//
// from and to are YYYY-MM-DD; when is a phrase such as "this weekend" or
// "Dec 1-15" and takes precedence over them.
func (s *Server) parseQuery(c echo.Context) (search.Query, error) {
	q := search.Query{
		Location: strings.TrimSpace(c.QueryParam("location")),
		Keyword:  strings.TrimSpace(c.QueryParam("q")),
		Postcode: strings.TrimSpace(c.QueryParam("postcode")),
	}

	var err error
	if q.From, err = parseDateParam(c, "from"); err != nil {
		return q, err
	}
	if q.To, err = parseDateParam(c, "to"); err != nil {
		return q, err
	}
	if when := c.QueryParam("when"); when != "" {
		from, to, err := filter.ParseDateRange(when, s.now())
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid when: %v", err))
		}
		if from != nil {
			q.From = *from
		}
		if to != nil {
			q.To = *to
		}
	}

	if v := c.QueryParam("vibe"); v != "" {
		parsed, ok := vibe.Parse(v)
		if !ok {
			return q, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown vibe %q", v))
		}
		q.Vibe = parsed
	}

	if q.RadiusMiles, err = parseFloatParam(c, "radius"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = parseFloatParam(c, "max_price"); err != nil {
		return q, err
	}
	if l := c.QueryParam("limit"); l != "" {
		q.Limit, err = strconv.Atoi(l)
		if err != nil || q.Limit < 0 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
	}
	if w := c.QueryParam("weekends"); w != "" {
		q.WeekendsOnly, err = strconv.ParseBool(w)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "weekends must be true or false")
		}
	}
	return q, nil
}

func parseDateParam(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be YYYY-MM-DD", name))
	}
	return t, nil
}

func parseFloatParam(c echo.Context, name string) (float64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative number", name))
	}
	return f, nil
}

func (s *Server) runSearch(c echo.Context) (*search.Results, error) {
	q, err := s.parseQuery(c)
	if err != nil {
		return nil, err
	}
	results, err := s.searcher.Search(c.Request().Context(), q)
	if err != nil {
		return nil, err
	}
	if results.Partial {
		c.Response().Header().Set(PartialHeader, "true")
	}
	return results, nil
}

func (s *Server) searchGigs(c echo.Context) error {
	results, err := s.runSearch(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

func (s *Server) searchCalendar(c echo.Context) error {
	results, err := s.runSearch(c)
	if err != nil {
		return err
	}
	ics := calendar.GenerateBulkICS(results.Events, "GigFinder")
	if ics == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

// getGig returns one approved stored gig.
func (s *Server) getGig(c echo.Context) error {
	e, err := s.events.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !e.Approved {
		return storage.ErrNotFound
	}
	return c.JSON(http.StatusOK, search.Shape(e, s.opts.FallbackImage))
}

func (s *Server) gigCalendar(c echo.Context) error {
	e, err := s.events.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if !e.Approved {
		return storage.ErrNotFound
	}
	if e.StartsAt.IsZero() {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "gig has no date")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "gig-"+e.ID+".ics"))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(calendar.GenerateICS(e)))
}

// SubmitResponse is the reply to a gig submission.
type SubmitResponse struct {
	Created bool          `json:"created"`
	Gig     search.Result `json:"gig"`
}

func (s *Server) submitGig(c echo.Context) error {
	var sub catalog.EventSubmission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	e, created, err := s.catalog.SubmitEvent(c.Request().Context(), sub)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, SubmitResponse{Created: created, Gig: search.Shape(e, s.opts.FallbackImage)})
}

// ApprovalRequest sets a gig's moderation flags.
type ApprovalRequest struct {
	Approved bool `json:"approved"`
	Verified bool `json:"verified"`
}

func (s *Server) setGigApproval(c echo.Context) error {
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := s.catalog.SetEventApproval(c.Request().Context(), c.Param("id"), req.Approved, req.Verified)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}
