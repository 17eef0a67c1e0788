// Package api serves GigFinder over HTTP with echo.
//
// Public routes search and submit gigs. Admin routes moderate venues and
// gigs and require the X-Admin-Token header. A search never fails because
// the third-party listing is down; it answers with partial results instead.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigfinder/gigfinder/internal/catalog"
	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/search"
	"github.com/gigfinder/gigfinder/internal/storage"
	"github.com/gigfinder/gigfinder/internal/venue"
)

// AdminTokenHeader carries the admin key.
const AdminTokenHeader = "X-Admin-Token"

// Searcher answers gig queries.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Results, error)
}

// EventReader reads one stored gig.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*event.Event, error)
}

// Catalog is the submission and moderation workflow.
type Catalog interface {
	SubmitEvent(ctx context.Context, sub catalog.EventSubmission) (*event.Event, bool, error)
	CreateVenue(ctx context.Context, sub catalog.VenueSubmission) (*venue.Venue, bool, error)
	ListVenues(ctx context.Context, q storage.VenueQuery) ([]*venue.Venue, error)
	ApproveVenue(ctx context.Context, id string) (*venue.Venue, error)
	VerifyVenue(ctx context.Context, id string) (*venue.Venue, error)
	RejectVenue(ctx context.Context, id string) (*storage.RejectResult, error)
	SetEventApproval(ctx context.Context, id string, approved, verified bool) (*event.Event, error)
}

// Options configures the server.
type Options struct {
	AdminToken    string
	FallbackImage string
	// Gatherer backs /metrics. The route is not registered when nil.
	Gatherer prometheus.Gatherer
}

// Server holds the handler dependencies.
type Server struct {
	searcher Searcher
	events   EventReader
	catalog  Catalog
	opts     Options
	now      func() time.Time
}

// New builds the echo instance with every route registered.
func New(searcher Searcher, events EventReader, cat Catalog, opts Options) *echo.Echo {
	s := &Server{searcher: searcher, events: events, catalog: cat, opts: opts, now: time.Now}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			logger.Info("HTTP request", logger.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(echoMw.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "gigfinder"})
	})
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	gigs := e.Group("/api/v1/gigs")
	gigs.GET("", s.searchGigs)
	gigs.POST("", s.submitGig)
	gigs.GET("/calendar.ics", s.searchCalendar)
	gigs.GET("/:id", s.getGig)
	gigs.GET("/:id/calendar.ics", s.gigCalendar)

	e.POST("/api/v1/venues", s.createVenue)

	admin := e.Group("/admin", echoMw.KeyAuthWithConfig(echoMw.KeyAuthConfig{
		KeyLookup: "header:" + AdminTokenHeader,
		Validator: s.validAdminToken,
	}))
	admin.GET("/venues", s.listVenues)
	admin.POST("/venues/:id/approve", s.approveVenue)
	admin.POST("/venues/:id/verify", s.verifyVenue)
	admin.POST("/venues/:id/reject", s.rejectVenue)
	admin.PUT("/gigs/:id/approval", s.setGigApproval)

	return e
}

// validAdminToken accepts the configured token. With no token configured
// every admin request is refused.
func (s *Server) validAdminToken(key string, _ echo.Context) (bool, error) {
	if s.opts.AdminToken == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.opts.AdminToken)) == 1, nil
}
