// Package catalog implements the first-party submission and moderation
// workflow: users submit gigs and venues, admins approve, verify or reject
// them. Every accepted change is announced on the publisher.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/geo"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/publish"
	"github.com/gigfinder/gigfinder/internal/skiddle"
	"github.com/gigfinder/gigfinder/internal/storage"
	"github.com/gigfinder/gigfinder/internal/venue"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

// ErrValidation is wrapped by every submission validation failure.
var ErrValidation = errors.New("validation failed")

// ValidationError lists the problems found in a submission.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// EventSubmission is a gig submitted by a venue or promoter.
type EventSubmission struct {
	Name         string `json:"name"`
	VenueName    string `json:"venue"`
	City         string `json:"city"`
	Postcode     string `json:"postcode,omitempty"`
	Date         string `json:"date"`
	Doors        string `json:"doors,omitempty"`
	Price        string `json:"price,omitempty"`
	Presale      string `json:"presale,omitempty"`
	PresaleNote  string `json:"presale_note,omitempty"`
	Genre        string `json:"genre,omitempty"`
	Description  string `json:"description,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
	TicketMode   string `json:"ticket_mode,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// VenueSubmission is a venue submitted on its own.
type VenueSubmission struct {
	Name         string `json:"name"`
	City         string `json:"city"`
	Postcode     string `json:"postcode,omitempty"`
	Capacity     int    `json:"capacity,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	Website      string `json:"website,omitempty"`
}

// Service runs the submission workflow against a store.
type Service struct {
	store     storage.Store
	publisher publish.Publisher
	now       func() time.Time
}

// NewService creates a catalog service. A nil publisher discards messages.
func NewService(store storage.Store, publisher publish.Publisher) *Service {
	if publisher == nil {
		publisher = publish.Nop{}
	}
	return &Service{store: store, publisher: publisher, now: time.Now}
}

// SubmitEvent validates a submission and stores it as a first-party event.
// The venue is found or created by identity; a venue created this way is
// approved but not verified. When a gig with the same fingerprint already
// exists it is returned with created set to false.
func (s *Service) SubmitEvent(ctx context.Context, sub EventSubmission) (*event.Event, bool, error) {
	startsAt, mode, err := s.validateEvent(&sub)
	if err != nil {
		return nil, false, err
	}

	v, venueCreated, err := s.store.FindOrCreateVenue(ctx, s.newVenue(VenueSubmission{
		Name:         sub.VenueName,
		City:         sub.City,
		Postcode:     sub.Postcode,
		ContactEmail: sub.ContactEmail,
	}, true))
	if err != nil {
		return nil, false, fmt.Errorf("resolving venue: %w", err)
	}
	if venueCreated {
		s.publish(ctx, publish.VenueCreated, v)
	}

	e := &event.Event{
		Name:        sub.Name,
		VenueID:     v.ID,
		VenueName:   sub.VenueName,
		Town:        v.City,
		Lat:         v.Lat,
		Lon:         v.Lon,
		Capacity:    v.Capacity,
		StartsAt:    startsAt,
		DoorsTime:   sub.Doors,
		Price:       skiddle.ParsePrice(sub.Price),
		Genre:       sub.Genre,
		Genres:      genreNames(sub.Genre),
		Description: sub.Description,
		ImageURL:    sub.ImageURL,
		TicketURL:   sub.TicketURL,
		TicketMode:  mode,
		Source:      event.SourceManual,
		Approved:    true,
		Verified:    v.Verified,
	}
	if sub.Presale != "" {
		presale := skiddle.ParsePrice(sub.Presale)
		e.PresalePrice = &presale
		e.PresaleCaption = sub.PresaleNote
	}

	created, err := s.store.CreateEvent(ctx, e)
	if err != nil {
		return nil, false, fmt.Errorf("storing event: %w", err)
	}
	if !created {
		logger.Info("Submitted gig already listed", logger.Fields{
			"event_id":    e.ID,
			"fingerprint": e.Fingerprint,
		})
		return e, false, nil
	}

	logger.Info("Gig submitted", logger.Fields{
		"event_id": e.ID,
		"venue_id": v.ID,
		"date":     event.DateKey(e.StartsAt),
	})
	s.publish(ctx, publish.GigSubmitted, e)
	return e, true, nil
}

func (s *Service) validateEvent(sub *EventSubmission) (time.Time, event.TicketMode, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.VenueName = strings.TrimSpace(sub.VenueName)
	sub.City = strings.TrimSpace(sub.City)

	var problems []string
	if sub.Name == "" {
		problems = append(problems, "name is required")
	}
	if sub.VenueName == "" {
		problems = append(problems, "venue is required")
	} else if venue.Normalize(sub.VenueName) == "" {
		problems = append(problems, fmt.Sprintf("venue %q is not a usable name", sub.VenueName))
	}
	if sub.City == "" {
		problems = append(problems, "city is required")
	}

	var startsAt time.Time
	if strings.TrimSpace(sub.Date) == "" {
		problems = append(problems, "date is required")
	} else {
		startsAt = event.ParseDate(sub.Date)
		if startsAt.IsZero() {
			problems = append(problems, fmt.Sprintf("date %q is not recognised", sub.Date))
		} else if event.DateKey(startsAt) < event.DateKey(s.now()) {
			problems = append(problems, "date is in the past")
		}
	}

	mode := event.TicketMode(strings.ToLower(strings.TrimSpace(sub.TicketMode)))
	switch mode {
	case "":
		mode = event.TicketNone
	case event.TicketNone, event.TicketGuestList, event.TicketPaid:
	default:
		problems = append(problems, fmt.Sprintf("ticket mode %q is not one of none, guest_list, paid", sub.TicketMode))
	}

	if len(problems) > 0 {
		return time.Time{}, "", &ValidationError{Problems: problems}
	}
	return startsAt, mode, nil
}

// CreateVenue finds or creates a venue from a direct submission. Venues
// submitted without a gig wait for admin approval.
func (s *Service) CreateVenue(ctx context.Context, sub VenueSubmission) (*venue.Venue, bool, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.City = strings.TrimSpace(sub.City)

	var problems []string
	if sub.Name == "" {
		problems = append(problems, "name is required")
	} else if venue.Normalize(sub.Name) == "" {
		problems = append(problems, fmt.Sprintf("venue %q is not a usable name", sub.Name))
	}
	if sub.City == "" {
		problems = append(problems, "city is required")
	}
	if sub.Capacity < 0 {
		problems = append(problems, "capacity cannot be negative")
	}
	if len(problems) > 0 {
		return nil, false, &ValidationError{Problems: problems}
	}

	v, created, err := s.store.FindOrCreateVenue(ctx, s.newVenue(sub, false))
	if err != nil {
		return nil, false, fmt.Errorf("creating venue: %w", err)
	}
	if created {
		logger.Info("Venue created", logger.Fields{
			"venue_id":        v.ID,
			"normalized_name": v.NormalizedName,
			"city":            v.City,
		})
		s.publish(ctx, publish.VenueCreated, v)
	}
	return v, created, nil
}

func (s *Service) newVenue(sub VenueSubmission, approved bool) venue.Venue {
	v := venue.Venue{
		Name:         sub.Name,
		City:         sub.City,
		Postcode:     strings.ToUpper(strings.TrimSpace(sub.Postcode)),
		Capacity:     sub.Capacity,
		ContactEmail: strings.TrimSpace(sub.ContactEmail),
		ContactPhone: strings.TrimSpace(sub.ContactPhone),
		Website:      strings.TrimSpace(sub.Website),
		Approved:     approved,
	}
	if v.Postcode != "" {
		if p, ok := geo.ResolvePostcode(v.Postcode); ok {
			v.Lat, v.Lon = p.Lat, p.Lon
		}
	}
	return v
}

// ListVenues returns venues matching q.
func (s *Service) ListVenues(ctx context.Context, q storage.VenueQuery) ([]*venue.Venue, error) {
	return s.store.ListVenues(ctx, q)
}

// ApproveVenue approves a pending venue.
func (s *Service) ApproveVenue(ctx context.Context, id string) (*venue.Venue, error) {
	v, err := s.store.ApproveVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Info("Venue approved", logger.Fields{"venue_id": id})
	s.publish(ctx, publish.VenueApproved, v)
	return v, nil
}

// VerifyVenue marks a venue verified, approving it if needed.
func (s *Service) VerifyVenue(ctx context.Context, id string) (*venue.Venue, error) {
	v, err := s.store.VerifyVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Info("Venue verified", logger.Fields{"venue_id": id})
	s.publish(ctx, publish.VenueVerified, v)
	return v, nil
}

// RejectVenue deletes a venue with its unapproved gigs. Approved gigs stay
// listed without a venue link.
func (s *Service) RejectVenue(ctx context.Context, id string) (*storage.RejectResult, error) {
	result, err := s.store.RejectVenue(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Info("Venue rejected", logger.Fields{
		"venue_id":        id,
		"deleted_events":  result.DeletedEvents,
		"detached_events": result.DetachedEvents,
	})
	s.publish(ctx, publish.VenueRejected, result)
	return result, nil
}

// SetEventApproval updates a gig's moderation flags.
func (s *Service) SetEventApproval(ctx context.Context, id string, approved, verified bool) (*event.Event, error) {
	if verified && !approved {
		return nil, &ValidationError{Problems: []string{"a verified gig must be approved"}}
	}
	e, err := s.store.SetEventApproval(ctx, id, approved, verified)
	if err != nil {
		return nil, err
	}
	logger.Info("Gig approval updated", logger.Fields{
		"event_id": id,
		"approved": approved,
		"verified": verified,
	})
	s.publish(ctx, publish.GigApproval, e)
	return e, nil
}

// publish sends a message; delivery failures are logged and never fail the
// workflow.
func (s *Service) publish(ctx context.Context, key string, payload any) {
	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		logger.Warn("Failed to publish message", logger.Fields{"routing_key": key}, err)
	}
}

func genreNames(text string) []string {
	genres := vibe.SplitGenres(text)
	if len(genres) == 0 {
		return nil
	}
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	return names
}
