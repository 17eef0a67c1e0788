package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/publish"
	"github.com/gigfinder/gigfinder/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.File, *publish.Recorder) {
	t.Helper()
	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	rec := &publish.Recorder{}
	svc := NewService(store, rec)
	svc.now = func() time.Time { return time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC) }
	return svc, store, rec
}

func validSubmission() EventSubmission {
	return EventSubmission{
		Name:       "The Angry Apple Trees",
		VenueName:  "Sneaky Pete's",
		City:       "Edinburgh",
		Postcode:   "EH1 1JS",
		Date:       "2025-12-05",
		Doors:      "19:00",
		Price:      "£8",
		Genre:      "Punk, Garage Rock",
		TicketMode: "guest_list",
	}
}

func TestSubmitEvent(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	e, created, err := svc.SubmitEvent(ctx, validSubmission())
	if err != nil {
		t.Fatalf("SubmitEvent: %v", err)
	}
	if !created {
		t.Fatal("expected a new event")
	}

	if e.ID == "" || e.VenueID == "" {
		t.Errorf("expected IDs to be assigned: %+v", e)
	}
	if e.Source != event.SourceManual || !e.Approved || e.Verified {
		t.Errorf("unexpected moderation state: source=%s approved=%v verified=%v", e.Source, e.Approved, e.Verified)
	}
	if e.Fingerprint != "2025-12-05|sneaky pete's|the angry apple trees" {
		t.Errorf("Fingerprint = %q", e.Fingerprint)
	}
	if e.TicketMode != event.TicketGuestList {
		t.Errorf("TicketMode = %q", e.TicketMode)
	}
	if e.Price.Amount == nil || *e.Price.Amount != 8 {
		t.Errorf("Price = %+v", e.Price)
	}
	if len(e.Genres) != 2 || e.Genres[1] != "Garage Rock" {
		t.Errorf("Genres = %v", e.Genres)
	}
	if e.Lat == 0 {
		t.Error("expected coordinates from the postcode")
	}

	v, err := store.GetVenue(ctx, e.VenueID)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Approved || v.Verified {
		t.Errorf("submitted venue should be approved but unverified: %+v", v)
	}

	keys := rec.Keys()
	if len(keys) != 2 || keys[0] != publish.VenueCreated || keys[1] != publish.GigSubmitted {
		t.Errorf("published %v", keys)
	}
}

func TestSubmitEvent_ReplacesScrapedCopy(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	scraped := &event.Event{
		Name:      "The Angry Apple Trees",
		VenueName: "Sneaky Pete's",
		StartsAt:  time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC),
		Source:    event.SourceScraped,
		Approved:  true,
	}
	if _, err := store.CreateEvent(ctx, scraped); err != nil {
		t.Fatal(err)
	}

	e, created, err := svc.SubmitEvent(ctx, validSubmission())
	if err != nil {
		t.Fatalf("SubmitEvent: %v", err)
	}
	if !created {
		t.Error("submission over a scraped listing should be stored")
	}
	if e.ID != scraped.ID {
		t.Errorf("ID = %s, want the scraped row %s", e.ID, scraped.ID)
	}

	stored, err := store.GetEvent(ctx, scraped.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Source != event.SourceManual || stored.TicketMode != event.TicketGuestList || stored.VenueID == "" {
		t.Errorf("stored event keeps scraped data: source=%s ticket_mode=%s venue_id=%q",
			stored.Source, stored.TicketMode, stored.VenueID)
	}

	keys := rec.Keys()
	if len(keys) != 2 || keys[1] != publish.GigSubmitted {
		t.Errorf("published %v", keys)
	}
}

func TestSubmitEvent_Duplicate(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.SubmitEvent(ctx, validSubmission())
	if err != nil {
		t.Fatal(err)
	}

	again := validSubmission()
	again.Name = "  the angry apple trees "
	again.VenueName = "SNEAKY PETE'S"
	again.Description = "resubmitted"

	second, created, err := svc.SubmitEvent(ctx, again)
	if err != nil {
		t.Fatalf("duplicate submission should not fail: %v", err)
	}
	if created {
		t.Error("expected the existing event")
	}
	if second.ID != first.ID || second.Description != "" {
		t.Errorf("got %+v, want stored event %s", second, first.ID)
	}

	if n := len(rec.Keys()); n != 2 {
		t.Errorf("duplicate should publish nothing, got %d messages", n)
	}
}

func TestSubmitEvent_ReusesVenue(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	a := validSubmission()
	b := validSubmission()
	b.Name = "Second Band"
	b.VenueName = "The Sneaky Petes Bar"

	e1, _, err := svc.SubmitEvent(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	e2, _, err := svc.SubmitEvent(ctx, b)
	if err != nil {
		t.Fatal(err)
	}

	if e1.VenueID != e2.VenueID {
		t.Errorf("expected one venue, got %s and %s", e1.VenueID, e2.VenueID)
	}
	if e2.VenueName != "The Sneaky Petes Bar" {
		t.Errorf("event should keep the venue name as listed, got %q", e2.VenueName)
	}
	venues, _ := store.ListVenues(ctx, storage.VenueQuery{})
	if len(venues) != 1 {
		t.Errorf("expected 1 venue, got %d", len(venues))
	}
}

func TestSubmitEvent_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*EventSubmission)
	}{
		{"missing name", func(s *EventSubmission) { s.Name = " " }},
		{"missing venue", func(s *EventSubmission) { s.VenueName = "" }},
		{"unusable venue", func(s *EventSubmission) { s.VenueName = "!!!" }},
		{"missing city", func(s *EventSubmission) { s.City = "" }},
		{"missing date", func(s *EventSubmission) { s.Date = "" }},
		{"bad date", func(s *EventSubmission) { s.Date = "next friday-ish" }},
		{"past date", func(s *EventSubmission) { s.Date = "2025-11-19" }},
		{"bad ticket mode", func(s *EventSubmission) { s.TicketMode = "door" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, rec := newTestService(t)
			sub := validSubmission()
			tt.modify(&sub)

			_, _, err := svc.SubmitEvent(context.Background(), sub)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || len(verr.Problems) != 1 {
				t.Errorf("expected one problem, got %v", err)
			}
			if len(rec.Messages) != 0 {
				t.Error("invalid submission should publish nothing")
			}
		})
	}
}

func TestCreateVenue(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	v, created, err := svc.CreateVenue(ctx, VenueSubmission{Name: "The Voodoo Rooms", City: "Edinburgh", Postcode: "eh2 2lr"})
	if err != nil {
		t.Fatal(err)
	}
	if !created || v.Approved || v.Verified {
		t.Errorf("new venue should be pending: created=%v %+v", created, v)
	}
	if v.Postcode != "EH2 2LR" {
		t.Errorf("Postcode = %q", v.Postcode)
	}

	again, created, err := svc.CreateVenue(ctx, VenueSubmission{Name: "THE VOODOO ROOMS", City: "edinburgh"})
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != v.ID {
		t.Errorf("expected existing venue %s, got %s (created=%v)", v.ID, again.ID, created)
	}

	if _, _, err := svc.CreateVenue(ctx, VenueSubmission{Name: "Somewhere"}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation without a city, got %v", err)
	}
	if keys := rec.Keys(); len(keys) != 1 || keys[0] != publish.VenueCreated {
		t.Errorf("published %v", keys)
	}
}

func TestVenueModeration(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	v, _, err := svc.CreateVenue(ctx, VenueSubmission{Name: "Leith Depot", City: "Edinburgh"})
	if err != nil {
		t.Fatal(err)
	}

	approved, err := svc.ApproveVenue(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !approved.Approved || approved.Verified {
		t.Errorf("after approve: %+v", approved)
	}

	verified, err := svc.VerifyVenue(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !verified.Verified {
		t.Error("expected verified venue")
	}

	pending, err := svc.ListVenues(ctx, storage.VenueQuery{Verified: boolPtr(false)})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no unverified venues, got %d", len(pending))
	}

	if _, err := svc.ApproveVenue(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	keys := rec.Keys()
	if keys[len(keys)-2] != publish.VenueApproved || keys[len(keys)-1] != publish.VenueVerified {
		t.Errorf("published %v", keys)
	}
}

func TestRejectVenue(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	kept, _, err := svc.SubmitEvent(ctx, validSubmission())
	if err != nil {
		t.Fatal(err)
	}
	pendingSub := validSubmission()
	pendingSub.Name = "Pending Band"
	pending, _, err := svc.SubmitEvent(ctx, pendingSub)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetEventApproval(ctx, pending.ID, false, false); err != nil {
		t.Fatal(err)
	}

	result, err := svc.RejectVenue(ctx, kept.VenueID)
	if err != nil {
		t.Fatalf("RejectVenue: %v", err)
	}
	if result.DeletedEvents != 1 || result.DetachedEvents != 1 {
		t.Errorf("result = %+v", result)
	}

	if _, err := store.GetEvent(ctx, pending.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unapproved event should be deleted, got %v", err)
	}
	survivor, err := store.GetEvent(ctx, kept.ID)
	if err != nil {
		t.Fatal(err)
	}
	if survivor.VenueID != "" {
		t.Errorf("approved event should be detached, VenueID = %q", survivor.VenueID)
	}

	keys := rec.Keys()
	if keys[len(keys)-1] != publish.VenueRejected {
		t.Errorf("published %v", keys)
	}
}

func TestSetEventApproval(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	e, _, err := svc.SubmitEvent(ctx, validSubmission())
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.SetEventApproval(ctx, e.ID, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.Verified {
		t.Error("expected verified event")
	}

	if _, err := svc.SetEventApproval(ctx, e.ID, false, true); !errors.Is(err, ErrValidation) {
		t.Errorf("verified without approval should be rejected, got %v", err)
	}
	if _, err := svc.SetEventApproval(ctx, "nope", true, false); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) error { return errors.New("broker down") }
func (failingPublisher) Close() error { return nil }

func TestSubmitEvent_PublishFailureIgnored(t *testing.T) {
	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(store, failingPublisher{})
	svc.now = func() time.Time { return time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC) }

	if _, created, err := svc.SubmitEvent(context.Background(), validSubmission()); err != nil || !created {
		t.Errorf("SubmitEvent() = %v, %v; want created", created, err)
	}
}

func boolPtr(b bool) *bool { return &b }
