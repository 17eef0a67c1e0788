package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/venue"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// runStoreTests exercises the Store contract against any implementation.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("venue find or create", func(t *testing.T) {
		s := newStore(t)

		v1, created, err := s.FindOrCreateVenue(ctx, venue.Venue{Name: "The Liquid Rooms", City: "Edinburgh", Approved: true})
		if err != nil {
			t.Fatalf("FindOrCreateVenue: %v", err)
		}
		if !created || v1.ID == "" {
			t.Fatalf("expected new venue with ID, got created=%v id=%q", created, v1.ID)
		}
		if v1.NormalizedName != "liquid room" || v1.Capacity != 800 {
			t.Errorf("unexpected venue: %+v", v1)
		}

		v2, created, err := s.FindOrCreateVenue(ctx, venue.Venue{Name: "Liquid Room", City: "EDINBURGH"})
		if err != nil {
			t.Fatalf("FindOrCreateVenue: %v", err)
		}
		if created || v2.ID != v1.ID {
			t.Errorf("expected existing venue %s, got created=%v id=%s", v1.ID, created, v2.ID)
		}

		v3, created, err := s.FindOrCreateVenue(ctx, venue.Venue{Name: "Liquid Room", City: "Glasgow"})
		if err != nil {
			t.Fatalf("FindOrCreateVenue: %v", err)
		}
		if !created || v3.ID == v1.ID {
			t.Error("same name in another city should be a new venue")
		}

		if _, _, err := s.FindOrCreateVenue(ctx, venue.Venue{Name: "!!!"}); err == nil {
			t.Error("expected error for a name with no identity")
		}
	})

	t.Run("event create dedups by fingerprint", func(t *testing.T) {
		s := newStore(t)

		e1 := &event.Event{Name: "The Angry Apple Trees", VenueName: "Sneaky Pete's", StartsAt: date("2025-12-05"), Approved: true}
		created, err := s.CreateEvent(ctx, e1)
		if err != nil || !created {
			t.Fatalf("CreateEvent: created=%v err=%v", created, err)
		}
		if e1.ID == "" || e1.Fingerprint != "2025-12-05|sneaky pete's|the angry apple trees" {
			t.Errorf("unexpected stored event: %+v", e1)
		}
		if e1.Source != event.SourceManual {
			t.Errorf("Source = %q, want manual", e1.Source)
		}

		e2 := &event.Event{Name: "the angry apple trees", VenueName: "SNEAKY PETE'S", StartsAt: date("2025-12-05"), Source: event.SourceScraped}
		created, err = s.CreateEvent(ctx, e2)
		if err != nil {
			t.Fatalf("CreateEvent duplicate: %v", err)
		}
		if created || e2.ID != e1.ID {
			t.Errorf("duplicate should resolve to %s, got created=%v id=%s", e1.ID, created, e2.ID)
		}

		ok, err := s.HasFingerprint(ctx, e1.Fingerprint)
		if err != nil || !ok {
			t.Errorf("HasFingerprint = %v, %v", ok, err)
		}

		_, err = s.CreateEvent(ctx, &event.Event{Name: "No venue", StartsAt: date("2025-12-05")})
		if !errors.Is(err, event.ErrMalformed) {
			t.Errorf("expected ErrMalformed, got %v", err)
		}
	})

	t.Run("first-party event replaces stored third-party event", func(t *testing.T) {
		s := newStore(t)

		scraped := &event.Event{Name: "The Angry Apple Trees", VenueName: "Sneaky Pete's", StartsAt: date("2025-12-05"),
			Source: event.SourceScraped, Approved: true, Price: event.Price{Text: "£5"}}
		if _, err := s.CreateEvent(ctx, scraped); err != nil {
			t.Fatalf("CreateEvent scraped: %v", err)
		}

		presale := 6.0
		manual := &event.Event{Name: "The Angry Apple Trees", VenueName: "Sneaky Pete's", StartsAt: date("2025-12-05"),
			Source: event.SourceManual, Approved: true, TicketMode: event.TicketGuestList,
			PresalePrice: &event.Price{Amount: &presale}, PresaleCaption: "early bird"}
		created, err := s.CreateEvent(ctx, manual)
		if err != nil {
			t.Fatalf("CreateEvent manual: %v", err)
		}
		if !created {
			t.Error("first-party event over a scraped one should be written")
		}
		if manual.ID != scraped.ID {
			t.Errorf("replacement should keep ID %s, got %s", scraped.ID, manual.ID)
		}

		got, err := s.GetEvent(ctx, scraped.ID)
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		if got.Source != event.SourceManual || got.TicketMode != event.TicketGuestList {
			t.Errorf("stored event not replaced: source=%s ticket_mode=%s", got.Source, got.TicketMode)
		}
		if got.PresalePrice == nil || got.PresalePrice.Amount == nil || *got.PresalePrice.Amount != 6 {
			t.Errorf("presale not stored: %+v", got.PresalePrice)
		}
		if got.Price.Text != "" {
			t.Errorf("third-party price should be gone, got %q", got.Price.Text)
		}

		again := &event.Event{Name: "the angry apple trees", VenueName: "sneaky pete's", StartsAt: date("2025-12-05"), Source: event.SourceManual}
		created, err = s.CreateEvent(ctx, again)
		if err != nil {
			t.Fatalf("CreateEvent second manual: %v", err)
		}
		if created || again.TicketMode != event.TicketGuestList {
			t.Errorf("manual over manual should return the stored event, got created=%v %+v", created, again)
		}

		late := &event.Event{Name: "The Angry Apple Trees", VenueName: "Sneaky Pete's", StartsAt: date("2025-12-05"), Source: event.SourceSkiddle}
		created, err = s.CreateEvent(ctx, late)
		if err != nil {
			t.Fatalf("CreateEvent third-party: %v", err)
		}
		if created || late.Source != event.SourceManual {
			t.Errorf("third-party event must not replace first-party one, got created=%v source=%s", created, late.Source)
		}

		events, err := s.ListEvents(ctx, EventQuery{})
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 1 {
			t.Errorf("expected one stored event, got %d", len(events))
		}
	})

	t.Run("list events", func(t *testing.T) {
		s := newStore(t)

		for _, e := range []*event.Event{
			{Name: "Late", VenueName: "V", StartsAt: date("2025-12-10"), Approved: true, Source: event.SourceManual},
			{Name: "Early", VenueName: "V", StartsAt: date("2025-12-01"), Approved: true, Source: event.SourceScraped},
			{Name: "Hidden", VenueName: "V", StartsAt: date("2025-12-05"), Approved: false, Source: event.SourceManual},
			{Name: "Past", VenueName: "V", StartsAt: date("2025-11-01"), Approved: true, Source: event.SourceManual},
		} {
			if _, err := s.CreateEvent(ctx, e); err != nil {
				t.Fatalf("CreateEvent: %v", err)
			}
		}

		events, err := s.ListEvents(ctx, EventQuery{From: date("2025-11-15")})
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if len(events) != 2 || events[0].Name != "Early" || events[1].Name != "Late" {
			t.Errorf("unexpected events: %v", names(events))
		}

		events, err = s.ListEvents(ctx, EventQuery{Sources: []event.Source{event.SourceManual}, IncludeUnapproved: true})
		if err != nil {
			t.Fatalf("ListEvents: %v", err)
		}
		if len(events) != 3 {
			t.Errorf("expected 3 manual events, got %v", names(events))
		}
	})

	t.Run("get and approve event", func(t *testing.T) {
		s := newStore(t)

		e := &event.Event{Name: "Gig", VenueName: "V", StartsAt: date("2025-12-01")}
		if _, err := s.CreateEvent(ctx, e); err != nil {
			t.Fatal(err)
		}

		got, err := s.SetEventApproval(ctx, e.ID, true, true)
		if err != nil {
			t.Fatalf("SetEventApproval: %v", err)
		}
		if !got.Approved || !got.Verified {
			t.Errorf("flags not updated: %+v", got)
		}

		got, err = s.GetEvent(ctx, e.ID)
		if err != nil || !got.Approved {
			t.Errorf("GetEvent = %+v, %v", got, err)
		}

		if _, err := s.GetEvent(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.SetEventApproval(ctx, "missing", true, true); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("venue approval and listing", func(t *testing.T) {
		s := newStore(t)

		a, _, _ := s.FindOrCreateVenue(ctx, venue.Venue{Name: "Sneaky Pete's", City: "Edinburgh"})
		b, _, _ := s.FindOrCreateVenue(ctx, venue.Venue{Name: "Cathouse", City: "Glasgow", Approved: true})

		if _, err := s.ApproveVenue(ctx, a.ID); err != nil {
			t.Fatalf("ApproveVenue: %v", err)
		}
		verified, err := s.VerifyVenue(ctx, b.ID)
		if err != nil || !verified.Verified || !verified.Approved {
			t.Fatalf("VerifyVenue = %+v, %v", verified, err)
		}

		yes := true
		list, err := s.ListVenues(ctx, VenueQuery{Approved: &yes})
		if err != nil || len(list) != 2 {
			t.Fatalf("ListVenues approved = %d, %v", len(list), err)
		}
		list, err = s.ListVenues(ctx, VenueQuery{Verified: &yes})
		if err != nil || len(list) != 1 || list[0].ID != b.ID {
			t.Errorf("ListVenues verified = %v, %v", list, err)
		}
		list, err = s.ListVenues(ctx, VenueQuery{City: "glasgow"})
		if err != nil || len(list) != 1 {
			t.Errorf("ListVenues city = %v, %v", list, err)
		}

		got, err := s.GetVenue(ctx, a.ID)
		if err != nil || !got.Approved {
			t.Errorf("GetVenue = %+v, %v", got, err)
		}
		if _, err := s.ApproveVenue(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reject venue cascades", func(t *testing.T) {
		s := newStore(t)

		v, _, err := s.FindOrCreateVenue(ctx, venue.Venue{Name: "Dodgy Bar", City: "Leith"})
		if err != nil {
			t.Fatal(err)
		}
		pending := &event.Event{Name: "Pending", VenueID: v.ID, VenueName: v.Name, StartsAt: date("2025-12-01")}
		live := &event.Event{Name: "Live", VenueID: v.ID, VenueName: v.Name, StartsAt: date("2025-12-02"), Approved: true}
		for _, e := range []*event.Event{pending, live} {
			if _, err := s.CreateEvent(ctx, e); err != nil {
				t.Fatal(err)
			}
		}

		result, err := s.RejectVenue(ctx, v.ID)
		if err != nil {
			t.Fatalf("RejectVenue: %v", err)
		}
		if result.DeletedEvents != 1 || result.DetachedEvents != 1 {
			t.Errorf("RejectVenue = %+v", result)
		}

		if _, err := s.GetVenue(ctx, v.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("venue should be gone, got %v", err)
		}
		if _, err := s.GetEvent(ctx, pending.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("unapproved event should be deleted, got %v", err)
		}
		kept, err := s.GetEvent(ctx, live.ID)
		if err != nil {
			t.Fatalf("approved event should survive: %v", err)
		}
		if kept.VenueID != "" || kept.VenueName != "Dodgy Bar" {
			t.Errorf("approved event not detached: %+v", kept)
		}
		if ok, _ := s.HasFingerprint(ctx, pending.Fingerprint); ok {
			t.Error("deleted event fingerprint should be free")
		}
	})
}

func names(events []*event.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Name
	}
	return out
}
