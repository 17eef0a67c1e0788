package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/venue"
)

// SnapshotFile is the file name used inside the data directory.
const SnapshotFile = "gigfinder.json"

// Snapshot is the on-disk layout of a File store.
type Snapshot struct {
	Venues    map[string]*venue.Venue `json:"venues"`
	Events    map[string]*event.Event `json:"events"`
	UpdatedAt string                  `json:"updated_at"`
}

// File is a Store kept in a single JSON snapshot file. It is safe for
// concurrent use within one process.
type File struct {
	mu   sync.Mutex
	path string
	snap *Snapshot

	fingerprints map[string]string // fingerprint -> event ID
	venueKeys    map[string]string // normalized name + city -> venue ID
	now          func() time.Time
}

var _ Store = (*File)(nil)

// NewFile opens or creates the snapshot in dataDir.
func NewFile(dataDir string) (*File, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	f := &File{
		path: filepath.Join(dataDir, SnapshotFile),
		now:  time.Now,
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	snap := &Snapshot{}

	data, err := os.ReadFile(f.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("reading snapshot: %w", err)
	default:
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("parsing snapshot: %w", err)
		}
	}

	if snap.Venues == nil {
		snap.Venues = make(map[string]*venue.Venue)
	}
	if snap.Events == nil {
		snap.Events = make(map[string]*event.Event)
	}

	f.snap = snap
	f.fingerprints = make(map[string]string, len(snap.Events))
	for id, e := range snap.Events {
		if fp, err := e.ComputeFingerprint(); err == nil {
			f.fingerprints[fp] = id
		}
	}
	f.venueKeys = make(map[string]string, len(snap.Venues))
	for id, v := range snap.Venues {
		f.venueKeys[venueKey(v.Name, v.City)] = id
	}
	return nil
}

func (f *File) save() error {
	f.snap.UpdatedAt = f.now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(f.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

func venueKey(name, city string) string {
	n, c := venue.Identity(name, city)
	return n + "\x00" + c
}

// ListEvents returns matching events ordered by start time.
func (f *File) ListEvents(_ context.Context, q EventQuery) ([]*event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := make([]*event.Event, 0, len(f.snap.Events))
	for _, e := range f.snap.Events {
		if q.matches(e) {
			events = append(events, copyEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartsAt.Equal(events[j].StartsAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	if q.Limit > 0 && len(events) > q.Limit {
		events = events[:q.Limit]
	}
	return events, nil
}

// GetEvent returns one event by ID.
func (f *File) GetEvent(_ context.Context, id string) (*event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.snap.Events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return copyEvent(e), nil
}

// CreateEvent inserts an event unless its fingerprint is already stored. A
// first-party event replaces a stored third-party one in place.
func (f *File) CreateEvent(_ context.Context, e *event.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := prepareEvent(e, uuid.NewString(), f.now()); err != nil {
		return false, err
	}
	if id, ok := f.fingerprints[e.Fingerprint]; ok {
		stored := f.snap.Events[id]
		if !supersedes(e, stored) {
			*e = *copyEvent(stored)
			return false, nil
		}
		e.ID = stored.ID
		e.CreatedAt = stored.CreatedAt
		c := copyEvent(e)
		f.snap.Events[id] = c
		if err := f.save(); err != nil {
			f.snap.Events[id] = stored
			return false, err
		}
		return true, nil
	}

	c := copyEvent(e)
	f.snap.Events[c.ID] = c
	f.fingerprints[c.Fingerprint] = c.ID
	if err := f.save(); err != nil {
		delete(f.snap.Events, c.ID)
		delete(f.fingerprints, c.Fingerprint)
		return false, err
	}
	return true, nil
}

// HasFingerprint reports whether an event with the fingerprint is stored.
func (f *File) HasFingerprint(_ context.Context, fingerprint string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.fingerprints[fingerprint]
	return ok, nil
}

// SetEventApproval updates the approval and verification flags of an event.
func (f *File) SetEventApproval(_ context.Context, id string, approved, verified bool) (*event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.snap.Events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	e.Approved = approved
	e.Verified = verified
	if err := f.save(); err != nil {
		return nil, err
	}
	return copyEvent(e), nil
}

// FindOrCreateVenue returns the venue matching v's identity, creating it if
// needed.
func (f *File) FindOrCreateVenue(_ context.Context, v venue.Venue) (*venue.Venue, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v.Prepare()
	if v.NormalizedName == "" {
		return nil, false, fmt.Errorf("venue name %q has no identity", v.Name)
	}

	key := venueKey(v.Name, v.City)
	if id, ok := f.venueKeys[key]; ok {
		c := *f.snap.Venues[id]
		return &c, false, nil
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = f.now()
	}
	f.snap.Venues[v.ID] = &v
	f.venueKeys[key] = v.ID
	if err := f.save(); err != nil {
		delete(f.snap.Venues, v.ID)
		delete(f.venueKeys, key)
		return nil, false, err
	}
	c := v
	return &c, true, nil
}

// GetVenue returns one venue by ID.
func (f *File) GetVenue(_ context.Context, id string) (*venue.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.snap.Venues[id]
	if !ok {
		return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}
	c := *v
	return &c, nil
}

// ListVenues returns matching venues ordered by name.
func (f *File) ListVenues(_ context.Context, q VenueQuery) ([]*venue.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	venues := make([]*venue.Venue, 0, len(f.snap.Venues))
	for _, v := range f.snap.Venues {
		if q.matches(v) {
			c := *v
			venues = append(venues, &c)
		}
	}
	sort.Slice(venues, func(i, j int) bool {
		if venues[i].NormalizedName == venues[j].NormalizedName {
			return venues[i].ID < venues[j].ID
		}
		return venues[i].NormalizedName < venues[j].NormalizedName
	})
	return venues, nil
}

// ApproveVenue marks a venue approved.
func (f *File) ApproveVenue(_ context.Context, id string) (*venue.Venue, error) {
	return f.updateVenue(id, func(v *venue.Venue) { v.Approved = true })
}

// VerifyVenue marks a venue verified. Verification implies approval.
func (f *File) VerifyVenue(_ context.Context, id string) (*venue.Venue, error) {
	return f.updateVenue(id, func(v *venue.Venue) {
		v.Approved = true
		v.Verified = true
	})
}

func (f *File) updateVenue(id string, update func(*venue.Venue)) (*venue.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.snap.Venues[id]
	if !ok {
		return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}
	update(v)
	if err := f.save(); err != nil {
		return nil, err
	}
	c := *v
	return &c, nil
}

// RejectVenue removes a venue and its unapproved events.
func (f *File) RejectVenue(_ context.Context, id string) (*RejectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.snap.Venues[id]
	if !ok {
		return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}

	result := &RejectResult{Venue: v}
	for eid, e := range f.snap.Events {
		if e.VenueID != id {
			continue
		}
		if e.Approved {
			e.VenueID = ""
			result.DetachedEvents++
			continue
		}
		delete(f.snap.Events, eid)
		delete(f.fingerprints, e.Fingerprint)
		result.DeletedEvents++
	}
	delete(f.snap.Venues, id)
	delete(f.venueKeys, venueKey(v.Name, v.City))

	if err := f.save(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close is a no-op; every mutation is written immediately.
func (f *File) Close() error {
	return nil
}
