package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/venue"
)

// venueRow is the venues table.
type venueRow struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	Name           string `gorm:"not null"`
	NormalizedName string `gorm:"not null;uniqueIndex:idx_venue_identity"`
	City           string
	CityKey        string `gorm:"not null;uniqueIndex:idx_venue_identity"`
	Postcode       string
	Lat            float64
	Lon            float64
	Capacity       int
	ContactEmail   string
	ContactPhone   string
	Website        string
	Approved       bool `gorm:"not null;default:false;index"`
	Verified       bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (venueRow) TableName() string { return "venues" }

// eventRow is the events table.
type eventRow struct {
	ID             string  `gorm:"primaryKey;type:uuid"`
	Name           string  `gorm:"not null"`
	VenueID        *string `gorm:"type:uuid;index"`
	VenueName      string  `gorm:"not null"`
	Town           string
	Lat            float64
	Lon            float64
	Capacity       int
	StartsAt       time.Time `gorm:"not null;index"`
	DoorsTime      string
	PriceText      string
	PriceAmount    *float64
	Currency       string
	PresaleText    string
	PresaleAmount  *float64
	PresaleCaption string
	Genre          string
	Genres         []string `gorm:"serializer:json"`
	Description    string
	ImageURL       string
	TicketURL      string
	TicketMode     string `gorm:"not null;default:none"`
	Source         string `gorm:"not null;index"`
	Fingerprint    string `gorm:"not null;uniqueIndex"`
	Approved       bool   `gorm:"not null;default:false;index"`
	Verified       bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (eventRow) TableName() string { return "events" }

// Postgres is a Store backed by PostgreSQL through gorm.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

// PoolConfig tunes the underlying connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPool is used when OpenPostgres receives a zero PoolConfig.
var DefaultPool = PoolConfig{
	MaxOpenConns:    25,
	MaxIdleConns:    10,
	ConnMaxLifetime: 5 * time.Minute,
	ConnMaxIdleTime: time.Minute,
}

// OpenPostgres connects to dsn and tunes the pool. It does not migrate.
func OpenPostgres(dsn string, pool PoolConfig) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	if pool == (PoolConfig{}) {
		pool = DefaultPool
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	return &Postgres{db: db}, nil
}

// Migrate creates or updates the schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(&venueRow{}, &eventRow{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListEvents returns matching events ordered by start time.
func (p *Postgres) ListEvents(ctx context.Context, q EventQuery) ([]*event.Event, error) {
	tx := p.db.WithContext(ctx).Model(&eventRow{})
	if !q.IncludeUnapproved {
		tx = tx.Where("approved = ?", true)
	}
	if !q.From.IsZero() {
		from := time.Date(q.From.Year(), q.From.Month(), q.From.Day(), 0, 0, 0, 0, time.UTC)
		tx = tx.Where("starts_at >= ?", from)
	}
	if q.VenueID != "" {
		tx = tx.Where("venue_id = ?", q.VenueID)
	}
	if len(q.Sources) > 0 {
		sources := make([]string, len(q.Sources))
		for i, s := range q.Sources {
			sources[i] = string(s)
		}
		tx = tx.Where("source IN ?", sources)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []eventRow
	if err := tx.Order("starts_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEvent()
	}
	return events, nil
}

// GetEvent returns one event by ID.
func (p *Postgres) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	row, err := p.findEvent(p.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toEvent(), nil
}

func (p *Postgres) findEvent(tx *gorm.DB, id string) (*eventRow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	var row eventRow
	if err := tx.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading event %s: %w", id, err)
	}
	return &row, nil
}

// CreateEvent inserts an event, resolving fingerprint conflicts to the
// existing row. A first-party event replaces a stored third-party row in
// place, keeping its ID.
func (p *Postgres) CreateEvent(ctx context.Context, e *event.Event) (bool, error) {
	if err := prepareEvent(e, uuid.NewString(), time.Now()); err != nil {
		return false, err
	}

	created := false
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := eventRowFrom(e)
		res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
			Create(row)
		if res.Error != nil {
			return fmt.Errorf("inserting event: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			created = true
			return nil
		}

		var existing eventRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&existing, "fingerprint = ?", e.Fingerprint).Error; err != nil {
			return fmt.Errorf("loading existing event: %w", err)
		}
		stored := existing.toEvent()
		if !supersedes(e, stored) {
			*e = *stored
			return nil
		}

		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		row = eventRowFrom(e)
		if err := tx.Model(&existing).Select("*").Omit("id", "fingerprint", "created_at").Updates(row).Error; err != nil {
			return fmt.Errorf("replacing event %s: %w", existing.ID, err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// HasFingerprint reports whether an event with the fingerprint is stored.
func (p *Postgres) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	if err := p.db.WithContext(ctx).Model(&eventRow{}).Where("fingerprint = ?", fingerprint).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking fingerprint: %w", err)
	}
	return count > 0, nil
}

// SetEventApproval updates the approval and verification flags of an event.
func (p *Postgres) SetEventApproval(ctx context.Context, id string, approved, verified bool) (*event.Event, error) {
	tx := p.db.WithContext(ctx)
	row, err := p.findEvent(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Model(row).Updates(map[string]any{"approved": approved, "verified": verified}).Error; err != nil {
		return nil, fmt.Errorf("updating event %s: %w", id, err)
	}
	row.Approved = approved
	row.Verified = verified
	return row.toEvent(), nil
}

// FindOrCreateVenue returns the venue matching v's identity, creating it if
// needed.
func (p *Postgres) FindOrCreateVenue(ctx context.Context, v venue.Venue) (*venue.Venue, bool, error) {
	v.Prepare()
	if v.NormalizedName == "" {
		return nil, false, fmt.Errorf("venue name %q has no identity", v.Name)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}

	row := venueRowFrom(&v)
	res := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}, {Name: "city_key"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, false, fmt.Errorf("inserting venue: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return row.toVenue(), true, nil
	}

	var existing venueRow
	err := p.db.WithContext(ctx).
		First(&existing, "normalized_name = ? AND city_key = ?", row.NormalizedName, row.CityKey).Error
	if err != nil {
		return nil, false, fmt.Errorf("loading existing venue: %w", err)
	}
	return existing.toVenue(), false, nil
}

// GetVenue returns one venue by ID.
func (p *Postgres) GetVenue(ctx context.Context, id string) (*venue.Venue, error) {
	row, err := p.findVenue(p.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.toVenue(), nil
}

func (p *Postgres) findVenue(tx *gorm.DB, id string) (*venueRow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
	}
	var row venueRow
	if err := tx.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("venue %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading venue %s: %w", id, err)
	}
	return &row, nil
}

// ListVenues returns matching venues ordered by normalized name.
func (p *Postgres) ListVenues(ctx context.Context, q VenueQuery) ([]*venue.Venue, error) {
	tx := p.db.WithContext(ctx).Model(&venueRow{})
	if q.Approved != nil {
		tx = tx.Where("approved = ?", *q.Approved)
	}
	if q.Verified != nil {
		tx = tx.Where("verified = ?", *q.Verified)
	}
	if city := strings.TrimSpace(q.City); city != "" {
		tx = tx.Where("city_key = ?", strings.ToLower(city))
	}

	var rows []venueRow
	if err := tx.Order("normalized_name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	venues := make([]*venue.Venue, len(rows))
	for i := range rows {
		venues[i] = rows[i].toVenue()
	}
	return venues, nil
}

// ApproveVenue marks a venue approved.
func (p *Postgres) ApproveVenue(ctx context.Context, id string) (*venue.Venue, error) {
	return p.updateVenue(ctx, id, map[string]any{"approved": true})
}

// VerifyVenue marks a venue verified. Verification implies approval.
func (p *Postgres) VerifyVenue(ctx context.Context, id string) (*venue.Venue, error) {
	return p.updateVenue(ctx, id, map[string]any{"approved": true, "verified": true})
}

func (p *Postgres) updateVenue(ctx context.Context, id string, fields map[string]any) (*venue.Venue, error) {
	tx := p.db.WithContext(ctx)
	row, err := p.findVenue(tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Model(row).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("updating venue %s: %w", id, err)
	}
	updated, err := p.findVenue(tx, id)
	if err != nil {
		return nil, err
	}
	return updated.toVenue(), nil
}

// RejectVenue removes a venue and its unapproved events in one transaction.
func (p *Postgres) RejectVenue(ctx context.Context, id string) (*RejectResult, error) {
	var result RejectResult
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := p.findVenue(tx, id)
		if err != nil {
			return err
		}
		result.Venue = row.toVenue()

		del := tx.Where("venue_id = ? AND approved = ?", id, false).Delete(&eventRow{})
		if del.Error != nil {
			return fmt.Errorf("deleting unapproved events: %w", del.Error)
		}
		result.DeletedEvents = int(del.RowsAffected)

		detach := tx.Model(&eventRow{}).Where("venue_id = ?", id).Update("venue_id", nil)
		if detach.Error != nil {
			return fmt.Errorf("detaching approved events: %w", detach.Error)
		}
		result.DetachedEvents = int(detach.RowsAffected)

		if err := tx.Delete(&venueRow{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("deleting venue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func venueRowFrom(v *venue.Venue) *venueRow {
	return &venueRow{
		ID:             v.ID,
		Name:           v.Name,
		NormalizedName: v.NormalizedName,
		City:           v.City,
		CityKey:        strings.ToLower(v.City),
		Postcode:       v.Postcode,
		Lat:            v.Lat,
		Lon:            v.Lon,
		Capacity:       v.Capacity,
		ContactEmail:   v.ContactEmail,
		ContactPhone:   v.ContactPhone,
		Website:        v.Website,
		Approved:       v.Approved,
		Verified:       v.Verified,
		CreatedAt:      v.CreatedAt,
	}
}

func (r *venueRow) toVenue() *venue.Venue {
	return &venue.Venue{
		ID:             r.ID,
		Name:           r.Name,
		NormalizedName: r.NormalizedName,
		City:           r.City,
		Postcode:       r.Postcode,
		Lat:            r.Lat,
		Lon:            r.Lon,
		Capacity:       r.Capacity,
		ContactEmail:   r.ContactEmail,
		ContactPhone:   r.ContactPhone,
		Website:        r.Website,
		Approved:       r.Approved,
		Verified:       r.Verified,
		CreatedAt:      r.CreatedAt,
	}
}

func eventRowFrom(e *event.Event) *eventRow {
	row := &eventRow{
		ID:          e.ID,
		Name:        e.Name,
		VenueName:   e.VenueName,
		Town:        e.Town,
		Lat:         e.Lat,
		Lon:         e.Lon,
		Capacity:    e.Capacity,
		StartsAt:    e.StartsAt,
		DoorsTime:   e.DoorsTime,
		PriceText:   e.Price.Text,
		PriceAmount: e.Price.Amount,
		Currency:    e.Price.Currency,
		Genre:       e.Genre,
		Genres:      e.Genres,
		Description: e.Description,
		ImageURL:    e.ImageURL,
		TicketURL:   e.TicketURL,
		TicketMode:  string(e.TicketMode),
		Source:      string(e.Source),
		Fingerprint: e.Fingerprint,
		Approved:    e.Approved,
		Verified:    e.Verified,
		CreatedAt:   e.CreatedAt,
	}
	if e.VenueID != "" {
		id := e.VenueID
		row.VenueID = &id
	}
	if e.PresalePrice != nil {
		row.PresaleText = e.PresalePrice.Text
		row.PresaleAmount = e.PresalePrice.Amount
	}
	row.PresaleCaption = e.PresaleCaption
	return row
}

func (r *eventRow) toEvent() *event.Event {
	e := &event.Event{
		ID:        r.ID,
		Name:      r.Name,
		VenueName: r.VenueName,
		Town:      r.Town,
		Lat:       r.Lat,
		Lon:       r.Lon,
		Capacity:  r.Capacity,
		StartsAt:  r.StartsAt,
		DoorsTime: r.DoorsTime,
		Price: event.Price{
			Text:     r.PriceText,
			Amount:   r.PriceAmount,
			Currency: r.Currency,
		},
		PresaleCaption: r.PresaleCaption,
		Genre:          r.Genre,
		Genres:         r.Genres,
		Description:    r.Description,
		ImageURL:       r.ImageURL,
		TicketURL:      r.TicketURL,
		TicketMode:     event.TicketMode(r.TicketMode),
		Source:         event.Source(r.Source),
		Fingerprint:    r.Fingerprint,
		Approved:       r.Approved,
		Verified:       r.Verified,
		CreatedAt:      r.CreatedAt,
	}
	if r.VenueID != nil {
		e.VenueID = *r.VenueID
	}
	if r.PresaleText != "" || r.PresaleAmount != nil {
		e.PresalePrice = &event.Price{Text: r.PresaleText, Amount: r.PresaleAmount, Currency: r.Currency}
	}
	return e
}
