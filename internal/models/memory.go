// Package models defines the journal's data model: durable and provisional
// memory records, their images, upload tasks and the derived anniversary
// fields the client computes locally.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/google/uuid"
)

// Location is an optional place attached to a memory.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Image is a media file stored in the remote object store. It is owned by
// the record that references it.
type Image struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
}

// Record is a memory as confirmed by the document store. Its ID is durable.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Date      Date      `json:"date"`
	Text      string    `json:"text"`
	Location  *Location `json:"location,omitempty"`
	Images    []Image   `json:"images"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`

	// Derived on the client from Date; see Derive.
	DaysUntil  int `json:"daysUntil"`
	YearsSince int `json:"yearsSince"`
}

// ProvisionalRecord is an optimistic placeholder shown while its create
// mutation is in flight. Its ID carries common.ProvisionalIDPrefix and is
// replaced by the durable record once the document store answers.
type ProvisionalRecord struct {
	Record
	IdempotencyKey string
}

// Memory is either a Record or a ProvisionalRecord.
type Memory interface {
	memory()
	Base() Record
}

func (Record) memory()        {}
func (r Record) Base() Record { return r }

func (ProvisionalRecord) memory()        {}
func (p ProvisionalRecord) Base() Record { return p.Record }

// IsProvisional reports whether m has not been confirmed by the remote store.
func IsProvisional(m Memory) bool {
	_, ok := m.(ProvisionalRecord)
	return ok
}

// NewProvisionalID returns a client-side id for an optimistic record.
func NewProvisionalID(now time.Time) string {
	return fmt.Sprintf("%s%d-%s", common.ProvisionalIDPrefix, now.UnixMilli(), uuid.NewString()[:8])
}

// IsProvisionalID reports whether id was generated by NewProvisionalID.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, common.ProvisionalIDPrefix)
}

// IDOf returns the id of m.
func IDOf(m Memory) string {
	return m.Base().ID
}

// Draft carries the user-entered fields of a memory that does not exist yet.
type Draft struct {
	Title    string
	Date     Date
	Text     string
	Location *Location
	Tags     []string
}

// Validate checks required fields before any network call is made.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if d.Date.IsZero() {
		return fmt.Errorf("%w: date is required", common.ErrValidation)
	}
	return nil
}

// CreatePayload is sent to the document store. Images hold final URLs.
type CreatePayload struct {
	Title          string    `json:"title"`
	Date           Date      `json:"date"`
	Text           string    `json:"text"`
	Location       *Location `json:"location,omitempty"`
	Images         []Image   `json:"images"`
	Tags           []string  `json:"tags"`
	IdempotencyKey string    `json:"idempotencyKey"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title    *string   `json:"title,omitempty"`
	Date     *Date     `json:"date,omitempty"`
	Text     *string   `json:"text,omitempty"`
	Location *Location `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Date == nil && p.Text == nil && p.Location == nil && p.Tags == nil
}

// Validate rejects patches that would blank a required field.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", common.ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if p.Date != nil && p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", common.ErrValidation)
	}
	return nil
}

// Apply returns a copy of r with the patch applied. Derived fields are
// recomputed for now.
func (p Patch) Apply(r Record, now time.Time) Record {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.Location != nil {
		loc := *p.Location
		r.Location = &loc
	}
	if p.Tags != nil {
		r.Tags = append([]string(nil), p.Tags...)
	}
	return r.Derive(now)
}
