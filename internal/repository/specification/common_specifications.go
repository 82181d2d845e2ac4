package specification

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID int64
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// ByIDs filters by a list of IDs
type ByIDs struct {
	IDs []int64
}

func (s ByIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id IN ?", s.IDs)
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// OlderThan keeps rows whose Field is strictly before Cutoff.
type OlderThan struct {
	Field  string
	Cutoff time.Time
}

func (s OlderThan) Apply(db *gorm.DB) *gorm.DB {
	return db.Where(fmt.Sprintf("%s < ?", s.Field), s.Cutoff)
}

// Scoped adapts a gorm scope function to a Specification.
type Scoped struct {
	Fn func(*gorm.DB) *gorm.DB
}

func (s Scoped) Apply(db *gorm.DB) *gorm.DB {
	return db.Scopes(s.Fn)
}
