package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is an account. Username and email are stored lowercased so the unique
// indexes compare case-insensitively on every backend.
type User struct {
	ID               uint   `gorm:"primaryKey"`
	Username         string `gorm:"size:150;not null;uniqueIndex"`
	Email            string `gorm:"size:254;not null;uniqueIndex"`
	Role             Role   `gorm:"size:20;not null;default:'user'"`
	FirstName        string `gorm:"size:150"`
	LastName         string `gorm:"size:150"`
	Bio              string `gorm:"size:1024"`
	IsSuperuser      bool   `gorm:"not null;default:false"`
	ConfirmationCode string `gorm:"size:64"`
	CodeNonce        string `gorm:"size:64"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) PrincipalID() uint {
	if u == nil {
		return 0
	}
	return u.ID
}

// IsAdmin reports admin role or the elevated system flag.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}

func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

type Category struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:256;not null"`
	Slug string `gorm:"size:50;not null;uniqueIndex"`
}

type Genre struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:256;not null"`
	Slug string `gorm:"size:50;not null;uniqueIndex"`
}

type Title struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:256;not null;index"`
	Year        int    `gorm:"not null;index"`
	Description *string
	CategoryID  *uint     `gorm:"index"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;"`
	Genres      []Genre   `gorm:"many2many:genre_titles;constraint:OnDelete:CASCADE;"`

	// Rating is filled by queries that aggregate review scores.
	Rating *float64 `gorm:"->;-:migration"`
}

type Review struct {
	ID       uint      `gorm:"primaryKey"`
	AuthorID uint      `gorm:"not null;uniqueIndex:uniq_review_author_title"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;"`
	TitleID  uint      `gorm:"not null;uniqueIndex:uniq_review_author_title;index"`
	Title    Title     `gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE;"`
	Text     string    `gorm:"type:text;not null"`
	Score    int       `gorm:"not null;check:score >= 1 AND score <= 10"`
	PubDate  time.Time `gorm:"not null;autoCreateTime;index"`
}

type Comment struct {
	ID       uint      `gorm:"primaryKey"`
	AuthorID uint      `gorm:"not null;index"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;"`
	ReviewID uint      `gorm:"not null;index"`
	Review   Review    `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE;"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"not null;autoCreateTime;index"`
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{}, &Category{}, &Genre{}, &Title{}, &Review{}, &Comment{},
	}
}
