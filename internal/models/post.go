package models

import (
	"path"
	"time"
)

// Post is a text entry written by a user, optionally in a group and with an image.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Image     string    `gorm:"size:255;not null;default:''" json:"image"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// HasImage reports whether an image is attached.
func (p Post) HasImage() bool {
	return p.Image != ""
}

// ThumbnailPath returns the media-relative path of the webp thumbnail for the image.
func (p Post) ThumbnailPath() string {
	if p.Image == "" {
		return ""
	}
	return ThumbnailPathFor(p.Image)
}

// ThumbnailPathFor maps "posts/name.ext" to "posts/thumbs/name.ext.webp". The stored name is
// unique under posts/, so the thumbnail name is too.
func ThumbnailPathFor(image string) string {
	dir, file := path.Split(image)
	return path.Join(dir, "thumbs", file+".webp")
}

// Excerpt returns at most n runes of the text.
func (p Post) Excerpt(n int) string {
	r := []rune(p.Text)
	if len(r) <= n {
		return p.Text
	}
	return string(r[:n])
}
