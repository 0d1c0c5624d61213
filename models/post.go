package models

import "time"

// Post is a tourism article managed by admins. Taxonomy rows are referenced by
// id only and loaded explicitly by callers.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	CategoryID  uint       `gorm:"index;not null" json:"category_id"`
	ProvinceID  *uint      `gorm:"index" json:"province_id"`
	Image       *string    `gorm:"size:512" json:"image"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsPublished reports whether the post is visible to readers at now.
func (p *Post) IsPublished(now time.Time) bool {
	return p.PublishedAt != nil && !p.PublishedAt.After(now)
}

// ImagePath returns the stored image key or "".
func (p *Post) ImagePath() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}
