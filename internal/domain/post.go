package domain

import (
	"time"

	"github.com/google/uuid"
)

// Categories a blog post may be filed under
var Categories = []string{
	"Eye Care Tips",
	"Glaucoma",
	"Cataract",
	"News & Events",
	"Technology",
	"General Health",
}

// IsValidCategory reports whether c is one of Categories
func IsValidCategory(c string) bool {
	for _, category := range Categories {
		if category == c {
			return true
		}
	}
	return false
}

// Section is an ordered content block owned by a post
type Section struct {
	Heading    string   `json:"heading"`
	Subheading string   `json:"subheading"`
	Content    string   `json:"content"`
	List       []string `json:"list"`
	Images     []string `json:"images"`
}

// Post represents a blog post
type Post struct {
	ID         uuid.UUID `json:"_id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Excerpt    string    `json:"excerpt"`
	Category   string    `json:"category"`
	CoverImage string    `json:"coverImage,omitempty"`
	Sections   []Section `json:"sections"`
	AuthorID   uuid.UUID `json:"-"`
	// Author is filled on reads; nil when the account no longer exists
	Author    *Author   `json:"author"`
	Featured  bool      `json:"featured"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Images returns the cover image followed by every section image
func (p *Post) Images() []string {
	var urls []string
	if p.CoverImage != "" {
		urls = append(urls, p.CoverImage)
	}
	for _, s := range p.Sections {
		urls = append(urls, s.Images...)
	}
	return urls
}

// SortOrder orders post listings by creation time
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder maps a query value to a SortOrder; anything but "oldest" is newest first
func ParseSortOrder(s string) SortOrder {
	if s == string(SortOldest) {
		return SortOldest
	}
	return SortNewest
}
