package domain

import (
	"time"

	"github.com/google/uuid"
)

// Testimonial is a public patient review
type Testimonial struct {
	ID        uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Message   string    `json:"message"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
