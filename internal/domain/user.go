package domain

import "time"

// User lives in a tenant database; IDs are only unique within that tenant.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
