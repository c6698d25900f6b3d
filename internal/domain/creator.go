package domain

import "time"

type Creator struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	StripeCustomerID *string   `json:"-"`
	LastSeenAt       time.Time `json:"lastSeenAt"`
	CreatedAt        time.Time `json:"createdAt"`
}
