package domain

import "time"

const PlanFree = "free"

type Tenant struct {
	ID        string
	Name      string
	Slug      string // globally unique
	Plan      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
