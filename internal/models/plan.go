package models

import "time"

// Plan is a billing plan from the plan catalog.
type Plan struct {
	PlanID      string `yaml:"id"`
	Name        string `yaml:"name"`
	IsActive    bool   `yaml:"active"`
	MaxUsers    int    `yaml:"max_users"`
	MaxProducts int    `yaml:"max_products"`

	CreatedAt time.Time `yaml:"-"`
	UpdatedAt time.Time `yaml:"-"`
}
