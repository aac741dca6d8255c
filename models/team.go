package models

// Team represents a franchise known to the team directory
type Team struct {
	Name   string `json:"name"`
	City   string `json:"city"`
	Abbr   string `json:"abbr"`
	Sport  Sport  `json:"sport"`
	Active bool   `json:"active"`
}

// IsActive returns whether the team is currently active
func (t *Team) IsActive() bool {
	return t.Active
}

// DisplayName returns the full display name
func (t *Team) DisplayName() string {
	if t.City == "" {
		return t.Name
	}
	return t.City + " " + t.Name
}
