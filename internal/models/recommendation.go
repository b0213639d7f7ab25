package models

// Recommendation is one line of an externally produced estimate: how many
// units of a loosely named equipment type a site needs.
type Recommendation struct {
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}
