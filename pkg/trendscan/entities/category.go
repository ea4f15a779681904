package entities

import "strings"

// Category is the entity class counted by the extractor
type Category string

const (
	Person       Category = "PERSON"
	Organization Category = "ORGANIZATION"
	Event        Category = "EVENT"
	Location     Category = "LOCATION"
)

// Categories lists the counted categories in presentation order
func Categories() []Category {
	return []Category{Person, Organization, Event, Location}
}

// CategoryForLabel maps a recognizer label to a counted category.
// Geo-political entities, locations and facilities all count as locations.
func CategoryForLabel(label string) (Category, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PERSON", "PER":
		return Person, true
	case "ORG", "ORGANIZATION", "ORGANISATION", "TEAM":
		return Organization, true
	case "EVENT":
		return Event, true
	case "GPE", "LOC", "LOCATION", "FAC", "FACILITY", "VENUE":
		return Location, true
	}
	return "", false
}
