package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidCategory is returned when a category name is not one of the known categories.
var ErrInvalidCategory = errors.New("invalid category")

// Category classifies a recommendable place.
type Category string

const (
	CategoryStudy   Category = "Study"
	CategoryDining  Category = "Dining"
	CategoryRec     Category = "Rec"
	CategoryLibrary Category = "Library"
	CategoryEvent   Category = "Event"
	CategoryOther   Category = "Other"
)

var categories = []Category{
	CategoryStudy, CategoryDining, CategoryRec, CategoryLibrary, CategoryEvent, CategoryOther,
}

// ParseCategory validates s against the known categories. Matching is exact.
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Item is one entry in the "For You" pool.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Tags     []string `json:"tags,omitempty"`
	Coord    *LatLng  `json:"coord,omitempty"`
	Href     string   `json:"href,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
}

// ItemWeight reports the declared weight and whether one was declared.
func (i Item) ItemWeight() (float64, bool) {
	if i.Weight == nil {
		return 0, false
	}
	return *i.Weight, true
}

// BaseWeight returns the declared weight, or 1 when none is declared.
func (i Item) BaseWeight() float64 {
	if w, ok := i.ItemWeight(); ok {
		return w
	}
	return 1
}

// WithWeight returns a copy of i carrying weight w.
func (i Item) WithWeight(w float64) Item {
	i.Weight = &w
	return i
}

func weight(w float64) *float64 { return &w }

// DefaultPool returns a fresh copy of the campus recommendation pool.
func DefaultPool() []Item {
	return []Item{
		{
			ID: "zachry-pods", Name: "Zachry Pods", Category: CategoryStudy,
			Tags:  []string{"Collab", "Whiteboards"},
			Coord: &LatLng{Lat: 30.6195, Lng: -96.3395}, Href: "/map?place=zachry", Weight: weight(1.3),
		},
		{
			ID: "evans-quiet", Name: "Evans Library (4th Floor Quiet)", Category: CategoryLibrary,
			Tags:  []string{"Quiet", "Outlets"},
			Coord: &LatLng{Lat: 30.6188, Lng: -96.3382}, Href: "/map?place=evans", Weight: weight(1.2),
		},
		{
			ID: "sbisa", Name: "Sbisa Dining Hall", Category: CategoryDining,
			Tags:  []string{"Buffet", "Northside"},
			Coord: &LatLng{Lat: 30.6192, Lng: -96.3405}, Href: "/map?place=sbisa", Weight: weight(1.0),
		},
		{
			ID: "southside-commons", Name: "Southside Commons", Category: CategoryDining,
			Tags:  []string{"Food Hall", "Southside"},
			Coord: &LatLng{Lat: 30.6129, Lng: -96.3399}, Href: "/map?place=southside", Weight: weight(1.1),
		},
		{
			ID: "rec-center", Name: "Student Rec Center", Category: CategoryRec,
			Tags:  []string{"Weights", "Courts"},
			Coord: &LatLng{Lat: 30.6117, Lng: -96.34}, Href: "/map?place=rec", Weight: weight(0.9),
		},
		{
			ID: "msc-lounge", Name: "MSC Lounge", Category: CategoryOther,
			Tags:  []string{"Central", "Meetups"},
			Coord: &LatLng{Lat: 30.6123, Lng: -96.3412}, Href: "/map?place=msc", Weight: weight(1.0),
		},
		{
			ID: "west-campus-library", Name: "West Campus Library", Category: CategoryLibrary,
			Tags:  []string{"Business", "Quiet"},
			Coord: &LatLng{Lat: 30.6137, Lng: -96.3427}, Href: "/map?place=wcl", Weight: weight(1.0),
		},
		{
			ID: "peap-building", Name: "PEAP Building", Category: CategoryRec,
			Tags:  []string{"Classes", "Fitness"},
			Coord: &LatLng{Lat: 30.6105, Lng: -96.3387}, Href: "/map?place=peap", Weight: weight(0.8),
		},
		{
			ID: "msc-career-booths", Name: "Career Booths at MSC", Category: CategoryEvent,
			Tags:  []string{"Networking", "Internships"},
			Coord: &LatLng{Lat: 30.6123, Lng: -96.3412}, Href: "/events?category=career", Weight: weight(1.1),
		},
	}
}
