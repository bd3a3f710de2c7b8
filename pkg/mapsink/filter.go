package mapsink

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Filter is a layer predicate over feature properties.
type Filter interface {
	Match(props geojson.Properties) bool
	String() string
}

// Equals matches features whose property equals value.
func Equals(key string, value interface{}) Filter {
	return equalsFilter{key: key, value: value}
}

// Has matches features that carry the property, whatever its value.
func Has(key string) Filter {
	return hasFilter(key)
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return notFilter{f}
}

type equalsFilter struct {
	key   string
	value interface{}
}

func (e equalsFilter) Match(props geojson.Properties) bool {
	v, ok := props[e.key]
	return ok && v == e.value
}

func (e equalsFilter) String() string {
	return fmt.Sprintf(`["==", ["get", %q], %v]`, e.key, e.value)
}

type hasFilter string

func (h hasFilter) Match(props geojson.Properties) bool {
	_, ok := props[string(h)]
	return ok
}

func (h hasFilter) String() string {
	return fmt.Sprintf(`["has", %q]`, string(h))
}

type notFilter struct {
	inner Filter
}

func (n notFilter) Match(props geojson.Properties) bool {
	return !n.inner.Match(props)
}

func (n notFilter) String() string {
	return fmt.Sprintf(`["!", %s]`, n.inner.String())
}
