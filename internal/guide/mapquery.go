package guide

import (
	"net/url"
	"strings"
)

const mapIntent = "recycling+center+near+"

// MapDirective tells a map collaborator what to show for the user's location.
type MapDirective struct {
	Location string // trimmed location as entered
	Query    string // already escaped search query
}

// MapQuery projects a location into a map search directive. Blank locations
// produce no directive.
func MapQuery(location string) (MapDirective, bool) {
	loc := strings.TrimSpace(location)
	if loc == "" {
		return MapDirective{}, false
	}
	return MapDirective{
		Location: loc,
		Query:    mapIntent + url.QueryEscape(loc),
	}, true
}

// EmbedURL builds a Google Maps Embed API search URL for an iframe.
func (m MapDirective) EmbedURL(apiKey string) string {
	return "https://www.google.com/maps/embed/v1/search?key=" + url.QueryEscape(apiKey) + "&q=" + m.Query
}

// SearchURL builds a public Google Maps search link that needs no API key.
func (m MapDirective) SearchURL() string {
	return "https://www.google.com/maps/search/?api=1&query=" + m.Query
}
