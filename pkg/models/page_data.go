package models

import "time"

// PageData is the static view of a served document, before any script runs.
type PageData struct {
	URL         string
	Title       string
	TextContent string
	StatusCode  int
	LoadTime    time.Duration
}
