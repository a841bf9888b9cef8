package models

// Comment is a single comment event produced by the feed.
type Comment struct {
	ID        string
	Author    string
	Body      string
	Permalink string
}
