package db

import "time"

// Document is the latest body stored under a name.
type Document struct {
	Name      string
	Body      []byte
	Revision  int64
	UpdatedAt time.Time
}

// Revision is one historical write of a document.
type Revision struct {
	Revision  int64     `json:"revision"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
