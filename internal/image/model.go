// Package image implements the upload, retrieval and deletion workflows for
// batches of uploaded images and the persistence of their metadata records.
package image

import "time"

// Image is one uploaded object inside a Record. URL is empty until a signed
// URL has been generated and cached for it.
type Image struct {
	Key string `json:"imageKey"`
	URL string `json:"url"`
}

// Record groups the images of one upload batch.
type Record struct {
	ID        string    `json:"_id"`
	Images    []Image   `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// needsSigning reports whether no image in the record has a cached URL.
// A record with any cached URL is served as stored.
func (r *Record) needsSigning() bool {
	for _, img := range r.Images {
		if img.URL != "" {
			return false
		}
	}
	return true
}
