package domain

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// GalleryItem is a read-only projection of one object in a storage bucket.
type GalleryItem struct {
	URL       string     `json:"url"`
	Type      MediaType  `json:"type"`
	UserID    string     `json:"userId,omitempty"`
	StarID    string     `json:"starId,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type Gallery struct {
	Images []GalleryItem `json:"images"`
	Videos []GalleryItem `json:"videos"`
}
