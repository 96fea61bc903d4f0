// Package models defines the domain types shared by the repositories,
// services and the HTTP layer.
package models

// UploadTarget tells the client where to PUT a tour image. Key is the
// object key the image will be stored under once uploaded.
type UploadTarget struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
