package models

import "time"

// BackgroundInfo describes an uploaded background image after it has been
// decoded and inlined.
type BackgroundInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Format     string    `json:"format"` // "png", "jpeg", "gif", "webp", "bmp"
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	UploadedAt time.Time `json:"uploadedAt"`
}
