package model

// Design is one sketch that went through the generation gateway.
// The URLs point at the gateway's own storage
type Design struct {
	ID                string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID            string `gorm:"index;not null" json:"-"`
	InputSketchURL    string `json:"input_sketch_url"`
	GeneratedImageURL string `json:"generated_image_url"`
	GeneratedModelURL string `json:"generated_model_url,omitempty"`
	ArchiveKey        string `json:"-"` // Set when the sketch was copied to our own bucket
	CreatedAt         int64  `gorm:"not null" json:"created_at"`
}
