package service

import (
	"bitwise74/sketch-api/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Designs stores the generation history of signed in users
type Designs struct {
	DB *gorm.DB
}

func NewDesigns(db *gorm.DB) *Designs {
	return &Designs{DB: db}
}

func (s *Designs) Create(ctx context.Context, userID string, res *ImageResult, archiveKey string) (*model.Design, error) {
	d := &model.Design{
		ID:                uuid.NewString(),
		UserID:            userID,
		InputSketchURL:    res.InputSketchURL,
		GeneratedImageURL: res.GeneratedImageURL,
		ArchiveKey:        archiveKey,
		CreatedAt:         time.Now().UnixMilli(),
	}

	if err := s.DB.WithContext(ctx).Create(d).Error; err != nil {
		return nil, fmt.Errorf("failed to save design, %w", err)
	}

	return d, nil
}

// AttachModel stores the model URL on a design owned by userID. It reports
// false when no such design exists
func (s *Designs) AttachModel(ctx context.Context, userID, designID, modelURL string) (bool, error) {
	r := s.DB.WithContext(ctx).
		Model(&model.Design{}).
		Where("id = ? AND user_id = ?", designID, userID).
		Update("generated_model_url", modelURL)
	if r.Error != nil {
		return false, fmt.Errorf("failed to attach model, %w", r.Error)
	}

	return r.RowsAffected > 0, nil
}

// List returns one page of designs, newest first unless oldest is set
func (s *Designs) List(ctx context.Context, userID string, page, limit int, oldest bool) ([]model.Design, error) {
	order := "created_at desc"
	if oldest {
		order = "created_at asc"
	}

	entries := []model.Design{}

	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(order).
		Offset(page * limit).
		Limit(limit).
		Find(&entries).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up designs, %w", err)
	}

	return entries, nil
}
