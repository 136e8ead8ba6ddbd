package impl

import (
	"context"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
)

type ParentRepositoryImpl struct {
	DB *gorm.DB
}

func NewParentRepository(db *gorm.DB) repositories.ParentRepository {
	return &ParentRepositoryImpl{DB: db}
}

func (r *ParentRepositoryImpl) FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error) {
	var parent models.Parent
	if err := r.DB.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&parent).Error; err != nil {
		return models.Parent{}, notFound(err, "parent %s", firebaseUID)
	}
	return parent, nil
}
