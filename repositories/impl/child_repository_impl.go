package impl

import (
	"context"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
)

type ChildRepositoryImpl struct {
	DB *gorm.DB
}

func NewChildRepository(db *gorm.DB) repositories.ChildRepository {
	return &ChildRepositoryImpl{DB: db}
}

func (r *ChildRepositoryImpl) FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Child, error) {
	var child models.Child
	if err := r.DB.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&child).Error; err != nil {
		return models.Child{}, notFound(err, "child %s", firebaseUID)
	}
	return child, nil
}

func (r *ChildRepositoryImpl) FindByParent(ctx context.Context, parentFirebaseUID string) ([]models.Child, error) {
	var children []models.Child
	err := r.DB.WithContext(ctx).
		Where("parent_firebase_uid = ? AND is_binded = ?", parentFirebaseUID, true).
		Order("id").
		Find(&children).Error
	return children, err
}
