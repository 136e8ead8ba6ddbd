package impl

import (
	"context"
	"fmt"

	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PolicyRepositoryImpl struct {
	DB *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) repositories.PolicyRepository {
	return &PolicyRepositoryImpl{DB: db}
}

func (r *PolicyRepositoryImpl) FindByChildID(ctx context.Context, childID string) (models.ChildPolicy, error) {
	var policy models.ChildPolicy
	if err := r.DB.WithContext(ctx).Where("child_id = ?", childID).First(&policy).Error; err != nil {
		return models.ChildPolicy{}, notFound(err, "policy of child %s", childID)
	}
	if policy.AllowedTimeSlots == nil {
		policy.AllowedTimeSlots = models.TimeSlots{}
	}
	return policy, nil
}

func (r *PolicyRepositoryImpl) Save(ctx context.Context, policy models.ChildPolicy) error {
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&policy).Error
	if err != nil {
		return fmt.Errorf("save policy of child %s: %w", policy.ChildID, err)
	}
	return nil
}
