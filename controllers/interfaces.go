package controllers

import (
	"context"

	"PinguinGuard/models"
)

type PolicyServiceInterface interface {
	Get(ctx context.Context, session models.Session, childID string) (models.ChildPolicy, error)
	SetBlock(ctx context.Context, session models.Session, childID string, isBlocked bool, reason *string) (models.ChildPolicy, error)
	SetTimeSlots(ctx context.Context, session models.Session, childID string, slots []string) (models.ChildPolicy, error)
	SetScreenTimeLimit(ctx context.Context, session models.Session, childID string, limit *int) (models.ChildPolicy, error)
}

type UnblockServiceInterface interface {
	Create(ctx context.Context, session models.Session, reason string) (models.UnblockRequest, error)
	Respond(ctx context.Context, session models.Session, requestID string, approve bool, parentResponse *string) (models.UnblockRequest, error)
	List(ctx context.Context, session models.Session, status string) ([]models.UnblockRequest, error)
}

type UsageServiceInterface interface {
	Today(ctx context.Context, session models.Session, childID string) (models.UsageRecord, error)
	History(ctx context.Context, session models.Session, childID string, days int) ([]models.UsageRecord, error)
	Report(ctx context.Context, session models.Session, totalMinutes, sessionCount int) (models.UsageRecord, error)
}

type HistoryServiceInterface interface {
	List(ctx context.Context, session models.Session, limit int) ([]models.HistoryEntry, error)
}

type StatusServiceInterface interface {
	Status(ctx context.Context, session models.Session, childID string) (models.RestrictionStatus, error)
}
