package services

import (
	"context"
	"fmt"

	"PinguinGuard/repositories"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// MessageSender is the part of the FCM client the service needs.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService sends push notifications through Firebase Cloud
// Messaging. Without an FCM client every send is skipped.
type NotificationService struct {
	FCM        MessageSender
	ParentRepo repositories.ParentRepository
	ChildRepo  repositories.ChildRepository
	Logger     *zap.Logger
}

// NewNotificationService builds the FCM client from app. A nil app yields a
// service that only logs.
func NewNotificationService(
	ctx context.Context,
	app *firebase.App,
	parentRepo repositories.ParentRepository,
	childRepo repositories.ChildRepository,
	logger *zap.Logger,
) (*NotificationService, error) {
	s := &NotificationService{ParentRepo: parentRepo, ChildRepo: childRepo, Logger: logger}
	if app == nil {
		logger.Warn("firebase is not configured, push notifications are disabled")
		return s, nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing FCM client: %w", err)
	}
	s.FCM = client
	return s, nil
}

func (s *NotificationService) SendNotification(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	if deviceToken == "" {
		return fmt.Errorf("device token is empty")
	}
	if s.FCM == nil {
		s.Logger.Debug("push skipped", zap.String("title", title))
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: deviceToken,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	id, err := s.FCM.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	s.Logger.Debug("push sent", zap.String("message_id", id), zap.String("title", title))
	return nil
}

func (s *NotificationService) NotifyParent(ctx context.Context, parentUID, title, body string, data map[string]string) error {
	parent, err := s.ParentRepo.FindByFirebaseUID(ctx, parentUID)
	if err != nil {
		return fmt.Errorf("parent not found: %w", err)
	}
	if parent.DeviceToken == "" {
		return nil
	}
	return s.SendNotification(ctx, parent.DeviceToken, title, body, data)
}

func (s *NotificationService) NotifyChild(ctx context.Context, childUID, title, body string, data map[string]string) error {
	child, err := s.ChildRepo.FindByFirebaseUID(ctx, childUID)
	if err != nil {
		return fmt.Errorf("child not found: %w", err)
	}
	if child.DeviceToken == "" {
		return nil
	}
	return s.SendNotification(ctx, child.DeviceToken, title, body, data)
}
