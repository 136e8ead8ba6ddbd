package services

import (
	"context"
	"errors"
	"fmt"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"
	"PinguinGuard/repositories"

	"firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is implemented by *auth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseTokenVerifier accepts Firebase ID tokens and resolves the account
// behind the uid to a session.
type FirebaseTokenVerifier struct {
	Auth       IDTokenVerifier
	ParentRepo repositories.ParentRepository
	ChildRepo  repositories.ChildRepository
}

func NewFirebaseTokenVerifier(client IDTokenVerifier, parentRepo repositories.ParentRepository, childRepo repositories.ChildRepository) *FirebaseTokenVerifier {
	return &FirebaseTokenVerifier{Auth: client, ParentRepo: parentRepo, ChildRepo: childRepo}
}

func (v *FirebaseTokenVerifier) Verify(ctx context.Context, idToken string) (models.Session, error) {
	token, err := v.Auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return models.Session{}, fmt.Errorf("verify id token: %w", err)
	}

	parent, err := v.ParentRepo.FindByFirebaseUID(ctx, token.UID)
	if err == nil {
		return models.Session{UserID: parent.FirebaseUID, UserType: models.UserTypeParent, ParentID: parent.FirebaseUID}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return models.Session{}, err
	}

	child, err := v.ChildRepo.FindByFirebaseUID(ctx, token.UID)
	if err != nil {
		return models.Session{}, fmt.Errorf("no account for uid %s: %w", token.UID, err)
	}
	return models.Session{UserID: child.FirebaseUID, UserType: models.UserTypeChild, ParentID: child.ParentFirebaseUID}, nil
}
