package services

import (
	"context"
	"errors"
	"fmt"

	"PinguinGuard/apperrors"
	"PinguinGuard/models"
	"PinguinGuard/repositories"
)

// Family is the child an operation acts on together with its parent.
type Family struct {
	ChildID  string
	ParentID string
}

// Authorizer decides which child a session may act on. A parent acts on the
// children bound to them; a child acts on itself only.
type Authorizer struct {
	ChildRepo repositories.ChildRepository
}

func NewAuthorizer(childRepo repositories.ChildRepository) *Authorizer {
	return &Authorizer{ChildRepo: childRepo}
}

// Child resolves the family of childID for session. A child session may leave
// childID empty to mean itself.
func (a *Authorizer) Child(ctx context.Context, session models.Session, childID string) (Family, error) {
	switch {
	case session.IsChild():
		if childID != "" && childID != session.UserID {
			return Family{}, fmt.Errorf("child %s cannot access child %s: %w", session.UserID, childID, apperrors.ErrForbidden)
		}
		if session.ParentID != "" {
			return Family{ChildID: session.UserID, ParentID: session.ParentID}, nil
		}
		child, err := a.ChildRepo.FindByFirebaseUID(ctx, session.UserID)
		if err != nil {
			return Family{}, err
		}
		if !child.IsBinded || child.ParentFirebaseUID == "" {
			return Family{}, fmt.Errorf("child %s is not bound to a parent: %w", session.UserID, apperrors.ErrForbidden)
		}
		return Family{ChildID: child.FirebaseUID, ParentID: child.ParentFirebaseUID}, nil

	case session.IsParent():
		if childID == "" {
			return Family{}, fmt.Errorf("childId is required: %w", apperrors.ErrInvalidArgument)
		}
		child, err := a.ChildRepo.FindByFirebaseUID(ctx, childID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return Family{}, fmt.Errorf("child %s: %w", childID, apperrors.ErrForbidden)
		}
		if err != nil {
			return Family{}, err
		}
		if !child.BelongsTo(session.UserID) {
			return Family{}, fmt.Errorf("child %s does not belong to parent %s: %w", childID, session.UserID, apperrors.ErrForbidden)
		}
		return Family{ChildID: child.FirebaseUID, ParentID: session.UserID}, nil
	}
	return Family{}, fmt.Errorf("unknown user type %q: %w", session.UserType, apperrors.ErrForbidden)
}

// Parent rejects sessions that are not a parent's.
func (a *Authorizer) Parent(session models.Session, op string) error {
	if !session.IsParent() {
		return fmt.Errorf("only a parent can %s: %w", op, apperrors.ErrForbidden)
	}
	return nil
}
