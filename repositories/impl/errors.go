package impl

import (
	"errors"
	"fmt"

	"PinguinGuard/apperrors"

	"gorm.io/gorm"
)

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, apperrors.ErrNotFound)...)
	}
	return err
}
