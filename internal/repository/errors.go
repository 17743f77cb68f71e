package repository

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docflow/internal/common"
)

func dbError(op string, err error) error {
	return common.NewAppError(common.CodePersistence, op, fmt.Errorf("%w: %w", common.ErrDatabase, err))
}

func notFoundError(what, id string) error {
	return common.NewAppError(common.CodePersistence, fmt.Sprintf("%s %s not found", what, id), common.ErrNotFound)
}

// newID returns a time-ordered UUID so rows sharing a created_at still sort
// in insertion order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
