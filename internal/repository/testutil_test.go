package repository

import (
	"testing"

	"github.com/shinyyama/boilagbe-backend/internal/testutil"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}
