package service

import (
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	"gorm.io/gorm"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.SetupTestDB(t)
}

func seedPlan(t *testing.T, db *gorm.DB, id string) *entity.ProductionPlan {
	t.Helper()
	return testutil.SeedTestPlan(t, db, id, "PP-TEST-"+id)
}

func seedCard(t *testing.T, db *gorm.DB, id, planID, departmentID string) *entity.ProductionCard {
	t.Helper()
	return testutil.SeedTestCard(t, db, id, planID, departmentID)
}
