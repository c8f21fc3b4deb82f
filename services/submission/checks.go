package submission

import (
	"context"
	"time"

	"habitquest/pkg/repository"

	"gorm.io/gorm"
)

// CheckStore answers how many habits were checked on a day.
type CheckStore struct {
	checks repository.Repository[HabitCheck]
}

func NewCheckStore(db *gorm.DB) *CheckStore {
	return &CheckStore{checks: repository.ProvideStore[HabitCheck](db)}
}

func (s *CheckStore) CountChecks(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day time.Time) (int64, error) {
	return s.checks.WithTrx(tx).Count(ctx, &HabitCheck{StudentID: studentID, CampaignID: campaignID, CheckDate: day})
}
