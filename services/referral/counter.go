package referral

import (
	"context"

	"habitquest/pkg/repository"

	"gorm.io/gorm"
)

// Counter counts successful referrals. It only needs the database so the
// achievement evaluator can depend on it.
type Counter struct {
	redemptions repository.Repository[Redemption]
}

func NewCounter(db *gorm.DB) *Counter {
	return &Counter{redemptions: repository.ProvideStore[Redemption](db)}
}

func (c *Counter) CountReferrals(ctx context.Context, tx *gorm.DB, referrerID string) (int64, error) {
	return c.redemptions.WithTrx(tx).Count(ctx, &Redemption{ReferrerID: referrerID})
}
