package streak

import (
	"context"
	"time"

	"habitquest/pkg/db/option"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Tracker struct {
	db      *gorm.DB
	node    *snowflake.Node
	records repository.Repository[Record]
}

type TrackerParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewTracker(p TrackerParams) *Tracker {
	return &Tracker{
		db:      p.DB,
		node:    p.Node,
		records: repository.ProvideStore[Record](p.DB),
	}
}

func (t *Tracker) Get(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (*Record, error) {
	return t.records.WithTrx(tx).FindOne(ctx, &Record{StudentID: studentID, CampaignID: campaignID})
}

// RecordCompletion advances the streak of (studentID, campaignID) for day,
// creating the record on first use.
func (t *Tracker) RecordCompletion(ctx context.Context, tx *gorm.DB, studentID, campaignID string, day time.Time) (*Record, error) {
	repo := t.records.WithTrx(tx)

	current, err := repo.FindOne(ctx, &Record{StudentID: studentID, CampaignID: campaignID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}

	if current == nil {
		next := Advance(Record{
			ID:         t.node.Generate().String(),
			StudentID:  studentID,
			CampaignID: campaignID,
		}, day)
		if err := repo.Create(ctx, &next); err != nil {
			return nil, err
		}
		return &next, nil
	}

	if current.LongestStreak < current.CurrentStreak {
		zap.L().Warn("streak longest below current, correcting",
			zap.String("student_id", studentID),
			zap.String("campaign_id", campaignID),
			zap.Int("current", current.CurrentStreak),
			zap.Int("longest", current.LongestStreak),
		)
		current.LongestStreak = current.CurrentStreak
	}

	if current.LastSubmissionDate != nil && day.Before(*current.LastSubmissionDate) {
		return nil, errutil.BadRequest("cannot submit before the last submitted day", nil)
	}

	next := Advance(*current, day)
	next.UpdatedAt = time.Now()
	if err := repo.Update(ctx, next.ID, map[string]any{
		"current_streak":       next.CurrentStreak,
		"longest_streak":       next.LongestStreak,
		"last_submission_date": next.LastSubmissionDate,
		"updated_at":           next.UpdatedAt,
	}); err != nil {
		return nil, err
	}

	return &next, nil
}

// Reset replaces any existing record with a zeroed one. Rejoining a campaign
// never inherits the previous streak.
func (t *Tracker) Reset(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (*Record, error) {
	if err := t.Delete(ctx, tx, studentID, campaignID); err != nil {
		return nil, err
	}

	r := &Record{
		ID:         t.node.Generate().String(),
		StudentID:  studentID,
		CampaignID: campaignID,
	}
	if err := t.records.WithTrx(tx).Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *Tracker) Delete(ctx context.Context, tx *gorm.DB, studentID, campaignID string) error {
	db := tx
	if db == nil {
		db = t.db
	}
	return db.WithContext(ctx).
		Where("student_id = ? AND campaign_id = ?", studentID, campaignID).
		Delete(&Record{}).Error
}

// MaxCurrent returns the highest current streak of the student across campaigns.
func (t *Tracker) MaxCurrent(ctx context.Context, tx *gorm.DB, studentID string) (int, error) {
	records, err := t.records.WithTrx(tx).Find(ctx, &Record{StudentID: studentID})
	if err != nil {
		return 0, err
	}

	best := 0
	for _, r := range records {
		best = max(best, r.CurrentStreak)
	}
	return best, nil
}
