package submission

import (
	"context"
	"time"

	"habitquest/services/leaderboard"
	"habitquest/services/quest"
	"habitquest/services/streak"
	"habitquest/services/student"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Dashboard struct {
	Student     *student.Student      `json:"student"`
	Streak      *streak.Record        `json:"streak,omitempty"`
	PointsTotal int64                 `json:"points_total"`
	Today       *quest.DailyQuest     `json:"today,omitempty"`
	Standing    *leaderboard.Standing `json:"standing,omitempty"`
	Day         time.Time             `json:"day"`
}

// Dashboard gathers the progress of a student in a campaign. Concurrent
// calls for the same pair share one fetch, which outlives the cancellation
// of whichever caller started it.
func (s *Service) Dashboard(ctx context.Context, studentID, campaignID string) (*Dashboard, error) {
	v, err, shared := s.group.Do(studentID+":"+campaignID, func() (any, error) {
		return s.loadDashboard(context.WithoutCancel(ctx), studentID, campaignID)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("dashboard fetch shared", zap.String("student_id", studentID), zap.String("campaign_id", campaignID))
	}
	return v.(*Dashboard), nil
}

func (s *Service) loadDashboard(ctx context.Context, studentID, campaignID string) (*Dashboard, error) {
	d := &Dashboard{Day: s.today()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.students.Get(gctx, studentID)
		d.Student = st
		return err
	})
	g.Go(func() error {
		r, err := s.streaks.Get(gctx, nil, studentID, campaignID)
		d.Streak = r
		return err
	})
	g.Go(func() error {
		total, err := s.ledger.Total(gctx, nil, studentID, campaignID)
		d.PointsTotal = total
		return err
	})
	g.Go(func() error {
		q, err := s.quests.Today(gctx, studentID, campaignID, d.Day)
		d.Today = q
		return err
	})
	if s.board != nil {
		g.Go(func() error {
			pos, err := s.board.Position(gctx, campaignID, studentID)
			if err != nil {
				zap.L().Warn("leaderboard unavailable", zap.String("campaign_id", campaignID), zap.Error(err))
				return nil
			}
			d.Standing = pos
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
