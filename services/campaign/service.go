package campaign

import (
	"context"
	"strings"
	"time"

	"habitquest/pkg/db/option"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	campaign   repository.Repository[Campaign]
	habit      repository.Repository[Habit]
	enrollment repository.Repository[Enrollment]
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		campaign:   repository.ProvideStore[Campaign](p.DB),
		habit:      repository.ProvideStore[Habit](p.DB),
		enrollment: repository.ProvideStore[Enrollment](p.DB),
	}
}

type CreateParams struct {
	Name        string
	Description string
	Habits      []string
	StartAt     *time.Time
	EndAt       *time.Time
	Draft       bool
}

// Create stores a campaign with its habits. Campaigns are active unless Draft is set.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Campaign, []*Habit, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, nil, errutil.BadRequest("campaign name is required", nil)
	}
	if p.StartAt != nil && p.EndAt != nil && p.EndAt.Before(*p.StartAt) {
		return nil, nil, errutil.BadRequest("end_at must be after start_at", nil)
	}

	id := s.node.Generate().String()
	c := &Campaign{
		ID:          id,
		Slug:        slug.Make(name) + "-" + id[len(id)-4:],
		Name:        name,
		Description: p.Description,
		Status:      CampaignStatusActive,
		StartAt:     p.StartAt,
		EndAt:       p.EndAt,
	}
	if p.Draft {
		c.Status = CampaignStatusDraft
	}

	habits := make([]*Habit, 0, len(p.Habits))
	for i, title := range p.Habits {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		habits = append(habits, &Habit{
			ID:         s.node.Generate().String(),
			CampaignID: id,
			Title:      title,
			Position:   i,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.campaign.WithTrx(tx).Create(ctx, c); err != nil {
			return err
		}
		return s.habit.WithTrx(tx).BatchCreate(ctx, habits)
	})
	if err != nil {
		zap.L().Error("failed to create campaign", zap.String("name", name), zap.Error(err))
		return nil, nil, err
	}

	return c, habits, nil
}

func (s *Service) Get(ctx context.Context, tx *gorm.DB, id string) (*Campaign, error) {
	c, err := s.campaign.WithTrx(tx).FindOne(ctx, &Campaign{ID: id})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errutil.NotFound("campaign not found", nil)
	}
	return c, nil
}

func (s *Service) Habits(ctx context.Context, tx *gorm.DB, campaignID string) ([]*Habit, error) {
	return s.habit.WithTrx(tx).Find(ctx, &Habit{CampaignID: campaignID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "position",
		OrderBy: "asc",
	}))
}

func (s *Service) HabitCount(ctx context.Context, tx *gorm.DB, campaignID string) (int64, error) {
	return s.habit.WithTrx(tx).Count(ctx, &Habit{CampaignID: campaignID})
}

// Enrollment returns the enrollment of student in campaign, or nil.
func (s *Service) Enrollment(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (*Enrollment, error) {
	return s.enrollment.WithTrx(tx).FindOne(ctx, &Enrollment{StudentID: studentID, CampaignID: campaignID})
}

// Enroll creates or reactivates the enrollment. The returned bool reports
// whether the student was already actively enrolled.
func (s *Service) Enroll(ctx context.Context, tx *gorm.DB, studentID, campaignID string, now time.Time) (*Enrollment, bool, error) {
	repo := s.enrollment.WithTrx(tx)

	existing, err := repo.FindOne(ctx, &Enrollment{StudentID: studentID, CampaignID: campaignID}, option.WithLockingUpdate())
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if existing.Status == EnrollmentStatusActive {
			return existing, true, nil
		}
		existing.Status = EnrollmentStatusActive
		existing.EnrolledAt = now
		existing.UpdatedAt = now
		if err := repo.Update(ctx, existing.ID, map[string]any{
			"status":      existing.Status,
			"enrolled_at": now,
			"updated_at":  now,
		}); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	e := &Enrollment{
		ID:         s.node.Generate().String(),
		StudentID:  studentID,
		CampaignID: campaignID,
		Status:     EnrollmentStatusActive,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, e); err != nil {
		return nil, false, err
	}
	return e, false, nil
}

// Unenroll marks the enrollment inactive.
func (s *Service) Unenroll(ctx context.Context, tx *gorm.DB, studentID, campaignID string, now time.Time) (*Enrollment, error) {
	repo := s.enrollment.WithTrx(tx)

	e, err := repo.FindOne(ctx, &Enrollment{StudentID: studentID, CampaignID: campaignID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if e == nil || e.Status != EnrollmentStatusActive {
		return nil, errutil.NotFound("enrollment not found", nil)
	}

	e.Status = EnrollmentStatusInactive
	e.UpdatedAt = now
	if err := repo.Update(ctx, e.ID, map[string]any{"status": e.Status, "updated_at": now}); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) CountEnrollments(ctx context.Context, tx *gorm.DB, studentID string) (EnrollmentCounts, error) {
	var out EnrollmentCounts

	total, err := s.enrollment.WithTrx(tx).Count(ctx, &Enrollment{StudentID: studentID})
	if err != nil {
		return out, err
	}
	out.Total = total

	finished, err := s.enrollment.WithTrx(tx).Find(ctx, &Enrollment{StudentID: studentID}, option.ApplyOperator(option.Condition{
		Field:    "status",
		Operator: option.IN,
		Value:    []EnrollmentStatus{EnrollmentStatusCompleted, EnrollmentStatusInactive},
	}))
	if err != nil {
		return out, err
	}
	out.Finished = int64(len(finished))

	return out, nil
}

// ActiveEnrollments lists every ACTIVE enrollment, used when issuing daily quests.
func (s *Service) ActiveEnrollments(ctx context.Context) ([]*Enrollment, error) {
	return s.enrollment.Find(ctx, &Enrollment{Status: EnrollmentStatusActive}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "enrolled_at",
		OrderBy: "asc",
	}))
}
