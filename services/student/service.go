package student

import (
	"context"
	"strings"
	"time"

	"habitquest/pkg/db/option"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	node     *snowflake.Node
	students repository.Repository[Student]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:     p.Node,
		students: repository.ProvideStore[Student](p.DB),
	}
}

// Register creates a student at level 1, rank E, with no experience.
func (s *Service) Register(ctx context.Context, displayName string) (*Student, error) {
	return s.RegisterAt(ctx, displayName, time.Now())
}

// RegisterAt is Register with an explicit creation time, used for imports.
func (s *Service) RegisterAt(ctx context.Context, displayName string, createdAt time.Time) (*Student, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errutil.BadRequest("display_name is required", nil)
	}

	st := &Student{
		ID:          s.node.Generate().String(),
		DisplayName: displayName,
		Level:       1,
		Rank:        RankE,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := s.students.Create(ctx, st); err != nil {
		zap.L().Error("failed to create student", zap.Error(err))
		return nil, err
	}
	return st, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	st, err := s.students.FindOne(ctx, &Student{ID: id})
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errutil.NotFound("student not found", nil)
	}
	return st, nil
}

// Load reads the student inside tx without locking it.
func (s *Service) Load(ctx context.Context, tx *gorm.DB, id string) (*Student, error) {
	st, err := s.students.WithTrx(tx).FindOne(ctx, &Student{ID: id})
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errutil.NotFound("student not found", nil)
	}
	return st, nil
}

// Lock loads the student row for update inside tx.
func (s *Service) Lock(ctx context.Context, tx *gorm.DB, id string) (*Student, error) {
	st, err := s.students.WithTrx(tx).FindOne(ctx, &Student{ID: id}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errutil.NotFound("student not found", nil)
	}
	return st, nil
}

// SaveProgress persists the derived progression fields of st.
func (s *Service) SaveProgress(ctx context.Context, tx *gorm.DB, st *Student) error {
	st.UpdatedAt = time.Now()
	return s.students.WithTrx(tx).Update(ctx, st.ID, map[string]any{
		"experience":   st.Experience,
		"level":        st.Level,
		"rank":         st.Rank,
		"bonus_points": st.BonusPoints,
		"updated_at":   st.UpdatedAt,
	})
}

// AddBonusPoints credits the bonus points account of the student.
func (s *Service) AddBonusPoints(ctx context.Context, tx *gorm.DB, id string, amount int64) error {
	return s.students.WithTrx(tx).Update(ctx, id, map[string]any{
		"bonus_points": gorm.Expr("bonus_points + ?", amount),
		"updated_at":   time.Now(),
	})
}
