package reward

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"habitquest/pkg/db/option"
	"habitquest/pkg/repository"
	"habitquest/services/progression"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rewardsRolled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "habitquest_rewards_rolled_total",
	Help: "Rewards drawn, by rarity.",
}, []string{"rarity"})

type BonusAccount interface {
	AddBonusPoints(ctx context.Context, tx *gorm.DB, studentID string, amount int64) error
}

type Progression interface {
	Apply(ctx context.Context, tx *gorm.DB, studentID string, delta int64) (*progression.Outcome, error)
}

// lockedSource serialises access to a math/rand source.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

func NewRandSource(seed int64) RandSource {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	rewards     repository.Repository[Reward]
	progression Progression
	bonus       BonusAccount
	pool        Pool
	src         RandSource
}

type ServiceParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Progression Progression
	Bonus       BonusAccount
	Source      RandSource `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	src := p.Source
	if src == nil {
		src = NewRandSource(time.Now().UnixNano())
	}

	return &Service{
		db:          p.DB,
		node:        p.Node,
		rewards:     repository.ProvideStore[Reward](p.DB),
		progression: p.Progression,
		bonus:       p.Bonus,
		pool:        DefaultPool,
		src:         src,
	}
}

type Outcome struct {
	Reward      *Reward              `json:"reward"`
	Progression *progression.Outcome `json:"progression"`
}

// Open draws from the pool, records the reward and applies its bonuses.
// Experience goes through progression; points go to the bonus account.
func (s *Service) Open(ctx context.Context, tx *gorm.DB, studentID string, typ Type) (*Outcome, error) {
	entry := Roll(s.pool, s.src)

	var out *Outcome
	run := func(tx *gorm.DB) error {
		r := &Reward{
			ID:          s.node.Generate().String(),
			StudentID:   studentID,
			Type:        typ,
			Rarity:      entry.Rarity,
			Name:        entry.Name,
			Description: entry.Description,
			XPBonus:     entry.XPBonus,
			PointsBonus: entry.PointsBonus,
			ReceivedAt:  time.Now(),
		}
		if err := s.rewards.WithTrx(tx).Create(ctx, r); err != nil {
			return err
		}

		if r.PointsBonus > 0 {
			if err := s.bonus.AddBonusPoints(ctx, tx, studentID, r.PointsBonus); err != nil {
				return err
			}
		}

		prog, err := s.progression.Apply(ctx, tx, studentID, r.XPBonus)
		if err != nil {
			return err
		}

		out = &Outcome{Reward: r, Progression: prog}
		return nil
	}

	var err error
	if tx != nil {
		err = run(tx)
	} else {
		err = s.db.WithContext(ctx).Transaction(run)
	}
	if err != nil {
		zap.L().Error("failed to open reward", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}

	rewardsRolled.WithLabelValues(string(entry.Rarity)).Inc()
	zap.L().Info("reward opened",
		zap.String("student_id", studentID),
		zap.String("name", entry.Name),
		zap.String("rarity", string(entry.Rarity)),
	)
	return out, nil
}

func (s *Service) List(ctx context.Context, studentID string) ([]*Reward, error) {
	return s.rewards.Find(ctx, &Reward{StudentID: studentID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "received_at",
		OrderBy: "desc",
	}))
}
