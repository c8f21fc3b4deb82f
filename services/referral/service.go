package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"habitquest/pkg/db/option"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"
	"habitquest/pkg/sequence"
	"habitquest/services/progression"
	"habitquest/services/student"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultMaxUses = 10
	CodeTTL        = 30 * 24 * time.Hour

	ReferrerXP int64 = 500
	ReferredXP int64 = 250

	fallbackPrefix = "HQX"
	topReferrers   = 5
)

var redemptionsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "habitquest_referrals_redeemed_total",
	Help: "Referral codes applied successfully.",
})

type Students interface {
	Load(ctx context.Context, tx *gorm.DB, id string) (*student.Student, error)
}

type Progression interface {
	Apply(ctx context.Context, tx *gorm.DB, studentID string, delta int64) (*progression.Outcome, error)
}

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	codes       repository.Repository[Code]
	redemptions repository.Repository[Redemption]

	students    Students
	progression Progression
	generator   sequence.Generator
	now         func() time.Time
}

type ServiceParams struct {
	fx.In

	DB          *gorm.DB
	Node        *snowflake.Node
	Students    Students
	Progression Progression
	Generator   sequence.Generator
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		node:        p.Node,
		codes:       repository.ProvideStore[Code](p.DB),
		redemptions: repository.ProvideStore[Redemption](p.DB),
		students:    p.Students,
		progression: p.Progression,
		generator:   p.Generator,
		now:         time.Now,
	}
}

// codePrefix is the first three letters of the display name, upper-cased.
func codePrefix(displayName string) string {
	var b strings.Builder
	for _, r := range displayName {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == 3 {
			return b.String()
		}
	}
	if b.Len() == 0 {
		return fallbackPrefix
	}
	return b.String()
}

// Generate issues a new code for the student valid for thirty days.
func (s *Service) Generate(ctx context.Context, studentID string, maxUses int) (*Code, error) {
	if maxUses <= 0 {
		maxUses = DefaultMaxUses
	}

	st, err := s.students.Load(ctx, nil, studentID)
	if err != nil {
		return nil, err
	}

	value, err := s.generator.NextReferralCode(ctx, codePrefix(st.DisplayName))
	if err != nil {
		return nil, fmt.Errorf("next referral code: %w", err)
	}

	now := s.now().UTC()
	code := &Code{
		ID:         s.node.Generate().String(),
		Code:       value,
		ReferrerID: studentID,
		MaxUses:    maxUses,
		ExpiresAt:  now.Add(CodeTTL),
		CreatedAt:  now,
	}
	if err := s.codes.Create(ctx, code); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errutil.Conflict("referral code collision, retry", err)
		}
		return nil, err
	}

	zap.L().Info("referral code generated", zap.String("student_id", studentID), zap.String("code", value))
	return code, nil
}

type ApplyResult struct {
	Redemption *Redemption          `json:"redemption"`
	Referrer   *progression.Outcome `json:"-"`
	Referred   *progression.Outcome `json:"referred"`
}

// Apply redeems code for referredID and pays both sides in experience.
func (s *Service) Apply(ctx context.Context, referredID, value string, now time.Time) (*ApplyResult, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return nil, errutil.BadRequest("referral code is required", nil)
	}

	res := &ApplyResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := s.codes.WithTrx(tx).FindOne(ctx, &Code{Code: value}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if code == nil {
			return errutil.NotFound("invalid referral code", nil)
		}
		if code.Uses >= code.MaxUses {
			return errutil.UnprocessableEntity("referral code limit reached", nil)
		}
		if now.After(code.ExpiresAt) {
			return errutil.UnprocessableEntity("referral code expired", nil)
		}
		if code.ReferrerID == referredID {
			return errutil.BadRequest("cannot apply your own referral code", nil)
		}

		if _, err := s.students.Load(ctx, tx, referredID); err != nil {
			return err
		}

		existing, err := s.redemptions.WithTrx(tx).FindOne(ctx, &Redemption{ReferredID: referredID})
		if err != nil {
			return err
		}
		if existing != nil {
			return errutil.Conflict("student was already referred", nil)
		}

		// guards against a concurrent redemption on databases without row locks
		claim := tx.Model(&Code{}).
			Where("id = ? AND uses < max_uses", code.ID).
			UpdateColumn("uses", gorm.Expr("uses + 1"))
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return errutil.UnprocessableEntity("referral code limit reached", nil)
		}

		r := &Redemption{
			ID:         s.node.Generate().String(),
			CodeID:     code.ID,
			ReferrerID: code.ReferrerID,
			ReferredID: referredID,
			ReferrerXP: ReferrerXP,
			ReferredXP: ReferredXP,
			CreatedAt:  now,
		}
		if err := s.redemptions.WithTrx(tx).Create(ctx, r); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errutil.Conflict("student was already referred", err)
			}
			return err
		}
		res.Redemption = r

		if res.Referrer, err = s.progression.Apply(ctx, tx, code.ReferrerID, ReferrerXP); err != nil {
			return fmt.Errorf("reward referrer: %w", err)
		}
		if res.Referred, err = s.progression.Apply(ctx, tx, referredID, ReferredXP); err != nil {
			return fmt.Errorf("reward referred: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	redemptionsTotal.Inc()
	zap.L().Info("referral applied",
		zap.String("referrer_id", res.Redemption.ReferrerID),
		zap.String("referred_id", referredID),
	)
	return res, nil
}

type TopReferrer struct {
	StudentID string `json:"student_id"`
	Referrals int64  `json:"referrals"`
}

type Stats struct {
	Codes          int64         `json:"codes"`
	Redemptions    int64         `json:"redemptions"`
	ConversionRate float64       `json:"conversion_rate"`
	TopReferrers   []TopReferrer `json:"top_referrers"`
}

// Stats summarises the referral programme. ConversionRate is redemptions
// per issued code, in percent.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	codes, err := s.codes.Count(ctx, &Code{})
	if err != nil {
		return nil, err
	}
	redeemed, err := s.redemptions.Count(ctx, &Redemption{})
	if err != nil {
		return nil, err
	}

	out := &Stats{Codes: codes, Redemptions: redeemed, TopReferrers: []TopReferrer{}}
	if codes > 0 {
		out.ConversionRate = float64(redeemed) / float64(codes) * 100
	}

	err = s.db.WithContext(ctx).Model(&Redemption{}).
		Select("referrer_id AS student_id, COUNT(*) AS referrals").
		Group("referrer_id").
		Order("referrals DESC").
		Limit(topReferrers).
		Scan(&out.TopReferrers).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
