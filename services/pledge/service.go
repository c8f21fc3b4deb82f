package pledge

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"habitquest/pkg/db/option"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"
	"habitquest/services/campaign"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRateMilli bounds the rate to 99.999 per point.
const maxRateMilli = 99_999

type Campaigns interface {
	Get(ctx context.Context, tx *gorm.DB, id string) (*campaign.Campaign, error)
}

type PointsTotals interface {
	CampaignTotal(ctx context.Context, campaignID string) (int64, error)
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	pledges   repository.Repository[Pledge]
	campaigns Campaigns
	points    PointsTotals
	now       func() time.Time
}

type ServiceParams struct {
	fx.In

	DB        *gorm.DB
	Node      *snowflake.Node
	Campaigns Campaigns
	Points    PointsTotals
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		pledges:   repository.ProvideStore[Pledge](p.DB),
		campaigns: p.Campaigns,
		points:    p.Points,
		now:       time.Now,
	}
}

type CreateParams struct {
	SponsorID    string
	CampaignID   string
	RatePerPoint float64
	CapAmount    *float64
	Message      string
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*Pledge, error) {
	if strings.TrimSpace(p.SponsorID) == "" {
		return nil, errutil.BadRequest("sponsor_id is required", nil)
	}

	rate := int64(math.Round(p.RatePerPoint * 1000))
	if rate <= 0 || rate > maxRateMilli {
		return nil, errutil.BadRequest("rate_per_point must be between 0.001 and 99.999", nil)
	}

	var capCents *int64
	if p.CapAmount != nil {
		if *p.CapAmount < 0 {
			return nil, errutil.BadRequest("cap_amount must not be negative", nil)
		}
		v := int64(math.Round(*p.CapAmount * 100))
		capCents = &v
	}

	c, err := s.campaigns.Get(ctx, nil, p.CampaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == campaign.CampaignStatusExpired || c.Status == campaign.CampaignStatusInactive {
		return nil, errutil.BadRequest("cannot pledge to an ended campaign", nil)
	}

	existing, err := s.pledges.FindOne(ctx, &Pledge{SponsorID: p.SponsorID, CampaignID: p.CampaignID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("sponsor already pledged to this campaign", nil)
	}

	now := s.now()
	pl := &Pledge{
		ID:         s.node.Generate().String(),
		SponsorID:  p.SponsorID,
		CampaignID: p.CampaignID,
		RateMilli:  rate,
		CapCents:   capCents,
		Message:    p.Message,
		Status:     StatusActive,
		PledgedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.pledges.Create(ctx, pl); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errutil.Conflict("sponsor already pledged to this campaign", err)
		}
		zap.L().Error("failed to create pledge", zap.String("campaign_id", p.CampaignID), zap.Error(err))
		return nil, err
	}
	return pl, nil
}

// transition moves an active pledge to status. fill, when set, adds columns
// computed from the locked row.
func (s *Service) transition(ctx context.Context, id string, status Status, fill func(tx *gorm.DB, pl *Pledge, updates map[string]any) error) (*Pledge, error) {
	var pl *Pledge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.pledges.WithTrx(tx)

		var err error
		if pl, err = repo.FindOne(ctx, &Pledge{ID: id}, option.WithLockingUpdate()); err != nil {
			return err
		}
		if pl == nil {
			return errutil.NotFound("pledge not found", nil)
		}
		if pl.Status != StatusActive {
			return errutil.Conflict("pledge is already "+string(pl.Status), nil)
		}

		now := s.now()
		updates := map[string]any{"status": status, "updated_at": now}
		if fill != nil {
			if err := fill(tx, pl, updates); err != nil {
				return err
			}
		}
		pl.Status = status
		pl.UpdatedAt = now
		return repo.Update(ctx, pl.ID, updates)
	})
	if err != nil {
		return nil, err
	}
	return pl, nil
}

func (s *Service) Cancel(ctx context.Context, id string) (*Pledge, error) {
	return s.transition(ctx, id, StatusCancelled, nil)
}

// Fulfill settles the pledge against the campaign points earned so far and
// freezes the amount.
func (s *Service) Fulfill(ctx context.Context, id string) (*Pledge, error) {
	pl, err := s.transition(ctx, id, StatusFulfilled, func(_ *gorm.DB, pl *Pledge, updates map[string]any) error {
		total, err := s.points.CampaignTotal(ctx, pl.CampaignID)
		if err != nil {
			return err
		}
		amount := pl.Amount(total)
		pl.FulfilledCents = &amount
		updates["fulfilled_cents"] = amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("pledge fulfilled",
		zap.String("pledge_id", pl.ID),
		zap.String("campaign_id", pl.CampaignID),
		zap.Int64("amount_cents", *pl.FulfilledCents),
	)
	return pl, nil
}

type PledgeAmount struct {
	Pledge      *Pledge `json:"pledge"`
	AmountCents int64   `json:"amount_cents"`
}

type Summary struct {
	CampaignID  string         `json:"campaign_id"`
	TotalPoints int64          `json:"total_points"`
	TotalCents  int64          `json:"total_cents"`
	Pledges     []PledgeAmount `json:"pledges"`
}

// Summary reports what every non-cancelled pledge of the campaign owes.
// Fulfilled pledges report their frozen amount.
func (s *Service) Summary(ctx context.Context, campaignID string) (*Summary, error) {
	if _, err := s.campaigns.Get(ctx, nil, campaignID); err != nil {
		return nil, err
	}

	total, err := s.points.CampaignTotal(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	list, err := s.pledges.Find(ctx, &Pledge{CampaignID: campaignID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "pledged_at",
		OrderBy: "asc",
	}))
	if err != nil {
		return nil, err
	}

	out := &Summary{CampaignID: campaignID, TotalPoints: total, Pledges: make([]PledgeAmount, 0, len(list))}
	for _, pl := range list {
		var amount int64
		switch pl.Status {
		case StatusCancelled:
			continue
		case StatusFulfilled:
			if pl.FulfilledCents != nil {
				amount = *pl.FulfilledCents
			}
		default:
			amount = pl.Amount(total)
		}
		out.Pledges = append(out.Pledges, PledgeAmount{Pledge: pl, AmountCents: amount})
		out.TotalCents += amount
	}
	return out, nil
}
