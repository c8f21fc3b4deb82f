package points

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"habitquest/pkg/db/option"
	"habitquest/pkg/db/pagination"
	"habitquest/pkg/errutil"
	"habitquest/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Ledger struct {
	db      *gorm.DB
	node    *snowflake.Node
	entries repository.Repository[Entry]
}

type LedgerParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewLedger(p LedgerParams) *Ledger {
	return &Ledger{
		db:      p.DB,
		node:    p.Node,
		entries: repository.ProvideStore[Entry](p.DB),
	}
}

type EntryParams struct {
	StudentID       string
	CampaignID      string
	SubmissionID    string
	StreakDays      int
	BasePoints      int64
	BonusMultiplier float64
	Metadata        map[string]any
}

// Append computes the award for p and chains it after the latest entry of
// the same student and campaign. A zero award appends nothing and returns nil.
func (l *Ledger) Append(ctx context.Context, tx *gorm.DB, p EntryParams) (*Entry, error) {
	total := ComputePoints(p.StreakDays, p.BasePoints, p.BonusMultiplier)
	if total == 0 {
		zap.L().Debug("no points earned",
			zap.String("student_id", p.StudentID),
			zap.String("campaign_id", p.CampaignID),
		)
		return nil, nil
	}

	repo := l.entries.WithTrx(tx)
	last, err := repo.FindOne(ctx, &Entry{StudentID: p.StudentID, CampaignID: p.CampaignID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "sequence",
			OrderBy: "desc",
			Allow:   map[string]bool{"sequence": true},
		}),
		option.WithLockingUpdate(),
	)
	if err != nil {
		return nil, fmt.Errorf("load last points entry: %w", err)
	}

	var meta datatypes.JSON
	if len(p.Metadata) > 0 {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return nil, errutil.BadRequest("invalid points metadata", err)
		}
		meta = datatypes.JSON(b)
	}

	entry := &Entry{
		ID:               l.node.Generate().String(),
		StudentID:        p.StudentID,
		CampaignID:       p.CampaignID,
		Sequence:         1,
		SubmissionID:     p.SubmissionID,
		BasePoints:       p.BasePoints,
		StreakDays:       p.StreakDays,
		StreakMultiplier: Multiplier(p.StreakDays),
		BonusMultiplier:  p.BonusMultiplier,
		TotalPoints:      total,
		PreviousHash:     genesisHash,
		Metadata:         meta,
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
	if last != nil {
		entry.Sequence = last.Sequence + 1
		entry.PreviousHash = last.Hash
	}
	entry.Hash = entry.GenerateHash()

	if err := repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("append points entry: %w", err)
	}
	return entry, nil
}

// Total is the sum of awarded points of a student in a campaign.
func (l *Ledger) Total(ctx context.Context, tx *gorm.DB, studentID, campaignID string) (int64, error) {
	return l.sum(ctx, tx, "student_id = ? AND campaign_id = ?", studentID, campaignID)
}

// CampaignTotal is the sum of points awarded to every student of a campaign.
func (l *Ledger) CampaignTotal(ctx context.Context, campaignID string) (int64, error) {
	return l.sum(ctx, nil, "campaign_id = ?", campaignID)
}

func (l *Ledger) sum(ctx context.Context, tx *gorm.DB, where string, args ...any) (int64, error) {
	db := tx
	if db == nil {
		db = l.db
	}

	var total int64
	err := db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(total_points), 0)").
		Where(where, args...).
		Scan(&total).Error
	return total, err
}

type HistoryPage struct {
	Entries  []*Entry             `json:"entries"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

func (l *Ledger) History(ctx context.Context, studentID, campaignID string, p pagination.Pagination) (*HistoryPage, error) {
	p = p.Normalize()
	after, err := pagination.After(p)
	if err != nil {
		return nil, errutil.BadRequest("invalid cursor", err)
	}

	entries, err := l.entries.Find(ctx, &Entry{StudentID: studentID, CampaignID: campaignID}, after)
	if err != nil {
		return nil, err
	}

	entries, info := pagination.BuildCursorPageInfo(entries, p.Limit, func(e *Entry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return &HistoryPage{Entries: entries, PageInfo: info}, nil
}

// VerifyChain recomputes every hash of the (student, campaign) chain.
func (l *Ledger) VerifyChain(ctx context.Context, studentID, campaignID string) (bool, error) {
	entries, err := l.entries.Find(ctx, &Entry{StudentID: studentID, CampaignID: campaignID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "sequence",
			OrderBy: "asc",
			Allow:   map[string]bool{"sequence": true},
		}),
	)
	if err != nil {
		return false, err
	}

	prev := genesisHash
	for _, e := range entries {
		if e.PreviousHash != prev || e.GenerateHash() != e.Hash {
			zap.L().Warn("points chain broken",
				zap.String("student_id", studentID),
				zap.String("campaign_id", campaignID),
				zap.String("entry_id", e.ID),
				zap.Int64("sequence", e.Sequence),
			)
			return false, nil
		}
		prev = e.Hash
	}
	return true, nil
}
