package pledge

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
)

// Pledge is a sponsor's promise to donate per point earned in a campaign.
// Money is kept in integer minor units: the rate in thousandths of the
// currency, amounts in cents.
type Pledge struct {
	ID             string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	SponsorID      string    `gorm:"column:sponsor_id;type:varchar(32);not null;uniqueIndex:uq_pledge_sponsor_campaign" json:"sponsor_id"`
	CampaignID     string    `gorm:"column:campaign_id;type:varchar(32);not null;uniqueIndex:uq_pledge_sponsor_campaign;index" json:"campaign_id"`
	RateMilli      int64     `gorm:"column:rate_milli;not null" json:"rate_milli"`
	CapCents       *int64    `gorm:"column:cap_cents" json:"cap_cents,omitempty"`
	Message        string    `gorm:"column:message;type:text" json:"message,omitempty"`
	Status         Status    `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	FulfilledCents *int64    `gorm:"column:fulfilled_cents" json:"fulfilled_cents,omitempty"`
	PledgedAt      time.Time `gorm:"column:pledged_at" json:"pledged_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Pledge) TableName() string {
	return "sponsor_pledges"
}

// Amount is the donation owed for totalPoints, rounded half up to the cent
// and capped.
func (p *Pledge) Amount(totalPoints int64) int64 {
	if totalPoints <= 0 {
		return 0
	}
	cents := (totalPoints*p.RateMilli + 5) / 10
	if p.CapCents != nil && cents > *p.CapCents {
		return *p.CapCents
	}
	return cents
}
