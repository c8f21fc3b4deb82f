package referral

import "time"

// Code is a shareable invitation owned by a referrer.
type Code struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Code       string    `gorm:"column:code;type:varchar(32);not null;uniqueIndex" json:"code"`
	ReferrerID string    `gorm:"column:referrer_id;type:varchar(32);not null;index" json:"referrer_id"`
	MaxUses    int       `gorm:"column:max_uses;not null" json:"max_uses"`
	Uses       int       `gorm:"column:uses;not null;default:0" json:"uses"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Code) TableName() string {
	return "referral_codes"
}

// Redemption records that a student joined through a code. A student can be
// referred once.
type Redemption struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	CodeID     string    `gorm:"column:code_id;type:varchar(32);not null;index" json:"code_id"`
	ReferrerID string    `gorm:"column:referrer_id;type:varchar(32);not null;index" json:"referrer_id"`
	ReferredID string    `gorm:"column:referred_id;type:varchar(32);not null;uniqueIndex" json:"referred_id"`
	ReferrerXP int64     `gorm:"column:referrer_xp;not null" json:"referrer_xp"`
	ReferredXP int64     `gorm:"column:referred_xp;not null" json:"referred_xp"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Redemption) TableName() string {
	return "referral_redemptions"
}
