package points

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const genesisHash = "GENESIS"

// Entry is one immutable points award. Entries of a (student, campaign)
// pair form a hash chain ordered by Sequence.
type Entry struct {
	ID               string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	StudentID        string         `gorm:"column:student_id;type:varchar(32);not null;uniqueIndex:uq_points_chain,priority:1;index:idx_points_student" json:"student_id"`
	CampaignID       string         `gorm:"column:campaign_id;type:varchar(32);not null;uniqueIndex:uq_points_chain,priority:2;index:idx_points_campaign" json:"campaign_id"`
	Sequence         int64          `gorm:"column:sequence;not null;uniqueIndex:uq_points_chain,priority:3" json:"sequence"`
	SubmissionID     string         `gorm:"column:submission_id;type:varchar(32);index:idx_points_submission" json:"submission_id"`
	BasePoints       int64          `gorm:"column:base_points;not null" json:"base_points"`
	StreakDays       int            `gorm:"column:streak_days;not null" json:"streak_days"`
	StreakMultiplier float64        `gorm:"column:streak_multiplier;not null" json:"streak_multiplier"`
	BonusMultiplier  float64        `gorm:"column:bonus_multiplier;not null" json:"bonus_multiplier"`
	TotalPoints      int64          `gorm:"column:total_points;not null" json:"total_points"`
	PreviousHash     string         `gorm:"column:previous_hash;type:varchar(64)" json:"previous_hash"`
	Hash             string         `gorm:"column:hash;type:varchar(64)" json:"hash"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Entry) TableName() string {
	return "points_entries"
}

func (e *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":                e.ID,
		"student_id":        e.StudentID,
		"campaign_id":       e.CampaignID,
		"sequence":          strconv.FormatInt(e.Sequence, 10),
		"submission_id":     e.SubmissionID,
		"base_points":       strconv.FormatInt(e.BasePoints, 10),
		"streak_days":       strconv.Itoa(e.StreakDays),
		"streak_multiplier": strconv.FormatFloat(e.StreakMultiplier, 'f', -1, 64),
		"bonus_multiplier":  strconv.FormatFloat(e.BonusMultiplier, 'f', -1, 64),
		"total_points":      strconv.FormatInt(e.TotalPoints, 10),
		"created_at":        e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":     e.PreviousHash,
	}
}

func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
