package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"habitquest/pkg/db/option"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 250
)

type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// Normalize clamps the limit into [1, MaxLimit].
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// After returns a query option selecting rows strictly after the cursor in
// (created_at, id) ascending order, fetching one extra row to detect more pages.
func After(p Pagination) (option.QueryOption, error) {
	p = p.Normalize()

	var cur *Cursor
	if p.Cursor != "" {
		c, err := DecodeCursor(p.Cursor)
		if err != nil {
			return nil, err
		}
		cur = c
	}

	return func(db *gorm.DB) *gorm.DB {
		if cur != nil {
			db = db.Where("(created_at > ?) OR (created_at = ? AND id > ?)", cur.CreatedAt, cur.CreatedAt, cur.ID)
		}
		return db.Order("created_at ASC").Order("id ASC").Limit(p.Limit + 1)
	}, nil
}

// BuildCursorPageInfo trims the look-ahead row and derives the next cursor.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) Cursor) ([]*T, *PageInfo) {
	if len(data) <= limit {
		return data, &PageInfo{HasMore: false}
	}

	data = data[:limit]
	next, err := EncodeCursor(extractCursor(data[len(data)-1]))
	if err != nil {
		return data, &PageInfo{HasMore: false}
	}

	return data, &PageInfo{HasMore: true, NextCursor: next}
}
