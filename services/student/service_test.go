package student

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"habitquest/pkg/errutil"
	"habitquest/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRankLadder(t *testing.T) {
	require.Equal(t, 0, RankE.Ordinal())
	require.Equal(t, RankD.Ordinal()+1, RankC.Ordinal())
	require.Equal(t, RankS.Ordinal()+1, RankNational.Ordinal())
	require.Equal(t, -1, Rank("Z").Ordinal())
}

func TestRegisterAndProgress(t *testing.T) {
	db := testutil.NewTestDB(t, &Student{})
	svc := NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
	ctx := context.Background()

	_, err := svc.Register(ctx, "   ")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	st, err := svc.RegisterAt(ctx, " Alice ", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "Alice", st.DisplayName)
	require.Equal(t, 1, st.Level)
	require.Equal(t, RankE, st.Rank)

	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := svc.Lock(ctx, tx, st.ID)
		if err != nil {
			return err
		}
		locked.Experience = 150
		locked.Level = 2
		if err := svc.SaveProgress(ctx, tx, locked); err != nil {
			return err
		}
		return svc.AddBonusPoints(ctx, tx, st.ID, 10)
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150), got.Experience)
	require.Equal(t, 2, got.Level)
	require.Equal(t, int64(10), got.BonusPoints)

	_, err = svc.Get(ctx, "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
	_, err = svc.Load(ctx, nil, "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}
