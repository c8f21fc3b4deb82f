package celengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	attrs := map[string]any{
		"streak":     int64(7),
		"rank":       "C",
		"early":      true,
		"created_at": time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	env, err := BuildCelEnvFromAttributes(attrs)
	require.NoError(t, err)

	ok, err := Evaluate(env, `streak >= 7 && rank == "C"`, attrs)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Evaluate(env, `created_at < timestamp("2026-01-01T00:00:00Z") && !early`, attrs)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompileBoolRejectsNonBool(t *testing.T) {
	env, err := BuildCelEnvFromAttributes(map[string]any{"streak": int64(1)})
	require.NoError(t, err)

	_, err = CompileBool(env, "streak + 1")
	require.Error(t, err)

	require.Error(t, ValidateExpression(env, "unknown > 1"))
	require.NoError(t, ValidateExpression(env, "streak > 1"))
}
