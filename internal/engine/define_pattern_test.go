package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/KyroDB/kyroql/internal/confidence"
	"github.com/KyroDB/kyroql/internal/ir"
	"github.com/KyroDB/kyroql/internal/pattern"
	"github.com/KyroDB/kyroql/internal/timerange"
)

func TestExecuteDefinePatternInsertsActivePattern(t *testing.T) {
	eng, _ := newTestEngine(t)

	env, err := ir.NewDefinePattern(ir.DefinePatternPayload{
		Name: "unique-email", Rule: pattern.NewUnique("email"), ValidTime: timerange.Forever(),
	}, time.Now())
	require.NoError(t, err)

	resp, err := eng.Execute(context.Background(), env)
	require.NoError(t, err)
	require.NotEqual(t, confidence.PatternID{}, resp.PatternID)

	p, err := eng.Patterns.Get(context.Background(), resp.PatternID)
	require.NoError(t, err)
	require.True(t, p.Active)
	require.Equal(t, "unique-email", p.Name)
	require.Equal(t, pattern.RuleUnique, p.Rule.Kind)
}

func TestExecuteDefinePatternRejectsEmptyName(t *testing.T) {
	_, err := ir.NewDefinePattern(ir.DefinePatternPayload{
		Name: "", Rule: pattern.NewUnique("email"), ValidTime: timerange.Forever(),
	}, time.Now())
	require.Error(t, err)
}
