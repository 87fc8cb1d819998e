package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/drop-waitlist/internal/model"
)

type fakeActivity struct {
	joins, claims int
	err           error
	since         time.Time
}

func (f *fakeActivity) CountJoinsSince(_ context.Context, _ uint64, since time.Time) (int, error) {
	f.since = since
	return f.joins, f.err
}

func (f *fakeActivity) CountClaimsSince(_ context.Context, _ uint64, _ time.Time) (int, error) {
	return f.claims, nil
}

func mustScorer(t *testing.T, a, b, c int64) *Scorer {
	t.Helper()
	s, err := NewScorer(Coefficients{A: a, B: b, C: c})
	require.NoError(t, err)
	return s
}

func TestCompute(t *testing.T) {
	s := mustScorer(t, 7, 13, 3)
	tests := []struct {
		name string
		in   Inputs
		want int64
	}{
		{"zero", Inputs{}, 1000},
		{"all terms", Inputs{SignupLatencyMs: 100, AccountAgeDays: 20, RapidActions: 4}, 1000 + 2 + 7 - 1},
		{"rapid multiple of C", Inputs{RapidActions: 6}, 1000},
		{"negative latency floors", Inputs{SignupLatencyMs: -1}, 1000 + 6},
		{"negative age floors", Inputs{AccountAgeDays: -14}, 1000 + 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Compute(tt.in))
		})
	}
}

func TestScore(t *testing.T) {
	s := mustScorer(t, 7, 13, 3)
	dropCreated := time.Date(2025, 11, 4, 9, 0, 0, 0, time.UTC)
	join := dropCreated.Add(1500 * time.Millisecond)
	user := model.User{ID: 1, CreatedAt: join.Add(-(3*24*time.Hour + time.Hour))}
	drop := model.Drop{ID: 1, CreatedAt: dropCreated}
	act := &fakeActivity{joins: 2, claims: 1}

	got, err := s.Score(context.Background(), act, user, drop, join)
	require.NoError(t, err)
	// 1500 mod 7 = 2, 3 days mod 13 = 3, 3 actions mod 3 = 0
	assert.Equal(t, int64(1005), got)
	assert.Equal(t, join.Add(-5*time.Minute), act.since)
}

func TestScoreDeterministic(t *testing.T) {
	s := mustScorer(t, 11, 19, 5)
	now := time.Now()
	user := model.User{ID: 7, CreatedAt: now.Add(-400 * time.Hour)}
	drop := model.Drop{ID: 3, CreatedAt: now.Add(-90 * time.Minute)}
	a, err := s.Score(context.Background(), &fakeActivity{joins: 1}, user, drop, now)
	require.NoError(t, err)
	b, err := s.Score(context.Background(), &fakeActivity{joins: 1}, user, drop, now)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScorePropagatesCounterError(t *testing.T) {
	s := mustScorer(t, 7, 13, 3)
	boom := errors.New("boom")
	_, err := s.Score(context.Background(), &fakeActivity{err: boom}, model.User{}, model.Drop{}, time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestNewScorerRejectsNonPositive(t *testing.T) {
	for _, c := range []Coefficients{{0, 13, 3}, {7, -1, 3}, {7, 13, 0}} {
		_, err := NewScorer(c)
		assert.Error(t, err, "%+v", c)
	}
}

func TestFromSeed(t *testing.T) {
	c, err := FromSeed("000000abcdef")
	require.NoError(t, err)
	assert.Equal(t, Coefficients{A: 7, B: 13, C: 3}, c)

	// 0xff = 255: 255%5=0, 255%7=3, 255%3=0
	c, err = FromSeed("ffffff000000")
	require.NoError(t, err)
	assert.Equal(t, Coefficients{A: 7, B: 16, C: 3}, c)

	_, err = FromSeed("abc")
	assert.Error(t, err)
	_, err = FromSeed("zz0000000000")
	assert.Error(t, err)
}

func TestDeriveRanges(t *testing.T) {
	for _, in := range []SeedInputs{
		DefaultSeedInputs(),
		{Remote: "a", Epoch: "1", Start: "2"},
		{Remote: "https://example.com/x.git", Epoch: "1700000000", Start: "202401010000"},
	} {
		seed, c, err := Derive(in)
		require.NoError(t, err)
		assert.Len(t, seed, 12)
		assert.Equal(t, seed, Seed(in))
		assert.True(t, c.A >= 7 && c.A <= 11, "A=%d", c.A)
		assert.True(t, c.B >= 13 && c.B <= 19, "B=%d", c.B)
		assert.True(t, c.C >= 3 && c.C <= 5, "C=%d", c.C)
	}
}
