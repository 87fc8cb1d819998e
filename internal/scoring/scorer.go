package scoring

import (
	"context"
	"time"

	"github.com/iliyamo/drop-waitlist/internal/model"
)

const (
	baseScore         = 1000
	rapidActionWindow = 5 * time.Minute
	msPerDay          = int64(24 * time.Hour / time.Millisecond)
)

// ActivityCounter is the append-only count query over a user's recent
// joins and claim codes.
type ActivityCounter interface {
	CountJoinsSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	CountClaimsSince(ctx context.Context, userID uint64, since time.Time) (int, error)
}

// Scorer computes
//
//	1000 + (signupLatencyMs mod A) + (accountAgeDays mod B) - (rapidActions mod C)
//
// All modulo operations are Euclidean, so the result is defined for a
// join timestamp earlier than the drop or user creation time.
type Scorer struct {
	coef Coefficients
}

// NewScorer validates the coefficients and returns a Scorer.
func NewScorer(c Coefficients) (*Scorer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{coef: c}, nil
}

// Coefficients returns the moduli in use.
func (s *Scorer) Coefficients() Coefficients { return s.coef }

// Score computes the priority score of user joining drop at joinTime.
// Counter errors are returned unchanged.
func (s *Scorer) Score(ctx context.Context, activity ActivityCounter, user model.User, drop model.Drop, joinTime time.Time) (int64, error) {
	since := joinTime.Add(-rapidActionWindow)
	joins, err := activity.CountJoinsSince(ctx, user.ID, since)
	if err != nil {
		return 0, err
	}
	claims, err := activity.CountClaimsSince(ctx, user.ID, since)
	if err != nil {
		return 0, err
	}
	return s.Compute(Inputs{
		SignupLatencyMs: joinTime.Sub(drop.CreatedAt).Milliseconds(),
		AccountAgeDays:  floorDiv(joinTime.Sub(user.CreatedAt).Milliseconds(), msPerDay),
		RapidActions:    int64(joins + claims),
	}), nil
}

// Inputs are the derived counters the formula is applied to.
type Inputs struct {
	SignupLatencyMs int64
	AccountAgeDays  int64
	RapidActions    int64
}

// Compute applies the formula to already derived counters.
func (s *Scorer) Compute(in Inputs) int64 {
	return baseScore +
		mod(in.SignupLatencyMs, s.coef.A) +
		mod(in.AccountAgeDays, s.coef.B) -
		mod(in.RapidActions, s.coef.C)
}

// mod returns the Euclidean remainder of a by a positive m.
func mod(a, m int64) int64 {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
