package core

import "context"

// Candidate describes a pending score write for a Condition to judge.
type Candidate struct {
	Member     string
	Current    float64 // zero when !Exists
	Exists     bool
	Score      float64
	MemberData string
}

// Condition decides whether a candidate score should be written.
type Condition interface {
	Allow(ctx context.Context, c Candidate) bool
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(ctx context.Context, c Candidate) bool

func (f ConditionFunc) Allow(ctx context.Context, c Candidate) bool { return f(ctx, c) }

// HigherScoreWins keeps a member's best score on a descending board.
type HigherScoreWins struct{}

func (HigherScoreWins) Allow(_ context.Context, c Candidate) bool {
	return !c.Exists || c.Score > c.Current
}

// LowerScoreWins keeps a member's best score on an ascending board (fastest time).
type LowerScoreWins struct{}

func (LowerScoreWins) Allow(_ context.Context, c Candidate) bool {
	return !c.Exists || c.Score < c.Current
}

// Always accepts every write.
type Always struct{}

func (Always) Allow(context.Context, Candidate) bool { return true }

// BestScoreWins returns the condition that keeps the best score for order.
func BestScoreWins(order SortOrder) Condition {
	if order == Ascending {
		return LowerScoreWins{}
	}
	return HigherScoreWins{}
}
