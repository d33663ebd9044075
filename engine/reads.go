package engine

import (
	"context"

	"tierank/core"
	"tierank/leaderboard"
)

// Page is one page of a leaderboard with its totals.
type Page struct {
	Leaderboard  string              `json:"leaderboard"`
	Page         int                 `json:"page"`
	TotalPages   int64               `json:"total_pages"`
	TotalMembers int64               `json:"total_members"`
	Members      []core.RankedMember `json:"members"`
}

// Leaders returns page of name along with its totals.
func (s *Service) Leaders(ctx context.Context, name string, page int, opts ...leaderboard.ReadOption) (Page, error) {
	lb, err := s.Board(name)
	if err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	members, err := lb.Leaders(ctx, page, opts...)
	if err != nil {
		return Page{}, err
	}
	pages, err := lb.TotalPages(ctx, opts...)
	if err != nil {
		return Page{}, err
	}
	total, err := lb.TotalMembers(ctx)
	if err != nil {
		return Page{}, err
	}
	return Page{Leaderboard: name, Page: page, TotalPages: pages, TotalMembers: total, Members: members}, nil
}

// AroundMe returns the window of name around member.
func (s *Service) AroundMe(ctx context.Context, name, member string, opts ...leaderboard.ReadOption) ([]core.RankedMember, error) {
	lb, err := s.Board(name)
	if err != nil {
		return nil, err
	}
	return lb.AroundMe(ctx, member, opts...)
}

// ScoreAndRankFor returns member's record on name.
func (s *Service) ScoreAndRankFor(ctx context.Context, name, member string, opts ...leaderboard.ReadOption) (core.RankedMember, bool, error) {
	lb, err := s.Board(name)
	if err != nil {
		return core.RankedMember{}, false, err
	}
	return lb.ScoreAndRankFor(ctx, member, opts...)
}

// RankedInList returns the records of the listed members present on name.
func (s *Service) RankedInList(ctx context.Context, name string, members []string, opts ...leaderboard.ReadOption) ([]core.RankedMember, error) {
	lb, err := s.Board(name)
	if err != nil {
		return nil, err
	}
	return lb.RankedInList(ctx, members, opts...)
}

func (s *Service) TotalMembers(ctx context.Context, name string) (int64, error) {
	lb, err := s.Board(name)
	if err != nil {
		return 0, err
	}
	return lb.TotalMembers(ctx)
}
