package tierank

import (
	"context"
	"testing"
	"time"

	mem "tierank/adapters/memory"
	"tierank/core"
	"tierank/engine"
	"tierank/leaderboard"
	"tierank/realtime"
)

func TestNewDefaultsAndOptions(t *testing.T) {
	hub := realtime.NewHub()
	svc, err := New(
		WithRealtime(hub),
		WithStore(mem.New()),
		WithDispatchMode(engine.DispatchSync),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer svc.Close()

	// realtime bridge should receive event
	_, ch := hub.Subscribe(1)
	rec, err := svc.RankMember(context.Background(), "weekly", "alice", 5)
	if err != nil || rec.Rank != 1 {
		t.Fatalf("rank member rec=%+v err=%v", rec, err)
	}
	ev := <-ch
	if ev.Member != "alice" || ev.Type != core.EventMemberRanked {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestInMemoryFallback(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer svc.Close()

	ctx := context.Background()
	for member, score := range map[string]float64{"bob": 3, "carol": 3, "dave": 1} {
		if _, err := svc.RankMember(ctx, "daily", member, score); err != nil {
			t.Fatalf("fallback rank %s: %v", member, err)
		}
	}
	rec, ok, err := svc.ScoreAndRankFor(ctx, "daily", "dave")
	if err != nil || !ok {
		t.Fatalf("fallback score and rank ok=%v err=%v", ok, err)
	}
	if rec.Rank != 2 {
		t.Fatalf("expected dense rank 2, got %d", rec.Rank)
	}
}

func TestInvalidLeaderboardConfig(t *testing.T) {
	lc := leaderboard.DefaultConfig()
	lc.Order = "sideways"
	if _, err := New(WithLeaderboardConfig(lc)); err == nil {
		t.Fatal("expected config error")
	}
}

func TestAsyncDefault(t *testing.T) {
	hub := realtime.NewHub()
	svc, err := New(WithRealtime(hub))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, ch := hub.Subscribe(1)
	if _, err := svc.RankMember(context.Background(), "weekly", "erin", 9); err != nil {
		t.Fatalf("rank: %v", err)
	}
	select {
	case ev := <-ch:
		if ev.Leaderboard != "weekly" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("async event not delivered")
	}
	svc.Close()
}
