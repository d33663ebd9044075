package memory

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"tierank/core"
)

// A skip list ordered by (score asc, member asc), the native order of a sorted
// set. Descending reads walk the same order backwards. Not safe for concurrent
// use; Store serializes access.

const maxLevel = 16
const pFactor = 0.25

type node struct {
	e    core.Entry
	next [maxLevel]*node
}

type skipList struct {
	head     *node
	lvl      int
	byMember map[string]*node
	rng      *rand.Rand
}

func newSkipList() *skipList {
	// Use crypto/rand to generate a secure seed for PCG
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	seed1 := binary.BigEndian.Uint64(seed[:8])
	seed2 := binary.BigEndian.Uint64(seed[8:])

	return &skipList{
		head:     &node{},
		lvl:      1,
		byMember: map[string]*node{},
		rng:      rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (s *skipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

func less(a, b core.Entry) bool {
	if a.Score == b.Score {
		return a.Member < b.Member
	}
	return a.Score < b.Score
}

func (s *skipList) Len() int { return len(s.byMember) }

// Upsert inserts or moves member to score.
func (s *skipList) Upsert(member string, score float64) {
	if old, ok := s.byMember[member]; ok {
		if old.e.Score == score {
			return
		}
		s.remove(old.e)
	}
	e := core.Entry{Member: member, Score: score}
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
		}
		s.lvl = lvl
	}
	n := &node{e: e}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.byMember[member] = n
}

func (s *skipList) remove(e core.Entry) {
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	target := update[0].next[0]
	if target == nil || target.e.Member != e.Member {
		return
	}
	for i := 0; i < s.lvl; i++ {
		if update[i].next[i] == target {
			update[i].next[i] = target.next[i]
		}
	}
	delete(s.byMember, e.Member)
	for s.lvl > 1 && s.head.next[s.lvl-1] == nil {
		s.lvl--
	}
}

// Remove deletes member and reports whether it was present.
func (s *skipList) Remove(member string) bool {
	n, ok := s.byMember[member]
	if ok {
		s.remove(n.e)
	}
	return ok
}

func (s *skipList) Score(member string) (float64, bool) {
	if n, ok := s.byMember[member]; ok {
		return n.e.Score, true
	}
	return 0, false
}

// Rank returns member's 0-indexed ascending position.
func (s *skipList) Rank(member string) (int, bool) {
	if _, ok := s.byMember[member]; !ok {
		return 0, false
	}
	i := 0
	for cur := s.head.next[0]; cur != nil; cur = cur.next[0] {
		if cur.e.Member == member {
			return i, true
		}
		i++
	}
	return 0, false
}

// Slice returns ascending positions start..stop inclusive; bounds must be valid.
func (s *skipList) Slice(start, stop int) []core.Entry {
	out := make([]core.Entry, 0, stop-start+1)
	i := 0
	for cur := s.head.next[0]; cur != nil && i <= stop; cur = cur.next[0] {
		if i >= start {
			out = append(out, cur.e)
		}
		i++
	}
	return out
}

// firstAtLeast returns the first node with score >= min.
func (s *skipList) firstAtLeast(min float64) *node {
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && cur.next[i].e.Score < min {
			cur = cur.next[i]
		}
	}
	return cur.next[0]
}

// ByScore returns entries with min <= score <= max in ascending order.
func (s *skipList) ByScore(min, max float64) []core.Entry {
	var out []core.Entry
	for cur := s.firstAtLeast(min); cur != nil && cur.e.Score <= max; cur = cur.next[0] {
		out = append(out, cur.e)
	}
	return out
}

// CountByScore counts entries with min <= score <= max.
func (s *skipList) CountByScore(min, max float64) int {
	n := 0
	for cur := s.firstAtLeast(min); cur != nil && cur.e.Score <= max; cur = cur.next[0] {
		n++
	}
	return n
}
