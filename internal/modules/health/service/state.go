package service

import (
	"sync/atomic"
	"time"
)

// State: флаги живости для /readyz и /healthz.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	botConnected atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds, последний проход fill watcher
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetBotConnected(v bool) { s.botConnected.Store(v) }
func (s *State) BotConnected() bool     { return s.botConnected.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
