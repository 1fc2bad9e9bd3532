package state

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

type handlerSet struct {
	mu sync.RWMutex
	m  map[State]tele.HandlerFunc
}

func (hs *handlerSet) set(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.m == nil {
		hs.m = make(map[State]tele.HandlerFunc)
	}
	hs.m[st] = h
}

func (hs *handlerSet) get(st State) (tele.HandlerFunc, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	h, ok := hs.m[st]
	return h, ok
}
