package service

import "time"

func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) SetIDs(newID func() string) { e.newID = newID }
