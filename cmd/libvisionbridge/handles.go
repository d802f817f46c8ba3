package main

import (
	"sync"
	"sync/atomic"

	"github.com/PhiFever/vision-bridge/internal/ocr"
)

// handleTable maps opaque C handles to engines. Ids are never reused, so a
// stale or repeated handle finds nothing.
type handleTable struct {
	next    atomic.Uint64
	engines sync.Map // uint64 -> *ocr.Engine
}

func (t *handleTable) add(e *ocr.Engine) uint64 {
	id := t.next.Add(1)
	t.engines.Store(id, e)
	return id
}

func (t *handleTable) get(id uint64) (*ocr.Engine, bool) {
	v, ok := t.engines.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*ocr.Engine), true
}

func (t *handleTable) remove(id uint64) (*ocr.Engine, bool) {
	v, ok := t.engines.LoadAndDelete(id)
	if !ok {
		return nil, false
	}
	return v.(*ocr.Engine), true
}
