package background

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/poiesic/babel/compare"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
	"golang.org/x/time/rate"
)

type messageKind int

const (
	msgMatch messageKind = iota + 1
	msgProgress
	msgFault
	msgDone
)

// workerMessage is the only thing workers share with the coordinator.
type workerMessage struct {
	kind    messageKind
	worker  int
	address core.Address         // match and fault: the page; progress and done: next unscanned address
	scanned int64                // progress and done: pages since the previous report
	results []*core.SearchResult // match only, one per phrase found on the page
	err     error                // fault only
}

// worker scans start, start+stride, start+2*stride... until told to stop.
type worker struct {
	index      int
	start      core.Address
	stride     int64
	pageLength int
	report     int64

	generate library.PageSource
	phrases  *atomic.Pointer[[]string]
	stopping *atomic.Bool
	limiter  *rate.Limiter

	out  chan<- workerMessage
	quit <-chan struct{}
}

// send delivers msg unless the coordinator has abandoned this worker.
func (w *worker) send(msg workerMessage) bool {
	msg.worker = w.index
	select {
	case w.out <- msg:
		return true
	case <-w.quit:
		return false
	}
}

func (w *worker) run(ctx context.Context) {
	next := w.start
	var pending int64
	defer func() {
		w.send(workerMessage{kind: msgDone, address: next, scanned: pending})
	}()

	for !w.stopping.Load() {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			if w.stopping.Load() {
				return
			}
		}

		results, err := w.scan(next)
		switch {
		case err != nil:
			if !w.send(workerMessage{kind: msgFault, address: next, err: err}) {
				return
			}
		case len(results) > 0:
			if !w.send(workerMessage{kind: msgMatch, address: next, results: results}) {
				return
			}
		}

		pending++
		if int64(next) > math.MaxInt64-w.stride {
			// Nothing left for this worker below the top of the address space.
			next = core.Address(math.MaxInt64)
			return
		}
		next += core.Address(w.stride)
		if pending >= w.report {
			if !w.send(workerMessage{kind: msgProgress, address: next, scanned: pending}) {
				return
			}
			pending = 0
		}
	}
}

// scan checks one page against the current phrase set. A panic while
// generating or matching becomes a core.ErrWorkerFault for that address.
func (w *worker) scan(address core.Address) (results []*core.SearchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = fmt.Errorf("%w: address %d: panic: %v", core.ErrWorkerFault, address, r)
		}
	}()

	page, err := w.generate(address, w.pageLength)
	if err != nil {
		return nil, fmt.Errorf("%w: address %d: %w", core.ErrWorkerFault, address, err)
	}

	var digest string
	for _, phrase := range *w.phrases.Load() {
		offset := strings.Index(page, phrase)
		if offset < 0 {
			continue
		}
		if digest == "" {
			digest = compare.Digest(page)
		}
		results = append(results, &core.SearchResult{
			Kind:        core.MatchExact,
			Phrase:      phrase,
			Address:     address,
			Offset:      offset,
			MatchedText: phrase,
			Digest:      digest,
		})
	}
	return results, nil
}
