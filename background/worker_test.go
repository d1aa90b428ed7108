package background

import (
	"context"
	"math"
	"sync/atomic"
	"testing"

	"github.com/poiesic/babel/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(start core.Address, stride int64, out chan workerMessage) *worker {
	phrases := &atomic.Pointer[[]string]{}
	watched := []string{"ab"}
	phrases.Store(&watched)
	return &worker{
		start:      start,
		stride:     stride,
		pageLength: 4,
		report:     100,
		generate: func(core.Address, int) (string, error) {
			return "abab", nil
		},
		phrases:  phrases,
		stopping: &atomic.Bool{},
		out:      out,
		quit:     make(chan struct{}),
	}
}

func TestWorker_StopsAtAddressSpaceEnd(t *testing.T) {
	out := make(chan workerMessage, 16)
	w := newTestWorker(core.Address(math.MaxInt64-5), 3, out)
	w.run(context.Background())
	close(out)

	var matched []core.Address
	var done *workerMessage
	for msg := range out {
		switch msg.kind {
		case msgMatch:
			matched = append(matched, msg.address)
		case msgDone:
			done = &msg
		}
	}
	assert.Equal(t, []core.Address{math.MaxInt64 - 5, math.MaxInt64 - 2}, matched)
	require.NotNil(t, done)
	assert.Equal(t, int64(2), done.scanned)
	assert.Equal(t, core.Address(math.MaxInt64), done.address)
}

func TestWorker_ReportsFirstOffset(t *testing.T) {
	out := make(chan workerMessage, 16)
	w := newTestWorker(0, 1, out)
	w.report = 1
	w.generate = func(address core.Address, _ int) (string, error) {
		if address == 2 {
			w.stopping.Store(true)
		}
		return "xxab", nil
	}
	w.run(context.Background())
	close(out)

	var results []*core.SearchResult
	var scanned int64
	for msg := range out {
		results = append(results, msg.results...)
		scanned += msg.scanned
	}
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Offset)
	assert.NotEmpty(t, results[0].Digest)
	assert.Equal(t, int64(3), scanned)
}
