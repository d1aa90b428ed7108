package background

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/library"
	"github.com/poiesic/babel/storage"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// persistAttempts is how many times a result append or checkpoint write is
// tried before it is reported as a warning.
const persistAttempts = 2

// Coordinator runs a background scan. It is single use: create a new one
// for every run.
type Coordinator struct {
	results     storage.ResultRepository
	checkpoints storage.CheckpointRepository
	phraseStore storage.PhraseRepository

	config     *Config
	logger     *slog.Logger
	registerer prometheus.Registerer
	generate   library.PageSource
	now        func() time.Time
	progressTo io.Writer
	reporter   *RateReporter

	runID   string
	metrics *metrics
	events  *publisher

	phraseMu sync.Mutex
	phrases  atomic.Pointer[[]string]

	started  atomic.Bool
	stopping atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}

	scanned    atomic.Int64
	matches    atomic.Int64
	duplicates atomic.Int64
	faults     atomic.Int64
	checkpoint atomic.Int64
}

// Stats is a point-in-time view of a running scan.
type Stats struct {
	Scanned    int64
	Matches    int64
	Duplicates int64
	Faults     int64
	Checkpoint core.Address
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Resume     core.Address // Address the run started from
	Checkpoint core.Address // Last saved resume address
	Scanned    int64
	Matches    int64
	Duplicates int64
	Faults     int64
	Abandoned  int // Workers still busy when the grace period ran out
	Elapsed    time.Duration
}

// WithPhraseRepository persists phrases added or removed while running.
func WithPhraseRepository(phrases storage.PhraseRepository) Option {
	return func(c *Coordinator) error {
		c.phraseStore = phrases
		return nil
	}
}

// WithProgress writes a running tally to w, such as os.Stderr.
func WithProgress(w io.Writer) Option {
	return func(c *Coordinator) error {
		c.progressTo = w
		return nil
	}
}

// New creates a Coordinator watching phrases. Phrases are normalized and
// validated; duplicates are dropped.
func New(
	results storage.ResultRepository,
	checkpoints storage.CheckpointRepository,
	phrases []string,
	opts ...Option,
) (*Coordinator, error) {
	if results == nil {
		return nil, ErrResultRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}

	c := &Coordinator{
		results:     results,
		checkpoints: checkpoints,
		config:      DefaultConfig(),
		logger:      slog.Default(),
		generate:    library.Generate,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	watched := make([]string, 0, len(phrases))
	for _, p := range phrases {
		normalized, err := core.ValidatePhrase(p)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(watched, normalized) {
			watched = append(watched, normalized)
		}
	}
	if len(watched) == 0 {
		return nil, ErrNoPhrases
	}
	c.phrases.Store(&watched)

	c.runID = uuid.NewString()
	c.logger = c.logger.With("scan", c.config.Name, "run", c.runID)
	c.metrics = newMetrics(c.registerer, c.config.Name)
	c.events = newPublisher(c.config.EventBuffer, c.metrics.droppedEvents.Inc)
	if c.progressTo != nil {
		c.reporter = NewRateReporter(c.progressTo, c.config.CheckpointInterval)
	}
	return c, nil
}

// RunID identifies this run in logs and events.
func (c *Coordinator) RunID() string {
	return c.runID
}

// Events returns the event stream. It is closed when Run returns. Events
// are dropped, not queued, when the buffer is full.
func (c *Coordinator) Events() <-chan Event {
	return c.events.ch
}

// DroppedEvents returns how many events were dropped so far.
func (c *Coordinator) DroppedEvents() int64 {
	return c.events.dropped.Load()
}

// Stop asks a running scan to stop. It does not wait; Run returns once the
// scan has wound down. Calling Stop more than once is harmless.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Stats returns current counters. Safe to call from any goroutine.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Scanned:    c.scanned.Load(),
		Matches:    c.matches.Load(),
		Duplicates: c.duplicates.Load(),
		Faults:     c.faults.Load(),
		Checkpoint: core.Address(c.checkpoint.Load()),
	}
}

// Phrases returns the watched phrases.
func (c *Coordinator) Phrases() []string {
	return slices.Clone(*c.phrases.Load())
}

// AddPhrase starts watching phrase. Workers pick it up from their next page.
// Returns the normalized phrase and whether it was new.
func (c *Coordinator) AddPhrase(ctx context.Context, phrase string) (string, bool, error) {
	phrase, err := core.ValidatePhrase(phrase)
	if err != nil {
		return "", false, err
	}

	c.phraseMu.Lock()
	defer c.phraseMu.Unlock()
	current := *c.phrases.Load()
	if slices.Contains(current, phrase) {
		return phrase, false, nil
	}
	if c.phraseStore != nil {
		if _, _, err := c.phraseStore.AddPhrase(ctx, phrase); err != nil {
			return "", false, err
		}
	}
	next := append(slices.Clip(current), phrase)
	c.phrases.Store(&next)
	c.logger.Info("watching phrase", "phrase", phrase)
	return phrase, true, nil
}

// RemovePhrase stops watching phrase. The last phrase cannot be removed.
func (c *Coordinator) RemovePhrase(ctx context.Context, phrase string) error {
	phrase = core.NormalizePhrase(phrase)

	c.phraseMu.Lock()
	defer c.phraseMu.Unlock()
	current := *c.phrases.Load()
	i := slices.Index(current, phrase)
	if i < 0 {
		return fmt.Errorf("%w: phrase %q", storage.ErrNotFound, phrase)
	}
	if len(current) == 1 {
		return ErrNoPhrases
	}
	if c.phraseStore != nil {
		if err := c.phraseStore.RemovePhrase(ctx, phrase); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	next := slices.Delete(slices.Clone(current), i, i+1)
	c.phrases.Store(&next)
	c.logger.Info("stopped watching phrase", "phrase", phrase)
	return nil
}

// runState is owned by the Run goroutine.
type runState struct {
	frontiers []core.Address // next unscanned address per worker
	pinned    []bool         // frontier frozen by a failed append
	done      []bool
	running   int
	lastSaved core.Address
	attempted core.Address // last failed checkpoint target
	seen      map[core.ResultKey]struct{}
}

// safe returns the lowest worker frontier. Every address below it has
// been scanned and its matches persisted.
func (s *runState) safe() core.Address {
	return slices.Min(s.frontiers)
}

// Run scans until ctx is cancelled or Stop is called, then writes a final
// checkpoint. Persistence failures are reported as events and do not end
// the run.
func (c *Coordinator) Run(ctx context.Context) (Summary, error) {
	if !c.started.CompareAndSwap(false, true) {
		return Summary{}, ErrAlreadyStarted
	}
	defer c.events.close()

	began := c.now()
	persistCtx := context.WithoutCancel(ctx)
	resume := c.loadResume(ctx)
	c.checkpoint.Store(int64(resume))
	c.metrics.checkpoint.Set(float64(resume))

	workers := c.config.Workers
	pool, err := ants.NewPool(workers)
	if err != nil {
		return Summary{}, err
	}
	defer pool.Release()

	s := &runState{
		frontiers: make([]core.Address, workers),
		pinned:    make([]bool, workers),
		done:      make([]bool, workers),
		lastSaved: resume,
		attempted: resume,
		seen:      c.loadSeen(ctx),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	msgs := make(chan workerMessage, workers*4)
	quit := make(chan struct{})

	if c.reporter != nil {
		c.reporter.Start()
	}
	for i := range workers {
		s.frontiers[i] = resume + core.Address(i)
		w := &worker{
			index:      i,
			start:      resume + core.Address(i),
			stride:     int64(workers),
			pageLength: c.config.PageLength,
			report:     int64(c.config.ReportEvery),
			generate:   c.generate,
			phrases:    &c.phrases,
			stopping:   &c.stopping,
			out:        msgs,
			quit:       quit,
		}
		if c.config.RateLimit > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(c.config.RateLimit), 1)
		}
		if err := pool.Submit(func() { w.run(runCtx) }); err != nil {
			c.logger.Error("failed to start worker", "worker", i, "error", err)
			s.done[i] = true
			c.Stop()
			continue
		}
		s.running++
		c.metrics.activeWorkers.Inc()
	}

	c.publish(Event{Kind: EventStarted, Worker: -1, Address: resume})
	c.logger.Info("background scan started",
		"resume", resume, "workers", workers, "phrases", len(*c.phrases.Load()))

	var grace <-chan time.Time
	ctxDone, stopReq := ctx.Done(), (<-chan struct{})(c.stopCh)
	beginStop := func(reason string) {
		ctxDone, stopReq = nil, nil
		c.stopping.Store(true)
		cancel()
		timer := time.NewTimer(c.config.GracePeriod)
		grace = timer.C
		c.logger.Info("stopping background scan", "reason", reason, "grace", c.config.GracePeriod)
	}

	abandoned := 0
loop:
	for s.running > 0 {
		select {
		case msg := <-msgs:
			c.handle(persistCtx, s, msg)
		case <-ctxDone:
			beginStop("context done")
		case <-stopReq:
			beginStop("stop requested")
		case <-grace:
			close(quit)
			abandoned = s.running
			c.drain(persistCtx, s, msgs)
			c.logger.Warn("grace period expired, abandoning workers", "abandoned", abandoned)
			c.metrics.activeWorkers.Set(0)
			break loop
		}
	}

	if target := s.safe(); target > s.lastSaved {
		c.saveCheckpoint(persistCtx, s, target)
	}
	if c.reporter != nil {
		c.reporter.Finish()
	}

	summary := Summary{
		RunID:      c.runID,
		Resume:     resume,
		Checkpoint: s.lastSaved,
		Scanned:    c.scanned.Load(),
		Matches:    c.matches.Load(),
		Duplicates: c.duplicates.Load(),
		Faults:     c.faults.Load(),
		Abandoned:  abandoned,
		Elapsed:    c.now().Sub(began),
	}
	c.publish(Event{Kind: EventStopped, Worker: -1, Address: s.lastSaved})
	c.logger.Info("background scan stopped",
		"checkpoint", summary.Checkpoint,
		"scanned", summary.Scanned,
		"matches", summary.Matches,
		"faults", summary.Faults,
		"abandoned", summary.Abandoned,
		"elapsed", summary.Elapsed)
	return summary, nil
}

// drain handles messages already queued without waiting for more.
func (c *Coordinator) drain(ctx context.Context, s *runState, msgs <-chan workerMessage) {
	for {
		select {
		case msg := <-msgs:
			c.handle(ctx, s, msg)
		default:
			return
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, s *runState, msg workerMessage) {
	switch msg.kind {
	case msgMatch:
		c.persist(ctx, s, msg)
	case msgFault:
		c.faults.Add(1)
		c.metrics.faults.Inc()
		c.logger.Warn("skipping page after worker fault", "worker", msg.worker, "address", msg.address, "error", msg.err)
		c.publish(Event{Kind: EventFault, Worker: msg.worker, Address: msg.address, Err: msg.err})
	case msgProgress, msgDone:
		c.scanned.Add(msg.scanned)
		c.metrics.pagesScanned.Add(float64(msg.scanned))
		if c.reporter != nil {
			c.reporter.AddPages(msg.scanned)
		}
		if !s.pinned[msg.worker] {
			s.frontiers[msg.worker] = msg.address
		}
		if msg.kind == msgDone && !s.done[msg.worker] {
			s.done[msg.worker] = true
			s.running--
			c.metrics.activeWorkers.Dec()
		}
		if target := s.safe(); target-max(s.lastSaved, s.attempted) >= core.Address(c.config.CheckpointInterval) {
			c.saveCheckpoint(ctx, s, target)
		}
	}
}

// persist appends the new results of one page. If the append fails the
// worker's frontier is frozen at that page so no checkpoint moves past it.
func (c *Coordinator) persist(ctx context.Context, s *runState, msg workerMessage) {
	fresh := make([]*core.SearchResult, 0, len(msg.results))
	for _, r := range msg.results {
		if _, ok := s.seen[r.Key()]; ok {
			c.duplicates.Add(1)
			c.metrics.duplicates.Inc()
			continue
		}
		r.Timestamp = c.now().UTC()
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return
	}

	var added []*core.SearchResult
	err := RetryWithBackoff(ctx, func() error {
		var err error
		added, err = c.results.AppendResults(ctx, fresh...)
		return err
	}, persistAttempts, c.config.RetryDelay)
	if err != nil {
		s.pinned[msg.worker] = true
		s.frontiers[msg.worker] = min(s.frontiers[msg.worker], msg.address)
		c.logger.Error("failed to persist matches", "worker", msg.worker, "address", msg.address, "error", err)
		c.publish(Event{Kind: EventWarning, Worker: msg.worker, Address: msg.address,
			Err: fmt.Errorf("persisting matches: %w", err)})
		return
	}

	for _, r := range fresh {
		s.seen[r.Key()] = struct{}{}
	}
	if dups := len(fresh) - len(added); dups > 0 {
		c.duplicates.Add(int64(dups))
		c.metrics.duplicates.Add(float64(dups))
	}
	for _, r := range added {
		c.matches.Add(1)
		c.metrics.matches.Inc()
		if c.reporter != nil {
			c.reporter.AddMatches(1)
		}
		c.logger.Info("match found", "phrase", r.Phrase, "address", r.Address, "offset", r.Offset)
		c.publish(Event{Kind: EventMatch, Worker: msg.worker, Address: r.Address, Result: r})
	}
}

func (c *Coordinator) saveCheckpoint(ctx context.Context, s *runState, target core.Address) {
	checkpoint := &core.Checkpoint{Name: c.config.Name, LastAddress: target}
	err := RetryWithBackoff(ctx, func() error {
		return c.checkpoints.SaveCheckpoint(ctx, checkpoint)
	}, persistAttempts, c.config.RetryDelay)
	if err != nil {
		s.attempted = target
		c.metrics.checkpoints.WithLabelValues("failed").Inc()
		c.logger.Warn("failed to save checkpoint", "address", target, "error", err)
		c.publish(Event{Kind: EventWarning, Worker: -1, Address: target,
			Err: fmt.Errorf("saving checkpoint: %w", err)})
		return
	}

	s.lastSaved = target
	c.checkpoint.Store(int64(target))
	c.metrics.checkpoint.Set(float64(target))
	c.metrics.checkpoints.WithLabelValues("ok").Inc()
	c.logger.Debug("checkpoint saved", "address", target)
	c.publish(Event{Kind: EventCheckpoint, Worker: -1, Address: target})
}

// loadResume returns the saved resume address, or 0 when there is none or
// it cannot be read.
func (c *Coordinator) loadResume(ctx context.Context) core.Address {
	checkpoint, err := c.checkpoints.LoadCheckpoint(ctx, c.config.Name)
	switch {
	case err != nil:
		c.logger.Warn("checkpoint unreadable, starting from 0", "error", err)
		c.publish(Event{Kind: EventWarning, Worker: -1, Err: fmt.Errorf("loading checkpoint: %w", err)})
		return 0
	case checkpoint == nil:
		c.logger.Info("no checkpoint, starting from 0")
		return 0
	default:
		return checkpoint.LastAddress
	}
}

// loadSeen returns the keys of already persisted results.
func (c *Coordinator) loadSeen(ctx context.Context) map[core.ResultKey]struct{} {
	seen := make(map[core.ResultKey]struct{})
	existing, err := c.results.ListResults(ctx)
	if err != nil {
		c.logger.Warn("could not load existing results, relying on store deduplication", "error", err)
		return seen
	}
	for _, r := range existing {
		seen[r.Key()] = struct{}{}
	}
	return seen
}

func (c *Coordinator) publish(ev Event) {
	ev.RunID = c.runID
	ev.Time = c.now().UTC()
	c.events.publish(ev)
}
