// Package pipeline drives application records through their state
// machine: it decides which postings advance to material generation and
// submission, enforces at-most-once delivery per dedup key, and applies
// the retry policy to flaky collaborators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/application"
	"github.com/candigo/candigo/internal/dedup"
	"github.com/candigo/candigo/internal/letter"
	"github.com/candigo/candigo/internal/notify"
	"github.com/candigo/candigo/internal/posting"
	"github.com/candigo/candigo/internal/profile"
	"github.com/candigo/candigo/internal/scoring"
	"github.com/candigo/candigo/internal/source"
	"github.com/candigo/candigo/internal/store"
	"github.com/candigo/candigo/internal/submit"
)

// Mode selects how far the pipeline may take a record on its own.
type Mode string

const (
	// ModeAutomatic submits applications without human involvement.
	ModeAutomatic Mode = "automatic"
	// ModeSemiAutomatic stops at MATERIALS_READY; a human completes the
	// delivery through the review command. Resting there is not a
	// failure.
	ModeSemiAutomatic Mode = "semi-automatic"
)

// Config controls the pipeline controller.
type Config struct {
	Mode Mode `mapstructure:"mode"`

	// Retry bounds letter-generation attempts within one cycle.
	Retry Policy `mapstructure:"retry"`

	// MaxTotalAttempts is the lifetime attempt budget per record across
	// all cycles. Rate-limit signals keep a record retriable until this
	// budget is exhausted.
	MaxTotalAttempts int `mapstructure:"max-total-attempts"`

	// MaxPerCycle caps how many records may enter generation/submission
	// in one cycle. Zero means no cap.
	MaxPerCycle int `mapstructure:"max-per-cycle"`

	// MaxConcurrentSubmissions bounds the worker pool. Kept low by
	// default: job boards watch for bursts.
	MaxConcurrentSubmissions int `mapstructure:"max-concurrent-submissions"`

	GenerationTimeout time.Duration `mapstructure:"generation-timeout"`
	SubmissionTimeout time.Duration `mapstructure:"submission-timeout"`

	// SubmissionCooldown is the pause a worker takes between records.
	SubmissionCooldown time.Duration `mapstructure:"submission-cooldown"`
}

func DefaultConfig() Config {
	return Config{
		Mode:                     ModeSemiAutomatic,
		Retry:                    DefaultPolicy(),
		MaxTotalAttempts:         6,
		MaxPerCycle:              10,
		MaxConcurrentSubmissions: 1,
		GenerationTimeout:        2 * time.Minute,
		SubmissionTimeout:        5 * time.Minute,
		SubmissionCooldown:       5 * time.Second,
	}
}

// WithDefaults fills unset fields, so a config file only needs to name
// what it changes.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.Retry.Mode == "" {
		c.Retry.Mode = def.Retry.Mode
	}
	if c.Retry.Initial == 0 {
		c.Retry.Initial = def.Retry.Initial
	}
	if c.Retry.Max == 0 {
		c.Retry.Max = def.Retry.Max
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.MaxTotalAttempts == 0 {
		c.MaxTotalAttempts = def.MaxTotalAttempts
	}
	if c.MaxConcurrentSubmissions == 0 {
		c.MaxConcurrentSubmissions = def.MaxConcurrentSubmissions
	}
	if c.GenerationTimeout == 0 {
		c.GenerationTimeout = def.GenerationTimeout
	}
	if c.SubmissionTimeout == 0 {
		c.SubmissionTimeout = def.SubmissionTimeout
	}
	return c
}

func (c Config) Validate() error {
	if c.Mode != ModeAutomatic && c.Mode != ModeSemiAutomatic {
		return fmt.Errorf("unknown pipeline mode %q", c.Mode)
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	if c.MaxTotalAttempts < c.Retry.MaxAttempts {
		return fmt.Errorf("max-total-attempts (%d) cannot be below retry max-attempts (%d)",
			c.MaxTotalAttempts, c.Retry.MaxAttempts)
	}
	if c.MaxConcurrentSubmissions < 1 {
		return fmt.Errorf("max-concurrent-submissions must be at least 1")
	}
	if c.GenerationTimeout <= 0 || c.SubmissionTimeout <= 0 {
		return fmt.Errorf("collaborator timeouts must be positive")
	}
	return nil
}

// Deps aggregates the engine's collaborators. Store, Generator, Outbox
// and Logger are required; Submitter only in automatic mode. Sleep and
// Now default to the real clock.
type Deps struct {
	Store     store.Store
	Generator letter.Generator
	// Fallback, when set, replaces the letter after the generator has
	// exhausted its retries instead of failing the record.
	Fallback  letter.Generator
	Submitter submit.Submitter
	Outbox    *submit.Outbox
	Notifier  notify.Notifier
	Logger    *zap.Logger
	Sleep     Sleeper
	Now       func() time.Time
}

// Controller runs batch cycles. Per-key work is serialized through a
// keyed mutex so two cycles can never act on the same record
// concurrently; different keys proceed in parallel inside a bounded
// worker pool.
type Controller struct {
	cfg        Config
	scorer     *scoring.Scorer
	normalizer *source.Normalizer
	dedup      *dedup.Deduplicator
	deps       Deps

	keyMu    sync.Mutex
	keyLocks map[string]*sync.Mutex

	repMu sync.Mutex
}

func NewController(cfg Config, scorer *scoring.Scorer, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Store == nil {
		return nil, errors.New("tracking store is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("letter generator is required")
	}
	if deps.Outbox == nil {
		return nil, errors.New("outbox is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Mode == ModeAutomatic && deps.Submitter == nil {
		return nil, errors.New("submitter is required in automatic mode")
	}
	if deps.Notifier == nil {
		deps.Notifier = &notify.LogNotifier{Logger: deps.Logger}
	}
	if deps.Sleep == nil {
		deps.Sleep = sleepContext
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Controller{
		cfg:        cfg,
		scorer:     scorer,
		normalizer: source.NewNormalizer(deps.Logger),
		dedup:      dedup.New(deps.Store, deps.Logger),
		deps:       deps,
		keyLocks:   make(map[string]*sync.Mutex),
	}, nil
}

type workItem struct {
	key      string
	score    float64
	postedAt time.Time
}

// RunCycle executes one batch cycle: collect, normalize, deduplicate,
// score, then advance every pending record through the state machine.
// The engine assumes nothing about how it is triggered.
func (c *Controller) RunCycle(ctx context.Context, fetchers []source.Fetcher, q source.Query, prof *profile.Profile) (*CycleReport, error) {
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	report := newCycleReport(c.deps.Now().UTC())
	logger := c.deps.Logger.With(zap.String("cycle_id", report.ID))
	logger.Info("cycle started", zap.Int("sources", len(fetchers)))

	raw, srcErrs := source.CollectAll(ctx, fetchers, q, logger)
	report.Fetched = len(raw)
	for _, e := range srcErrs {
		report.SourcesFailed = append(report.SourcesFailed, e.Source)
		report.Errors = append(report.Errors, e.Error())
	}

	postings, malformed := c.normalizer.NormalizeAll(raw)
	report.Malformed = malformed

	work := c.intake(ctx, postings, prof, report, logger)
	work = c.resumePending(ctx, work, report, logger)
	rankWork(work)

	if c.cfg.MaxPerCycle > 0 && len(work) > c.cfg.MaxPerCycle {
		logger.Info("capping cycle work",
			zap.Int("pending", len(work)),
			zap.Int("cap", c.cfg.MaxPerCycle),
		)
		work = work[:c.cfg.MaxPerCycle]
	}

	c.processWork(ctx, work, prof, report)

	report.FinishedAt = c.deps.Now().UTC()
	c.notifyEvent(ctx, notify.EventCycleFinished, nil, report.Summary())
	logger.Info("cycle finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("scored", report.Scored),
		zap.Int("eligible", report.Eligible),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

// intake resolves each normalized posting against the store, scores the
// novel ones and records the threshold decision. Duplicates never create
// a record; records already terminal are ignored entirely.
func (c *Controller) intake(ctx context.Context, postings *posting.Postings, prof *profile.Profile, report *CycleReport, logger *zap.Logger) []workItem {
	var work []workItem
	queued := make(map[string]bool)

	for _, p := range postings.Items {
		decision, err := c.dedup.Resolve(ctx, p)
		if err != nil {
			report.Errors = append(report.Errors, err.Error())
			logger.Warn("dedup lookup failed, skipping posting",
				zap.String("url", p.URL),
				zap.Error(err),
			)
			continue
		}

		if !decision.Novel() {
			report.Duplicates++
			rec := decision.Existing
			if application.IsTerminal(rec.State) || rec.State == application.StateSubmitted {
				continue
			}
			if !queued[rec.DedupKey] {
				queued[rec.DedupKey] = true
				work = append(work, workItem{key: rec.DedupKey, score: rec.Score, postedAt: rec.CreatedAt})
			}
			continue
		}

		scored := c.scorer.Score(p, prof)
		report.Scored++
		report.observeScore(scored.Score)

		now := c.deps.Now().UTC()
		rec := &application.Record{
			DedupKey:       decision.Key,
			State:          application.StateDiscovered,
			Source:         p.Source,
			Title:          p.Title,
			Company:        p.Company,
			Location:       p.Location,
			URL:            p.URL,
			Description:    p.Description,
			Score:          scored.Score,
			Breakdown:      scored.Breakdown,
			CreatedAt:      now,
			StateChangedAt: now,
		}

		// Threshold gate. Neither branch consumes an attempt.
		if scored.Score >= c.scorer.Threshold() {
			_ = rec.Advance(application.StateEligible, now)
			report.Eligible++
		} else {
			_ = rec.Advance(application.StateSkipped, now)
			report.Skipped++
			logger.Info("posting below threshold, skipping",
				zap.String("dedup_key", rec.DedupKey),
				zap.Float64("score", scored.Score),
				zap.Float64("threshold", c.scorer.Threshold()),
			)
		}

		if err := c.deps.Store.Upsert(ctx, rec); err != nil {
			report.Errors = append(report.Errors, err.Error())
			logger.Warn("persisting record failed", zap.String("dedup_key", rec.DedupKey), zap.Error(err))
			continue
		}

		if rec.State == application.StateEligible && !queued[rec.DedupKey] {
			queued[rec.DedupKey] = true
			work = append(work, workItem{key: rec.DedupKey, score: scored.Score, postedAt: p.PostedAt})
		}
	}

	return work
}

// resumePending queues records left unfinished by earlier cycles
// (generation pending, or holding after a rate limit). Records stranded
// in SUBMITTED had a crash between submission and confirmation; they are
// surfaced for the operator and never resubmitted.
func (c *Controller) resumePending(ctx context.Context, work []workItem, report *CycleReport, logger *zap.Logger) []workItem {
	queued := make(map[string]bool, len(work))
	for _, item := range work {
		queued[item.key] = true
	}

	pending, err := c.deps.Store.List(ctx,
		application.StateDiscovered,
		application.StateEligible,
		application.StateMaterialsReady,
	)
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return work
	}
	for _, rec := range pending {
		if queued[rec.DedupKey] {
			continue
		}
		queued[rec.DedupKey] = true
		work = append(work, workItem{key: rec.DedupKey, score: rec.Score, postedAt: rec.CreatedAt})
	}

	stranded, err := c.deps.Store.List(ctx, application.StateSubmitted)
	if err == nil {
		for _, rec := range stranded {
			logger.Warn("record awaits delivery confirmation; it will not be resubmitted",
				zap.String("dedup_key", rec.DedupKey),
				zap.Time("state_changed_at", rec.StateChangedAt),
			)
		}
	}

	return work
}

// rankWork orders records by descending score, then earlier posted_at
// (prefer older, about-to-expire postings), then key for determinism.
func rankWork(work []workItem) {
	sort.Slice(work, func(i, j int) bool {
		if work[i].score != work[j].score {
			return work[i].score > work[j].score
		}
		pi, pj := work[i].postedAt, work[j].postedAt
		if !pi.Equal(pj) {
			if pi.IsZero() {
				return false
			}
			if pj.IsZero() {
				return true
			}
			return pi.Before(pj)
		}
		return work[i].key < work[j].key
	})
}

func (c *Controller) processWork(ctx context.Context, work []workItem, prof *profile.Profile, report *CycleReport) {
	jobs := make(chan workItem)
	var wg sync.WaitGroup

	for i := 0; i < c.cfg.MaxConcurrentSubmissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				// A stop request prevents new keys from starting;
				// the key in flight finishes to a consistent state.
				if ctx.Err() != nil {
					continue
				}
				c.advance(ctx, item.key, prof, report)
				if c.cfg.SubmissionCooldown > 0 {
					_ = c.deps.Sleep(ctx, c.cfg.SubmissionCooldown)
				}
			}
		}()
	}

	for _, item := range work {
		jobs <- item
	}
	close(jobs)
	wg.Wait()
}

// advance moves one record as far forward as its state, the mode and the
// collaborators allow. The key lock makes the whole advancement atomic
// with respect to any other cycle.
func (c *Controller) advance(ctx context.Context, key string, prof *profile.Profile, report *CycleReport) {
	unlock := c.lockKey(key)
	defer unlock()

	logger := c.deps.Logger.With(zap.String("dedup_key", key))

	rec, err := c.deps.Store.Get(ctx, key)
	if err != nil {
		c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
		logger.Warn("loading record failed", zap.Error(err))
		return
	}

	// Terminal records are never reprocessed. In particular a SENT
	// record never reaches submission again, whatever source it
	// reappears from.
	if application.IsTerminal(rec.State) || rec.State == application.StateSubmitted {
		return
	}

	if rec.State == application.StateDiscovered {
		now := c.deps.Now().UTC()
		if rec.Score >= c.scorer.Threshold() {
			_ = rec.Advance(application.StateEligible, now)
			c.tally(func() { report.Eligible++ })
		} else {
			_ = rec.Advance(application.StateSkipped, now)
			c.tally(func() { report.Skipped++ })
		}
		if err := c.persist(ctx, rec); err != nil {
			c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
			return
		}
		if rec.State == application.StateSkipped {
			return
		}
	}

	if rec.State == application.StateEligible {
		if !c.generateMaterials(ctx, rec, prof, report, logger) {
			return
		}
	}

	if rec.State == application.StateMaterialsReady {
		if c.cfg.Mode != ModeAutomatic {
			logger.Info("materials ready, awaiting manual delivery",
				zap.String("materials_path", rec.MaterialsPath),
			)
			return
		}
		c.submitRecord(ctx, rec, prof, report, logger)
	}
}

// generateMaterials produces the letter and the application folder,
// advancing the record to MATERIALS_READY. Every generator call consumes
// one attempt; retries follow the configured backoff. Returns false when
// the record cannot proceed this cycle.
func (c *Controller) generateMaterials(ctx context.Context, rec *application.Record, prof *profile.Profile, report *CycleReport, logger *zap.Logger) bool {
	p := rec.PostingView()

	var text string
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retry.MaxAttempts; attempt++ {
		rec.Attempts++

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerationTimeout)
		text, lastErr = c.deps.Generator.GenerateLetter(callCtx, p, prof)
		cancel()

		if lastErr == nil && strings.TrimSpace(text) == "" {
			lastErr = letter.ErrEmptyLetter
		}
		if lastErr == nil {
			break
		}

		rec.LastError = lastErr.Error()
		logger.Warn("letter generation failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.Retry.MaxAttempts),
			zap.Error(lastErr),
		)
		if err := c.persist(ctx, rec); err != nil {
			c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
			return false
		}
		if attempt < c.cfg.Retry.MaxAttempts {
			if err := c.deps.Sleep(ctx, c.cfg.Retry.Delay(attempt)); err != nil {
				return false
			}
		}
	}

	if lastErr != nil {
		if c.deps.Fallback == nil {
			c.fail(ctx, rec, lastErr, report, logger)
			return false
		}
		fallbackText, err := c.deps.Fallback.GenerateLetter(ctx, p, prof)
		if err != nil || strings.TrimSpace(fallbackText) == "" {
			c.fail(ctx, rec, lastErr, report, logger)
			return false
		}
		logger.Info("generator exhausted retries, using fallback letter")
		text = fallbackText
	}

	path, err := c.deps.Outbox.Prepare(p, text)
	if err != nil {
		c.fail(ctx, rec, err, report, logger)
		return false
	}

	rec.MaterialsPath = path
	rec.LastError = ""
	_ = rec.Advance(application.StateMaterialsReady, c.deps.Now().UTC())
	if err := c.persist(ctx, rec); err != nil {
		c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
		return false
	}
	c.tally(func() { report.MaterialsReady++ })
	return true
}

// submitRecord performs at most one submission call for the record this
// cycle and maps the tri-state result onto the state machine.
func (c *Controller) submitRecord(ctx context.Context, rec *application.Record, prof *profile.Profile, report *CycleReport, logger *zap.Logger) {
	if rec.Attempts >= c.cfg.MaxTotalAttempts {
		c.fail(ctx, rec, fmt.Errorf("attempt budget exhausted (%d)", rec.Attempts), report, logger)
		return
	}
	rec.Attempts++

	materials := submit.MaterialSet{Path: rec.MaterialsPath, CVPath: prof.CVPath}
	if data, err := os.ReadFile(filepath.Join(rec.MaterialsPath, "letter.txt")); err == nil {
		materials.LetterText = string(data)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.SubmissionTimeout)
	sub, err := c.deps.Submitter.SubmitApplication(callCtx, rec.PostingView(), materials)
	cancel()

	if err != nil {
		var rejected *submit.RejectedError
		if errors.As(err, &rejected) {
			c.fail(ctx, rec, rejected, report, logger)
			return
		}
		rec.LastError = err.Error()
		if rec.Attempts >= c.cfg.MaxTotalAttempts {
			c.fail(ctx, rec, err, report, logger)
			return
		}
		logger.Warn("submission failed, will retry on a later cycle",
			zap.Int("attempts", rec.Attempts),
			zap.Error(err),
		)
		if perr := c.persist(ctx, rec); perr != nil {
			c.tally(func() { report.Errors = append(report.Errors, perr.Error()) })
		}
		return
	}

	switch sub.Result {
	case submit.ResultSent:
		now := c.deps.Now().UTC()
		rec.LastError = ""
		_ = rec.Advance(application.StateSubmitted, now)
		if err := c.persist(ctx, rec); err != nil {
			c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
			return
		}
		c.tally(func() { report.Submitted++ })

		_ = rec.Advance(application.StateSent, c.deps.Now().UTC())
		if err := c.persist(ctx, rec); err != nil {
			c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
			return
		}
		c.tally(func() { report.Sent++ })
		logger.Info("application sent",
			zap.String("company", rec.Company),
			zap.String("title", rec.Title),
			zap.Int("attempts", rec.Attempts),
		)
		c.notifyEvent(ctx, notify.EventApplicationSent, rec, "")

	case submit.ResultRateLimited:
		c.tally(func() { report.RateLimited++ })
		rec.LastError = "rate limited: " + sub.Detail
		if rec.Attempts >= c.cfg.MaxTotalAttempts {
			c.fail(ctx, rec, fmt.Errorf("rate limited and attempt budget exhausted: %s", sub.Detail), report, logger)
			return
		}
		logger.Warn("submission rate limited, holding until a later cycle",
			zap.Int("attempts", rec.Attempts),
			zap.String("detail", sub.Detail),
		)
		if err := c.persist(ctx, rec); err != nil {
			c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
		}

	case submit.ResultRejected:
		c.fail(ctx, rec, &submit.RejectedError{Detail: sub.Detail}, report, logger)

	default:
		rec.LastError = fmt.Sprintf("unknown submission result %q", sub.Result)
		if err := c.persist(ctx, rec); err != nil {
			c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
		}
	}
}

// fail moves the record to FAILED, keeping the cause and the attempt
// history for operator inspection.
func (c *Controller) fail(ctx context.Context, rec *application.Record, cause error, report *CycleReport, logger *zap.Logger) {
	rec.LastError = cause.Error()
	if err := rec.Advance(application.StateFailed, c.deps.Now().UTC()); err != nil {
		logger.Error("illegal transition to FAILED", zap.Error(err))
		return
	}
	if err := c.persist(ctx, rec); err != nil {
		c.tally(func() { report.Errors = append(report.Errors, err.Error()) })
		return
	}
	c.tally(func() { report.Failed++ })
	logger.Warn("application failed",
		zap.Int("attempts", rec.Attempts),
		zap.String("last_error", rec.LastError),
	)
	c.notifyEvent(ctx, notify.EventApplicationFailed, rec, "")
}

// persist writes the record regardless of cancellation: a stop request
// must not abandon a record mid-transition.
func (c *Controller) persist(ctx context.Context, rec *application.Record) error {
	return c.deps.Store.Upsert(context.WithoutCancel(ctx), rec)
}

func (c *Controller) notifyEvent(ctx context.Context, kind notify.EventKind, rec *application.Record, summary string) {
	ev := notify.Event{
		Kind:       kind,
		Record:     rec.Clone(),
		Summary:    summary,
		OccurredAt: c.deps.Now().UTC(),
	}
	if err := c.deps.Notifier.Notify(context.WithoutCancel(ctx), ev); err != nil {
		// Fire and forget: a notification failure never rolls back a
		// state transition.
		c.deps.Logger.Warn("notification failed",
			zap.String("event", string(kind)),
			zap.Error(err),
		)
	}
}

func (c *Controller) lockKey(key string) func() {
	c.keyMu.Lock()
	l, ok := c.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.keyLocks[key] = l
	}
	c.keyMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (c *Controller) tally(fn func()) {
	c.repMu.Lock()
	fn()
	c.repMu.Unlock()
}
