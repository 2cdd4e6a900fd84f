package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/analysis"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/models"
	"github.com/aman-zulfiqar/giga-wallet-analyzer/internal/walletcache"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned to a request whose result arrived after a newer
// request became current. Its result was discarded.
var ErrSuperseded = errors.New("analysis superseded by a newer request")

type Status string

const (
	StatusIdle          Status = "idle"
	StatusCheckingCache Status = "checking-cache"
	StatusFetching      Status = "fetching"
	StatusProcessing    Status = "processing"
	StatusComplete      Status = "complete"
	StatusError         Status = "error"
)

// LoadingState is what a UI shows while an analysis runs.
type LoadingState struct {
	Status   Status                `json:"status"`
	Message  string                `json:"message"`
	Address  string                `json:"address,omitempty"`
	Progress *models.FetchProgress `json:"progress,omitempty"`
}

func (s LoadingState) Loading() bool {
	switch s.Status {
	case StatusCheckingCache, StatusFetching, StatusProcessing:
		return true
	}
	return false
}

type StateObserver interface {
	OnState(state LoadingState)
}

type StateFunc func(state LoadingState)

func (f StateFunc) OnState(state LoadingState) { f(state) }

// AnalysisAPI is the network hop to the analyzer service.
type AnalysisAPI interface {
	Analyze(ctx context.Context, address, cachedNewestSignature string) (*models.AnalysisResponse, error)
	Holdings(ctx context.Context, address string) (*models.HoldingsResponse, error)
}

// Result is the outcome of a completed analysis.
type Result struct {
	Analysis       models.WalletAnalysis
	Balance        float64
	FetchedCount   int
	WasIncremental bool
	FromCache      int // cached transactions merged in
}

type Config struct {
	API      AnalysisAPI
	Store    walletcache.Store
	Observer StateObserver
	Logger   *logrus.Logger
}

// Orchestrator runs cache-aware analyses. Only the most recent request is
// current; older requests finish but their results are dropped. Cache writes
// happen after the result is returned and finish before another request for
// the same wallet reads the cache.
type Orchestrator struct {
	api      AnalysisAPI
	store    walletcache.Store
	observer StateObserver
	logger   *logrus.Logger
	now      func() time.Time

	mu      sync.Mutex
	gen     uint64
	current string
	state   LoadingState
	result  *Result
	lastErr error

	pendingMu sync.Mutex
	pending   map[string]chan struct{}
	writes    sync.WaitGroup
}

func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Store == nil {
		cfg.Store = walletcache.Disabled{}
	}
	return &Orchestrator{
		api:      cfg.API,
		store:    cfg.Store,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		now:      time.Now,
		state:    LoadingState{Status: StatusIdle},
		pending:  make(map[string]chan struct{}),
	}
}

func (o *Orchestrator) State() LoadingState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the last completed result of the current address, or nil.
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

func (o *Orchestrator) Current() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Clear resets to idle and makes any in-flight request stale.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	o.gen++
	o.current = ""
	o.result = nil
	o.lastErr = nil
	o.state = LoadingState{Status: StatusIdle}
	st := o.state
	o.mu.Unlock()
	o.notify(st)
}

// Wait blocks until every pending cache write has finished.
func (o *Orchestrator) Wait() {
	o.writes.Wait()
}

// Analyze runs one analysis for address and makes it the current request.
func (o *Orchestrator) Analyze(ctx context.Context, address string) (*Result, error) {
	gen := o.begin(address)
	log := o.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"wallet":     models.ShortAddress(address),
	})

	if err := models.ValidateAddress(address); err != nil {
		return nil, o.fail(gen, err)
	}

	if err := o.waitPendingWrite(ctx, address); err != nil {
		return nil, o.fail(gen, err)
	}

	meta, cached := o.readCache(ctx, log, address)
	hasCached := meta != nil && len(cached) > 0
	stopSig := ""
	if hasCached {
		stopSig = meta.NewestTxSignature
	}

	msg := "Loading transaction history..."
	if hasCached {
		msg = "Fetching new transactions..."
	}
	if !o.transition(gen, LoadingState{
		Status:   StatusFetching,
		Message:  msg,
		Progress: &models.FetchProgress{IsIncremental: hasCached},
	}) {
		return nil, ErrSuperseded
	}

	var (
		resp     *models.AnalysisResponse
		holdings *models.HoldingsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := o.api.Holdings(gctx, address)
		if err != nil {
			return fmt.Errorf("fetch holdings: %w", err)
		}
		holdings = h
		return nil
	})
	g.Go(func() error {
		r, err := o.api.Analyze(gctx, address, stopSig)
		if err != nil {
			return fmt.Errorf("analyze transactions: %w", err)
		}
		resp = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, o.fail(gen, err)
	}

	mergedCount := 0
	if hasCached && resp.WasIncremental {
		mergedCount = len(cached)
	}
	if !o.transition(gen, LoadingState{
		Status:  StatusProcessing,
		Message: fmt.Sprintf("Analyzing %d transactions...", len(resp.Transactions)+mergedCount),
	}) {
		return nil, ErrSuperseded
	}

	var final models.WalletAnalysis
	if mergedCount > 0 {
		older := make([]models.ParsedTransaction, 0, len(cached))
		for _, c := range cached {
			older = append(older, c.ParsedTransaction)
		}
		analysis.SortNewestFirst(older)
		final = analysis.Summarize(address, analysis.Merge(resp.Transactions, older), o.now().UnixMilli())

		log.WithFields(logrus.Fields{
			"fresh":  len(resp.Transactions),
			"cached": len(cached),
		}).Info("merged incremental analysis")
	} else {
		final = resp.WalletAnalysis
		if final.Transactions == nil {
			final.Transactions = []models.ParsedTransaction{}
		}
	}

	res := &Result{
		Analysis:       final,
		Balance:        holdings.Balance,
		FetchedCount:   resp.FetchedCount,
		WasIncremental: resp.WasIncremental,
		FromCache:      mergedCount,
	}

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return nil, ErrSuperseded
	}
	o.result = res
	o.lastErr = nil
	o.state = LoadingState{Status: StatusComplete, Message: "Analysis complete", Address: address}
	st := o.state
	o.mu.Unlock()
	o.notify(st)

	log.WithFields(logrus.Fields{
		"transactions": len(final.Transactions),
		"incremental":  res.WasIncremental,
	}).Debug("analysis complete")
	o.persist(ctx, log, address, final.Transactions)
	return res, nil
}

func (o *Orchestrator) begin(address string) uint64 {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	if o.current != address {
		o.result = nil
	}
	o.current = address
	o.lastErr = nil
	o.state = LoadingState{Status: StatusCheckingCache, Message: "Checking local cache...", Address: address}
	st := o.state
	o.mu.Unlock()
	o.notify(st)
	return gen
}

// transition applies state only if gen is still current.
func (o *Orchestrator) transition(gen uint64, st LoadingState) bool {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return false
	}
	st.Address = o.current
	o.state = st
	o.mu.Unlock()
	o.notify(st)
	return true
}

func (o *Orchestrator) fail(gen uint64, err error) error {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return ErrSuperseded
	}
	o.result = nil
	o.lastErr = err
	o.state = LoadingState{Status: StatusError, Message: err.Error(), Address: o.current}
	st := o.state
	o.mu.Unlock()
	o.notify(st)
	return err
}

func (o *Orchestrator) notify(st LoadingState) {
	if o.observer != nil {
		o.observer.OnState(st)
	}
}

// readCache treats any store failure as a cold cache.
func (o *Orchestrator) readCache(ctx context.Context, log *logrus.Entry, address string) (*models.WalletMetadata, []models.CachedTransaction) {
	if !o.store.Available() {
		return nil, nil
	}
	meta, err := o.store.GetWalletMetadata(ctx, address)
	if err != nil {
		log.WithError(err).Warn("wallet cache read failed")
		return nil, nil
	}
	if meta == nil {
		return nil, nil
	}
	txs, err := o.store.GetWalletTransactions(ctx, address)
	if err != nil {
		log.WithError(err).Warn("wallet cache read failed")
		return nil, nil
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp > txs[j].Timestamp })
	return meta, txs
}

func (o *Orchestrator) waitPendingWrite(ctx context.Context, address string) error {
	o.pendingMu.Lock()
	ch := o.pending[address]
	o.pendingMu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// persist writes transactions and metadata in the background as one unit, so
// a failed write leaves the previous cursor in place. Failures are logged and
// the returned result stays valid.
func (o *Orchestrator) persist(ctx context.Context, log *logrus.Entry, address string, txs []models.ParsedTransaction) {
	if !o.store.Available() || len(txs) == 0 {
		return
	}

	done := make(chan struct{})
	o.pendingMu.Lock()
	prev := o.pending[address]
	o.pending[address] = done
	o.pendingMu.Unlock()

	meta := models.WalletMetadata{
		Address:            address,
		LastFetchedAt:      o.now().UnixMilli(),
		NewestTxSignature:  txs[0].Signature,
		NewestTxTimestamp:  txs[0].Timestamp,
		TotalCachedTxCount: len(txs),
	}
	rows := make([]models.CachedTransaction, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, models.NewCachedTransaction(address, tx))
	}

	wctx := context.WithoutCancel(ctx)
	o.writes.Add(1)
	go func() {
		defer o.writes.Done()
		defer func() {
			o.pendingMu.Lock()
			if o.pending[address] == done {
				delete(o.pending, address)
			}
			o.pendingMu.Unlock()
			close(done)
		}()
		if prev != nil {
			<-prev
		}

		if err := o.store.SaveWallet(wctx, meta, rows); err != nil {
			log.WithError(err).Warn("failed to update wallet cache")
			return
		}
		log.WithField("count", len(rows)).Debug("wallet cache updated")
	}()
}
