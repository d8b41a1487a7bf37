package engine

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"intraday-trade-bot-go/internal/config"
	"intraday-trade-bot-go/internal/database"
	"intraday-trade-bot-go/internal/marketdata"
	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rotationWindowMinutes is how long a basket may go without a single trade
// before the selection window rotates to the next ranked slice.
const rotationWindowMinutes = 60

// Engine drives the live decision loop. All mutable trading state lives
// behind mu; the HTTP handlers and the ticker goroutine share it through the
// exported methods only.
type Engine struct {
	ID        string
	StartTime time.Time

	cfg       config.Config
	logger    *zap.Logger
	source    marketdata.Source
	db        *gorm.DB
	registry  *strategy.Registry
	store     *SnapshotStore
	trial     *TrialRunner
	optimizer *AdaptiveOptimizer
	metrics   *Metrics
	now       func() time.Time

	mu                sync.Mutex
	history           *HistoryStore
	ledger            *strategy.Ledger
	positions         map[string]*models.Position
	daily             models.DailyControl
	basket            []SelectedSymbol
	selectionOffset   int
	windowStart       time.Time
	windowTradeCount  int
	historyLoadedDate string
	universeSize      int
	universeSource    string
	lastRun           time.Time
	cycleCount        int64
	lastError         string
	optimizedDate     string
	lastOptimization  *OptimizerResult
	lastOptimizeErr   string
	onCycle           func(*Snapshot)
}

func NewEngine(cfg config.Config, registry *strategy.Registry, source marketdata.Source, db *gorm.DB, logger *zap.Logger) *Engine {
	trial := NewTrialRunner(source, logger)
	return &Engine{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		cfg:       cfg,
		logger:    logger,
		source:    source,
		db:        db,
		registry:  registry,
		store:     NewSnapshotStore(cfg.Engine.DataDir),
		trial:     trial,
		optimizer: NewAdaptiveOptimizer(trial, registry, logger),
		metrics:   NewMetrics(),
		now:       time.Now,
		history:   NewHistoryStore(),
		ledger:    strategy.NewLedger(),
		positions: make(map[string]*models.Position),
	}
}

// SetCycleHook registers a callback invoked with a fresh snapshot after each
// cycle. Used by the websocket broadcaster.
func (e *Engine) SetCycleHook(hook func(*Snapshot)) {
	e.mu.Lock()
	e.onCycle = hook
	e.mu.Unlock()
}

// Run restores persisted state, executes a startup cycle, then loops on the
// configured tick interval until the context is cancelled. State is flushed
// to disk on the way out.
func (e *Engine) Run(ctx context.Context) {
	e.restoreState()

	interval := time.Duration(e.cfg.Engine.TickIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	e.logger.Info("Engine started",
		zap.String("engineId", e.ID),
		zap.Duration("tickInterval", interval),
		zap.String("activePreset", string(e.registry.Active().ID)))

	e.runCycleLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine stopping, flushing state")
			e.flush()
			return
		case <-ticker.C:
			e.runCycleLogged(ctx)
		}
	}
}

func (e *Engine) runCycleLogged(ctx context.Context) {
	if err := e.RunCycle(ctx); err != nil {
		e.logger.Error("Engine cycle failed", zap.Error(err))
	}
}

// RunCycle executes one full decision cycle: phase resolution, basket
// selection, quote ingestion, entry and exit evaluation, and persistence.
func (e *Engine) RunCycle(ctx context.Context) error {
	start := time.Now()
	now := e.now()
	cfg := e.registry.Active().Config

	err := e.cycle(ctx, now, cfg)

	e.mu.Lock()
	e.cycleCount++
	e.lastRun = now
	if err != nil {
		e.lastError = err.Error()
	} else {
		e.lastError = ""
	}
	hook := e.onCycle
	e.mu.Unlock()

	e.metrics.CyclesTotal.Inc()
	e.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.CycleErrorsTotal.Inc()
	}
	if hook != nil {
		hook(e.Snapshot())
	}
	return err
}

func (e *Engine) cycle(ctx context.Context, now time.Time, cfg strategy.Config) error {
	e.housekeeping(now)

	phase := ResolvePhase(now, cfg)
	if phase == PhaseClosed || phase == PhasePreOpen {
		e.maybeOptimize(ctx, now, cfg)
		e.saveState(now, false)
		return nil
	}

	if e.needsReselect(now, cfg) {
		if err := e.reselectBasket(ctx, now, cfg); err != nil {
			e.logger.Warn("Basket selection failed", zap.Error(err))
		}
	}

	symbols := e.trackedSymbols()
	if len(symbols) == 0 {
		e.saveState(now, false)
		return nil
	}

	quotes, err := e.source.Quotes(ctx, symbols)
	if err != nil {
		return fmt.Errorf("quote fetch failed: %w", err)
	}

	trades := e.evaluate(now, phase, cfg, quotes)
	if len(trades) > 0 {
		e.archiveTrades(trades)
		e.saveState(now, true)
	} else {
		e.saveState(now, false)
	}
	return nil
}

// housekeeping rolls the engine onto a new market date and restores any
// persisted intraday history for the current one.
func (e *Engine) housekeeping(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	date := models.MarketDate(now)
	if e.daily.Date != date {
		e.logger.Info("New market date", zap.String("date", date))
		e.daily = models.DailyControl{Date: date}
		e.basket = nil
		e.selectionOffset = 0
		e.windowStart = time.Time{}
		e.windowTradeCount = 0
		e.history.Reset()
		e.historyLoadedDate = ""
	}

	if e.historyLoadedDate != date {
		data, ok, err := e.store.LoadHistory(date)
		if err != nil {
			e.logger.Warn("Could not load price history", zap.String("date", date), zap.Error(err))
		} else if ok {
			e.history.Restore(data)
			e.logger.Info("Restored price history", zap.String("date", date), zap.Int("symbols", len(data)))
		}
		e.historyLoadedDate = date
	}
}

func (e *Engine) needsReselect(now time.Time, cfg strategy.Config) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.basket) == 0 {
		return true
	}
	return e.windowStagnantLocked(now)
}

func (e *Engine) windowStagnantLocked(now time.Time) bool {
	if e.windowStart.IsZero() || e.windowTradeCount > 0 {
		return false
	}
	return now.Sub(e.windowStart) >= rotationWindowMinutes*time.Minute
}

func (e *Engine) reselectBasket(ctx context.Context, now time.Time, cfg strategy.Config) error {
	universe, sourceName, err := e.source.UniverseSymbols(ctx)
	if err != nil {
		return err
	}
	quotes, err := e.source.Quotes(ctx, universe)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.windowStagnantLocked(now) {
		e.selectionOffset += cfg.TopN
		e.logger.Info("Rotating stagnant basket",
			zap.Int("offset", e.selectionOffset),
			zap.Int("windowMinutes", rotationWindowMinutes))
	}

	e.basket = SelectTopMovers(quotes, cfg, e.selectionOffset)
	e.windowStart = now
	e.windowTradeCount = 0
	e.universeSize = len(universe)
	e.universeSource = sourceName

	names := make([]string, 0, len(e.basket))
	for _, s := range e.basket {
		names = append(names, s.Symbol)
	}
	e.logger.Info("Basket selected",
		zap.Strings("symbols", names),
		zap.String("universeSource", sourceName),
		zap.Int("universeSize", len(universe)))
	return nil
}

// trackedSymbols is the union of the current basket and every symbol with an
// open position, so exits keep receiving fresh prices after rotation.
func (e *Engine) trackedSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]bool, len(e.basket)+len(e.positions))
	out := make([]string, 0, len(e.basket)+len(e.positions))
	for _, s := range e.basket {
		if !seen[s.Symbol] {
			seen[s.Symbol] = true
			out = append(out, s.Symbol)
		}
	}
	for symbol := range e.positions {
		if !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}
	return out
}

// evaluate ingests the quotes and walks exits then entries for the tick.
// Returns the trades newly executed this cycle.
func (e *Engine) evaluate(now time.Time, phase Phase, cfg strategy.Config, quotes map[string]models.Quote) []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	activeID := string(e.registry.Active().ID)

	for symbol, quote := range quotes {
		at := quote.QuoteTime
		if at.IsZero() {
			at = now
		}
		e.history.Append(symbol, models.PricePoint{Time: at, Price: quote.Price})
	}

	if !e.daily.CutoffHit && CutoffBreached(cfg, e.ledger, e.positions, quotes, e.daily.Date) {
		e.daily.CutoffHit = true
		e.logger.Warn("Daily loss cutoff hit, trading halted for the day",
			zap.Float64("maxDailyLoss", cfg.MaxDailyLossAmount()))
	}

	var executed []models.Trade
	record := func(trade *models.Trade) {
		if trade == nil {
			return
		}
		if trade.PresetID == "" {
			trade.PresetID = activeID
		}
		if !e.ledger.Append(*trade) {
			return
		}
		executed = append(executed, *trade)
		e.windowTradeCount++
		e.metrics.TradesTotal.WithLabelValues(string(trade.Action)).Inc()
		e.logger.Info("Trade executed",
			zap.String("action", string(trade.Action)),
			zap.String("symbol", trade.Symbol),
			zap.Float64("price", trade.Price),
			zap.Int("units", trade.Units),
			zap.String("reason", trade.Reason),
			zap.Float64("pnl", trade.Pnl))
	}

	exitedThisTick := make(map[string]bool)
	for symbol, pos := range e.positions {
		quote, ok := quotes[symbol]
		if !ok || quote.Price <= 0 {
			continue
		}

		var next *models.Position
		var trade *models.Trade
		switch {
		case e.daily.CutoffHit:
			reason := fmt.Sprintf("Max daily loss cutoff hit (%g%%), forced square-off", cfg.MaxDailyLossPercent)
			next, trade = strategy.ForceExit(pos, quote.Price, now, reason)
		case phase == PhaseSquareOff:
			reason := fmt.Sprintf("Auto square-off before market close (%s IST)", cfg.SquareOffTime)
			next, trade = strategy.ForceExit(pos, quote.Price, now, reason)
		default:
			next, trade = strategy.EvaluateTick(symbol, e.history.Series(symbol), pos, cfg)
		}

		record(trade)
		if next == nil {
			delete(e.positions, symbol)
			if trade != nil {
				exitedThisTick[symbol] = true
			}
		} else {
			e.positions[symbol] = next
		}
	}

	if phase == PhaseOpen && !e.daily.CutoffHit {
		for _, selected := range e.basket {
			symbol := selected.Symbol
			if _, open := e.positions[symbol]; open {
				continue
			}
			if exitedThisTick[symbol] && !cfg.AllowRepeatEntryOnTrend {
				continue
			}
			pos, trade := strategy.EvaluateTick(symbol, e.history.Series(symbol), nil, cfg)
			if pos == nil {
				continue
			}
			pos.PresetID = activeID
			e.positions[symbol] = pos
			record(trade)
		}
	}

	e.metrics.OpenPositions.Set(float64(len(e.positions)))
	e.metrics.DailyRealizedPnl.Set(DailyRealizedPnl(e.ledger, e.daily.Date))
	return executed
}

// ForceClose exits one open position at the freshest known price.
func (e *Engine) ForceClose(ctx context.Context, symbol, reason string) (*models.Trade, error) {
	trades, err := e.forceClose(ctx, []string{symbol}, reason, true)
	return firstTrade(trades), err
}

// ForceCloseAll exits every open position. Symbols without a usable price are
// skipped and reported in the error.
func (e *Engine) ForceCloseAll(ctx context.Context, reason string) ([]models.Trade, error) {
	e.mu.Lock()
	symbols := make([]string, 0, len(e.positions))
	for symbol := range e.positions {
		symbols = append(symbols, symbol)
	}
	e.mu.Unlock()

	if len(symbols) == 0 {
		return nil, nil
	}
	return e.forceClose(ctx, symbols, reason, false)
}

func (e *Engine) forceClose(ctx context.Context, symbols []string, reason string, single bool) ([]models.Trade, error) {
	if reason == "" {
		reason = "Manual close"
	}

	quotes, err := e.source.Quotes(ctx, symbols)
	if err != nil {
		e.logger.Warn("Quote fetch for forced close failed, using last known prices", zap.Error(err))
		quotes = map[string]models.Quote{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var executed []models.Trade
	var skipped []string
	for _, symbol := range symbols {
		pos, open := e.positions[symbol]
		if !open {
			if single {
				return nil, fmt.Errorf("no open position for %s", symbol)
			}
			continue
		}

		price := quotes[symbol].Price
		if price <= 0 {
			if latest, ok := e.history.LatestPrice(symbol); ok {
				price = latest
			}
		}
		if price <= 0 {
			skipped = append(skipped, symbol)
			continue
		}

		next, trade := strategy.ForceExit(pos, price, e.now(), reason)
		if next == nil {
			delete(e.positions, symbol)
		} else {
			e.positions[symbol] = next
		}
		if trade != nil && e.ledger.Append(*trade) {
			executed = append(executed, *trade)
			e.metrics.TradesTotal.WithLabelValues(string(trade.Action)).Inc()
			e.logger.Info("Position force-closed",
				zap.String("symbol", symbol),
				zap.Float64("price", price),
				zap.String("reason", reason))
		}
	}

	e.metrics.OpenPositions.Set(float64(len(e.positions)))
	e.archiveTradesLocked(executed)
	e.saveStateLocked(e.now(), true)

	if len(skipped) > 0 {
		return executed, fmt.Errorf("no usable price for %v", skipped)
	}
	return executed, nil
}

func firstTrade(trades []models.Trade) *models.Trade {
	if len(trades) == 0 {
		return nil
	}
	return &trades[0]
}

// ApplyPreset switches the active preset and persists the change.
func (e *Engine) ApplyPreset(id strategy.PresetID) (strategy.Preset, error) {
	preset, err := e.registry.Apply(id)
	if err != nil {
		return strategy.Preset{}, err
	}
	e.logger.Info("Preset applied", zap.String("preset", string(id)), zap.String("name", preset.Name))
	e.saveState(e.now(), true)
	return preset, nil
}

// Presets lists the registry contents.
func (e *Engine) Presets() []strategy.Preset {
	return e.registry.List()
}

// ActivePreset returns the currently active preset.
func (e *Engine) ActivePreset() strategy.Preset {
	return e.registry.Active()
}

// RunTrial replays date under the preset identified by presetID (the active
// one when empty) without touching live state.
func (e *Engine) RunTrial(ctx context.Context, date string, presetID strategy.PresetID, symbols []string) (*TrialResult, error) {
	cfg := e.registry.Active().Config
	if presetID != "" {
		preset, err := e.registry.Get(presetID)
		if err != nil {
			return nil, err
		}
		cfg = preset.Config
	}
	if date == "" {
		date = PreviousMarketDate(e.now())
	}
	return e.trial.Run(ctx, date, symbols, cfg)
}

// BuildShortlist ranks the screener universe into pre-open watchlists.
func (e *Engine) BuildShortlist(ctx context.Context) (*Shortlist, error) {
	return e.trial.BuildShortlist(ctx, PreviousMarketDate(e.now()))
}

// MetricsHandler serves this engine's Prometheus registry.
func (e *Engine) MetricsHandler() http.Handler {
	return e.metrics.Handler()
}

// ArchivedTrades reads the durable trade archive, newest first.
func (e *Engine) ArchivedTrades(limit int) ([]models.TradeRecord, error) {
	if e.db == nil {
		return nil, nil
	}
	return database.RecentTrades(e.db, limit)
}

func (e *Engine) maybeOptimize(ctx context.Context, now time.Time, cfg strategy.Config) {
	e.mu.Lock()
	optimizedDate := e.optimizedDate
	e.mu.Unlock()

	if !e.optimizer.ShouldRun(cfg, now, optimizedDate) {
		return
	}

	date := PreviousMarketDate(now)
	result, err := e.optimizer.Run(ctx, date)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.optimizedDate = models.MarketDate(now)
	if err != nil {
		e.lastOptimizeErr = err.Error()
		e.logger.Warn("Adaptive optimization failed", zap.String("date", date), zap.Error(err))
		return
	}
	e.lastOptimizeErr = ""
	e.lastOptimization = result
}

func (e *Engine) restoreState() {
	state, ok, err := e.store.LoadLiveState()
	if err != nil {
		e.logger.Warn("Could not restore live state", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	today := models.MarketDate(e.now())
	for _, trade := range state.Trades {
		e.ledger.Append(trade)
	}
	restored := 0
	for i := range state.OpenPositions {
		pos := state.OpenPositions[i]
		if models.MarketDate(pos.EntryTime) != today {
			continue
		}
		e.positions[pos.Symbol] = &pos
		restored++
	}
	if state.ActivePreset != "" {
		if _, err := e.registry.Apply(state.ActivePreset); err != nil {
			e.logger.Warn("Persisted preset no longer available", zap.String("preset", string(state.ActivePreset)))
		}
	}
	e.daily.Date = today
	e.metrics.OpenPositions.Set(float64(len(e.positions)))
	e.logger.Info("Live state restored",
		zap.Int("trades", e.ledger.Len()),
		zap.Int("openPositions", restored),
		zap.String("activePreset", string(e.registry.Active().ID)))
}

func (e *Engine) archiveTrades(trades []models.Trade) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.archiveTradesLocked(trades)
}

func (e *Engine) archiveTradesLocked(trades []models.Trade) {
	if e.db == nil || len(trades) == 0 {
		return
	}
	if err := database.ArchiveTrades(e.db, trades); err != nil {
		e.logger.Warn("Trade archive write failed", zap.Error(err))
	}
}

func (e *Engine) saveState(now time.Time, force bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saveStateLocked(now, force)
}

func (e *Engine) saveStateLocked(now time.Time, force bool) {
	positions := make([]models.Position, 0, len(e.positions))
	for _, pos := range e.positions {
		positions = append(positions, *pos)
	}
	state := LiveState{
		SavedAt:       now,
		ActivePreset:  e.registry.Active().ID,
		Trades:        e.ledger.Trades(),
		OpenPositions: positions,
	}
	if err := e.store.SaveLiveState(state, force); err != nil {
		e.logger.Warn("Live state save failed", zap.Error(err))
	}
	if err := e.store.SaveHistory(models.MarketDate(now), e.history.Export(), force); err != nil {
		e.logger.Warn("Price history save failed", zap.Error(err))
	}
}

func (e *Engine) flush() {
	e.saveState(e.now(), true)
}
