package strategy

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// PresetID identifies one of the named strategy presets. The set is closed:
// lookups outside it fail loudly instead of producing a zero config.
type PresetID string

const (
	PresetS1   PresetID = "S1"
	PresetS2   PresetID = "S2"
	PresetS3   PresetID = "S3"
	PresetS4   PresetID = "S4"
	PresetAuto PresetID = "AUTO"
)

// Config is an immutable bundle of strategy parameters. Percent fields are
// expressed in percent units (0.8 means 0.8%).
type Config struct {
	TotalCapital        float64 `json:"totalCapital" mapstructure:"total_capital"`
	MaxDailyLossPercent float64 `json:"maxDailyLossPercent" mapstructure:"max_daily_loss_percent"`
	TopN                int     `json:"topN" mapstructure:"top_n"`
	SelectionLimit      int     `json:"selectionLimit" mapstructure:"selection_limit"`

	BuyContinuousRiseMinutes   int     `json:"buyContinuousRiseMinutes" mapstructure:"buy_continuous_rise_minutes"`
	ShortContinuousFallMinutes int     `json:"shortContinuousFallMinutes" mapstructure:"short_continuous_fall_minutes"`
	TrendStrengthThreshold     float64 `json:"trendStrengthThreshold" mapstructure:"trend_strength_threshold"`
	AllowRepeatEntryOnTrend    bool    `json:"allowRepeatEntryOnContinuousTrend" mapstructure:"allow_repeat_entry"`
	AllowShortEntries          bool    `json:"allowShortEntries" mapstructure:"allow_short_entries"`

	PerStockStopLossPercent    float64 `json:"perStockStopLossPercent" mapstructure:"per_stock_stop_loss_percent"`
	FirstProfitTargetPercent   float64 `json:"firstProfitTargetPercent" mapstructure:"first_profit_target_percent"`
	FirstProfitExitPercent     float64 `json:"firstProfitExitPercent" mapstructure:"first_profit_exit_percent"`
	RemainderHardTargetPercent float64 `json:"remainderHardTargetPercent" mapstructure:"remainder_hard_target_percent"`
	TrailingStopPercent        float64 `json:"trailingStopPercent" mapstructure:"trailing_stop_percent"`
	TimeExitMinutes            int     `json:"timeExitMinutes" mapstructure:"time_exit_minutes"`
	MoveStopToEntryAfterFirst  bool    `json:"moveStopToEntryAfterFirstExit" mapstructure:"move_stop_to_entry"`

	MarketScreenerCount    int    `json:"marketScreenerCount" mapstructure:"market_screener_count"`
	WarmupBeforeOpenMin    int    `json:"autoStartBeforeMarketMinutes" mapstructure:"warmup_before_open_minutes"`
	MarketOpenTime         string `json:"marketOpenTimeIST" mapstructure:"market_open_time"`
	MarketCloseTime        string `json:"marketCloseTimeIST" mapstructure:"market_close_time"`
	SquareOffTime          string `json:"squareOffTimeIST" mapstructure:"square_off_time"`
	WeekdaysOnly           bool   `json:"weekdaysOnly" mapstructure:"weekdays_only"`

	// Option-style sub-mode (S4): entries come from the bearish put signal and
	// exits are expressed in premium points instead of underlying percent.
	OptionMode             bool    `json:"optionMode"`
	SupertrendFactor       float64 `json:"supertrendFactor"`
	SupertrendPeriod       int     `json:"supertrendPeriod"`
	RSIPeriod              int     `json:"rsiPeriod"`
	EMAFastPeriod          int     `json:"emaFastPeriod"`
	EMASlowPeriod          int     `json:"emaSlowPeriod"`
	OptionPremium          float64 `json:"optionPremium"`
	TargetPoints           float64 `json:"targetPoints"`
	StopLossPoints         float64 `json:"stopLossPoints"`
	PremiumMovePerUnderPct float64 `json:"premiumMovePerUnderlyingPercent"`
}

// CapitalPerSlot divides total capital evenly across the concurrent symbol slots.
func (c Config) CapitalPerSlot() float64 {
	if c.TopN <= 0 {
		return c.TotalCapital
	}
	return c.TotalCapital / float64(c.TopN)
}

// CalculateUnits returns the whole-unit position size for an entry at price.
// Zero means the slot cannot afford a single unit and no entry occurs.
func (c Config) CalculateUnits(price float64) int {
	if price <= 0 {
		return 0
	}
	return int(math.Floor(c.CapitalPerSlot() / price))
}

// MaxDailyLossAmount is the absolute loss at which the daily cutoff trips.
func (c Config) MaxDailyLossAmount() float64 {
	return c.TotalCapital * c.MaxDailyLossPercent / 100
}

// BaseConfig returns the shared session parameters every preset overlays.
func BaseConfig(totalCapital float64) Config {
	return Config{
		TotalCapital:        totalCapital,
		MaxDailyLossPercent: 1,
		TopN:                5,
		MarketScreenerCount: 250,
		WarmupBeforeOpenMin: 30,
		MarketOpenTime:      "09:00",
		MarketCloseTime:     "15:00",
		SquareOffTime:       "14:50",
		WeekdaysOnly:        true,
	}
}

// Preset is a named, immutable parameter bundle.
type Preset struct {
	ID     PresetID `json:"id"`
	Name   string   `json:"name"`
	Config Config   `json:"config"`
}

// Registry holds the named presets and the currently active one.
type Registry struct {
	mu      sync.RWMutex
	presets map[PresetID]Preset
	active  PresetID
}

// NewRegistry builds the registry with the built-in presets and S1 active.
func NewRegistry(totalCapital float64) *Registry {
	base := BaseConfig(totalCapital)

	s1 := base
	s1.BuyContinuousRiseMinutes = 8
	s1.ShortContinuousFallMinutes = 8
	s1.TrendStrengthThreshold = 0.75
	s1.AllowRepeatEntryOnTrend = true
	s1.AllowShortEntries = true
	s1.PerStockStopLossPercent = 0.8
	s1.FirstProfitTargetPercent = 0.6
	s1.FirstProfitExitPercent = 60
	s1.RemainderHardTargetPercent = 1.2
	s1.TrailingStopPercent = 0.5
	s1.MoveStopToEntryAfterFirst = true

	s2 := s1
	s2.BuyContinuousRiseMinutes = 10
	s2.ShortContinuousFallMinutes = 10
	s2.TrendStrengthThreshold = 0.82
	s2.AllowRepeatEntryOnTrend = false
	s2.FirstProfitTargetPercent = 0.7
	s2.FirstProfitExitPercent = 65
	s2.RemainderHardTargetPercent = 1.4
	s2.TrailingStopPercent = 0.45

	s3 := s1
	s3.BuyContinuousRiseMinutes = 6
	s3.ShortContinuousFallMinutes = 6
	s3.TrendStrengthThreshold = 0.65
	s3.FirstProfitTargetPercent = 0.5
	s3.FirstProfitExitPercent = 50
	s3.RemainderHardTargetPercent = 1.0
	s3.TrailingStopPercent = 0.6

	s4 := base
	s4.BuyContinuousRiseMinutes = 6
	s4.ShortContinuousFallMinutes = 6
	s4.TrendStrengthThreshold = 0.65
	s4.PerStockStopLossPercent = 0.8
	s4.FirstProfitTargetPercent = 0.5
	s4.FirstProfitExitPercent = 100
	s4.OptionMode = true
	s4.SupertrendFactor = 3.0
	s4.SupertrendPeriod = 10
	s4.RSIPeriod = 14
	s4.EMAFastPeriod = 20
	s4.EMASlowPeriod = 50
	s4.OptionPremium = 5.0
	s4.TargetPoints = 2.0
	s4.StopLossPoints = 1.0
	s4.PremiumMovePerUnderPct = 1.0

	return &Registry{
		presets: map[PresetID]Preset{
			PresetS1: {ID: PresetS1, Name: "Balanced Momentum", Config: s1},
			PresetS2: {ID: PresetS2, Name: "Conservative Filter", Config: s2},
			PresetS3: {ID: PresetS3, Name: "Aggressive Intraday", Config: s3},
			PresetS4: {ID: PresetS4, Name: "Option-Style Bearish PUT", Config: s4},
		},
		active: PresetS1,
	}
}

// Get returns the preset for id.
func (r *Registry) Get(id PresetID) (Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	preset, ok := r.presets[id]
	if !ok {
		return Preset{}, fmt.Errorf("unknown strategy preset %q", id)
	}
	return preset, nil
}

// Apply activates the preset for id. Unknown ids leave the active preset
// untouched.
func (r *Registry) Apply(id PresetID) (Preset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	preset, ok := r.presets[id]
	if !ok {
		return Preset{}, fmt.Errorf("unknown strategy preset %q", id)
	}
	r.active = id
	return preset, nil
}

// Active returns the currently active preset.
func (r *Registry) Active() Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presets[r.active]
}

// List returns every preset in a stable order.
func (r *Registry) List() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.presets))
	for _, preset := range r.presets {
		out = append(out, preset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PublishAuto republishes cfg under the reserved auto-optimized slot and
// activates it.
func (r *Registry) PublishAuto(name string, cfg Config) Preset {
	r.mu.Lock()
	defer r.mu.Unlock()
	preset := Preset{ID: PresetAuto, Name: name, Config: cfg}
	r.presets[PresetAuto] = preset
	r.active = PresetAuto
	return preset
}
