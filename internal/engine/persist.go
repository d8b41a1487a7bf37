package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"intraday-trade-bot-go/internal/models"
	"intraday-trade-bot-go/internal/strategy"
)

const (
	liveStateFileName   = "live-state.json"
	historyDirName      = "price-history"
	liveSaveInterval    = 5 * time.Second
	historySaveInterval = 15 * time.Second
)

// LiveState is the durable snapshot of the engine's trading state: the open
// positions and the full trade ledger, rehydrated before the live loop resumes.
type LiveState struct {
	SavedAt       time.Time         `json:"savedAt"`
	ActivePreset  strategy.PresetID `json:"activePresetId"`
	Trades        []models.Trade    `json:"trades"`
	OpenPositions []models.Position `json:"openPositions"`
}

// HistoryFile is the per-day snapshot of the trimmed price-history map.
type HistoryFile struct {
	Date            string                         `json:"date"`
	SavedAt         time.Time                      `json:"savedAt"`
	HistoryBySymbol map[string][]models.PricePoint `json:"historyBySymbol"`
}

// SnapshotStore writes and restores the engine's JSON snapshots. Saves are
// debounced unless forced, so routine cycles do not hammer the disk while
// trade executions still hit it immediately.
type SnapshotStore struct {
	dataDir         string
	lastLiveSave    time.Time
	lastHistorySave time.Time
}

func NewSnapshotStore(dataDir string) *SnapshotStore {
	return &SnapshotStore{dataDir: dataDir}
}

func (s *SnapshotStore) liveStatePath() string {
	return filepath.Join(s.dataDir, liveStateFileName)
}

func (s *SnapshotStore) historyPath(date string) string {
	return filepath.Join(s.dataDir, historyDirName, date+".json")
}

// SaveLiveState persists the live state, debounced unless force is set.
func (s *SnapshotStore) SaveLiveState(state LiveState, force bool) error {
	now := time.Now()
	if !force && now.Sub(s.lastLiveSave) < liveSaveInterval {
		return nil
	}

	state.SavedAt = now
	if err := writeJSONFile(s.liveStatePath(), state); err != nil {
		return fmt.Errorf("failed to save live state: %w", err)
	}
	s.lastLiveSave = now
	return nil
}

// LoadLiveState restores the live state snapshot. ok is false when no
// snapshot exists yet, which is not an error.
func (s *SnapshotStore) LoadLiveState() (LiveState, bool, error) {
	var state LiveState
	raw, err := os.ReadFile(s.liveStatePath())
	if errors.Is(err, fs.ErrNotExist) {
		return state, false, nil
	}
	if err != nil {
		return state, false, fmt.Errorf("failed to read live state: %w", err)
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, false, fmt.Errorf("failed to parse live state: %w", err)
	}
	return state, true, nil
}

// SaveHistory persists the day's price-history map, debounced unless forced.
func (s *SnapshotStore) SaveHistory(date string, history map[string][]models.PricePoint, force bool) error {
	now := time.Now()
	if !force && now.Sub(s.lastHistorySave) < historySaveInterval {
		return nil
	}

	file := HistoryFile{Date: date, SavedAt: now, HistoryBySymbol: history}
	if err := writeJSONFile(s.historyPath(date), file); err != nil {
		return fmt.Errorf("failed to save price history: %w", err)
	}
	s.lastHistorySave = now
	return nil
}

// LoadHistory restores the price-history map for a day. ok is false when no
// file exists for that date.
func (s *SnapshotStore) LoadHistory(date string) (map[string][]models.PricePoint, bool, error) {
	raw, err := os.ReadFile(s.historyPath(date))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read price history: %w", err)
	}

	var file HistoryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, false, fmt.Errorf("failed to parse price history: %w", err)
	}
	return file.HistoryBySymbol, true, nil
}

func writeJSONFile(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
