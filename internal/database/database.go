package database

import (
	"fmt"

	"intraday-trade-bot-go/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase opens the trade archive and migrates its schema. Unlike the
// in-memory ledger, the archive survives restarts and is append-only across
// trading days.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return db, nil
}

// ArchiveTrades appends the given ledger entries to the archive.
func ArchiveTrades(db *gorm.DB, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	records := make([]models.TradeRecord, 0, len(trades))
	for _, trade := range trades {
		records = append(records, models.NewTradeRecord(trade))
	}
	if err := db.Create(&records).Error; err != nil {
		return fmt.Errorf("failed to archive trades: %w", err)
	}
	return nil
}

// RecentTrades returns up to limit archived trades, newest first.
func RecentTrades(db *gorm.DB, limit int) ([]models.TradeRecord, error) {
	var records []models.TradeRecord
	if err := db.Order("timestamp desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load archived trades: %w", err)
	}
	return records, nil
}
