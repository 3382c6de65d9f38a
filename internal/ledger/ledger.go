package ledger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Round is one resolved round, appended exactly once at resolution.
type Round struct {
	ID          uint   `gorm:"primaryKey"`
	RoomCode    string `gorm:"index;size:16"`
	WinnerSeat  string `gorm:"size:8"`
	WinningSlot string `gorm:"size:2"`
	CallsignA   string `gorm:"size:16"`
	CallsignB   string `gorm:"size:16"`
	ETAMinutesA float64
	ETAMinutesB float64
	Multiplier  float64
	Multiplied  bool
	Payout      int
	Seed        int64
	ResolvedAt  time.Time
}

func (Round) TableName() string { return "round_records" }

// Ledger persists round history. A nil *Ledger is a valid no-op, for
// memory-only play.
type Ledger struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func Open(dsn string, log *zap.SugaredLogger) (*Ledger, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.AutoMigrate(&Round{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db, log: log}, nil
}

// RecordRound appends one row. Failures are the caller's to log; local game
// state is never rolled back over a ledger miss.
func (l *Ledger) RecordRound(ctx context.Context, r Round) error {
	if l == nil {
		return nil
	}
	if err := l.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("record round: %w", err)
	}
	return nil
}

// Totals aggregates net winnings per seat for a room, for display parity
// with the document bankrolls.
func (l *Ledger) Totals(ctx context.Context, roomCode string) (map[string]int, error) {
	if l == nil {
		return map[string]int{}, nil
	}
	var rows []Round
	if err := l.db.WithContext(ctx).Where("room_code = ?", roomCode).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}
	totals := map[string]int{}
	for _, r := range rows {
		totals[r.WinnerSeat] += r.Payout
		if r.WinnerSeat == "host" {
			totals["guest"] -= r.Payout
		} else {
			totals["host"] -= r.Payout
		}
	}
	return totals, nil
}
