package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WatchlistEntry marks a symbol as watched by an account.
type WatchlistEntry struct {
	EntryID   uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_watch_account_symbol" json:"account_id"`
	Symbol    string    `gorm:"column:symbol;type:varchar(16);not null;uniqueIndex:idx_watch_account_symbol" json:"symbol"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (WatchlistEntry) TableName() string {
	return "Watchlist"
}

func (w *WatchlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.EntryID == uuid.Nil {
		w.EntryID = uuid.New()
	}
	return nil
}

// Models lists every table the service migrates.
func Models() []interface{} {
	return []interface{}{&Account{}, &Holding{}, &Transaction{}, &WatchlistEntry{}}
}
