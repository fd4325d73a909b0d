package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Transaction is an append-only ledger entry. Amount is the total cash moved;
// PricePerUnit is Amount / Quantity at settlement time.
type Transaction struct {
	TxID          uuid.UUID       `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	AccountID     uuid.UUID       `gorm:"column:account_id;type:uuid;not null;index:idx_tx_account_symbol" json:"account_id"`
	Symbol        string          `gorm:"column:symbol;type:varchar(16);not null;index:idx_tx_account_symbol" json:"symbol"`
	Side          string          `gorm:"column:side;type:varchar(4);not null" json:"side"`
	Quantity      decimal.Decimal `gorm:"column:quantity;type:decimal(20,8);not null" json:"quantity"`
	PricePerUnit  decimal.Decimal `gorm:"column:price_per_unit;type:decimal(20,4);not null" json:"price_per_unit"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,4);not null" json:"amount"`
	QuoteSnapshot datatypes.JSON  `gorm:"column:quote_snapshot" json:"quote_snapshot,omitempty"`
	CreatedAt     time.Time       `gorm:"column:createdAt" json:"createdAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
