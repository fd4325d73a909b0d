package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Holding is the share position of an account in one symbol.
// A row only exists while Quantity > 0; full liquidation deletes it.
type Holding struct {
	HoldingID   uuid.UUID       `gorm:"column:holding_id;type:uuid;primaryKey" json:"holding_id"`
	AccountID   uuid.UUID       `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_holding_account_symbol" json:"account_id"`
	Symbol      string          `gorm:"column:symbol;type:varchar(16);not null;uniqueIndex:idx_holding_account_symbol" json:"symbol"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(20,8);not null" json:"quantity"`
	CompanyName string          `gorm:"column:company_name" json:"company_name"`
	Sector      string          `gorm:"column:sector" json:"sector"`
	CreatedAt   time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Holding) TableName() string {
	return "Holdings"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.HoldingID == uuid.Nil {
		h.HoldingID = uuid.New()
	}
	return nil
}
