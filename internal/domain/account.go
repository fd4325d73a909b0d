package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account is a paper-trading user with a simulated cash balance.
// Balance is only mutated by trade settlement and never goes negative.
type Account struct {
	AccountID    uuid.UUID       `gorm:"column:account_id;type:uuid;primaryKey" json:"account_id"`
	Username     string          `gorm:"column:username;not null;uniqueIndex" json:"username"`
	PasswordHash string          `gorm:"column:password_hash;not null" json:"-"`
	Balance      decimal.Decimal `gorm:"column:balance;type:decimal(20,4);not null;default:0" json:"balance"`
	CreatedAt    time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Account) TableName() string {
	return "Accounts"
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.AccountID == uuid.Nil {
		a.AccountID = uuid.New()
	}
	return nil
}
