package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// 決済プロバイダの確認結果1件。payment_referenceごとに最大1行、作成後は更新しない
type Transaction struct {
	ID               int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64             `gorm:"not null;index" json:"order_id"`
	UserID           int64             `gorm:"not null;index" json:"user_id"`
	Amount           decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency         string            `gorm:"type:varchar(3);not null" json:"currency"`
	Provider         string            `gorm:"type:varchar(30);not null" json:"provider"`
	PaymentReference string            `gorm:"type:varchar(100);not null;uniqueIndex" json:"payment_reference"`
	Status           TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	// プロバイダの生レスポンス（JSON）
	Metadata  string    `gorm:"type:text" json:"metadata"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (t Transaction) Verified() bool {
	return t.Status == TransactionStatusCompleted
}
