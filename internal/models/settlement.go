package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementInvoice представляет settlement-накладную от заказчика:
// фактическую выплату за партию рейсов (Source of Truth для факта)
type SettlementInvoice struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	BatchID     string    `json:"batch_id" gorm:"type:uuid;not null;uniqueIndex"` // Одна накладная на партию
	Number      string    `json:"number" gorm:"type:varchar(100);not null;index"` // Внешний номер накладной
	PeriodStart time.Time `json:"period_start" gorm:"not null"`
	PeriodEnd   time.Time `json:"period_end" gorm:"not null"`
	TotalAmount float64   `json:"total_amount" gorm:"type:decimal(15,2);not null"` // Фактическая выплата
	ImportedAt  time.Time `json:"imported_at" gorm:"not null"`
	Notes       string    `json:"notes" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName указывает имя таблицы
func (SettlementInvoice) TableName() string {
	return "settlement_invoices"
}

// BeforeCreate генерирует UUID
func (si *SettlementInvoice) BeforeCreate(tx *gorm.DB) error {
	if si.ID == "" {
		si.ID = uuid.New().String()
	}
	if si.ImportedAt.IsZero() {
		si.ImportedAt = time.Now()
	}
	return nil
}
