package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType представляет тип банковской операции
type TransactionType string

const (
	TransactionTypeExpense  TransactionType = "expense"  // Расход
	TransactionTypeIncome   TransactionType = "income"   // Доход
	TransactionTypeTransfer TransactionType = "transfer" // Перевод между счетами
)

// TransactionSource представляет источник операции
type TransactionSource string

const (
	TransactionSourceBank TransactionSource = "bank" // Банковская выписка
	TransactionSourceCash TransactionSource = "cash" // Наличные
)

// TransactionStatus представляет статус операции
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "Pending"   // Ожидает подтверждения
	TransactionStatusCompleted TransactionStatus = "Completed" // Проведена
	TransactionStatusCancelled TransactionStatus = "Cancelled" // Отменена
)

// Категории расходов перевозчика (используются для P&L отчета)
const (
	CategoryFuel        = "Топливо"
	CategoryPayroll     = "Зарплата водителей"
	CategoryMaintenance = "Обслуживание машин"
	CategoryInsurance   = "Страховка"
	CategoryOverhead    = "Накладные расходы"
	CategoryLinehaul    = "Оплата за рейсы" // Доходная категория: выплаты по settlement
)

// FinanceTransaction представляет операцию в книге учета (банк/наличные)
type FinanceTransaction struct {
	ID           string            `json:"id" gorm:"type:uuid;primaryKey"`
	Date         time.Time         `json:"date" gorm:"not null;index"`
	Type         TransactionType   `json:"type" gorm:"type:varchar(50);not null;index"`
	Category     string            `json:"category" gorm:"type:varchar(100);index"` // Категория расхода/дохода
	Amount       float64           `json:"amount" gorm:"type:decimal(15,2);not null"`
	Description  string            `json:"description" gorm:"type:text"`
	Source       TransactionSource `json:"source" gorm:"type:varchar(20);not null;index"` // 'bank', 'cash'
	Status       TransactionStatus `json:"status" gorm:"type:varchar(20);default:'Completed';index"`
	Counterparty string            `json:"counterparty" gorm:"type:varchar(255)"` // Контрагент (заказчик, АЗС, сервис)

	// Привязка к партии рейсов (для доходов по settlement-накладным)
	BatchID *string   `json:"batch_id" gorm:"type:uuid;index"`
	Batch   *TripBatch `gorm:"foreignKey:BatchID" json:"batch,omitempty"`

	PerformedBy string `json:"performed_by" gorm:"type:varchar(255)"` // Кто внес операцию

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName указывает имя таблицы
func (FinanceTransaction) TableName() string {
	return "finance_transactions"
}

// BeforeCreate генерирует UUID
func (ft *FinanceTransaction) BeforeCreate(tx *gorm.DB) error {
	if ft.ID == "" {
		ft.ID = uuid.New().String()
	}
	if ft.Status == "" {
		ft.Status = TransactionStatusCompleted
	}
	return nil
}

// IsPending проверяет, ожидает ли операция подтверждения
func (ft *FinanceTransaction) IsPending() bool {
	return ft.Status == TransactionStatusPending
}

// IsBankOperation проверяет, является ли операция банковской
func (ft *FinanceTransaction) IsBankOperation() bool {
	return ft.Source == TransactionSourceBank
}

// SignedAmount возвращает сумму со знаком: расходы отрицательные
func (ft *FinanceTransaction) SignedAmount() float64 {
	if ft.Type == TransactionTypeExpense {
		return -ft.Amount
	}
	return ft.Amount
}
