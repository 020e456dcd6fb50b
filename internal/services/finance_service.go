package services

import (
	"fmt"
	"log"
	"time"

	"fleetbooks/server/internal/models"

	"gorm.io/gorm"
)

// FinanceService управляет книгой учета: банковские и наличные операции
type FinanceService struct {
	db *gorm.DB
}

// NewFinanceService создает новый финансовый сервис
func NewFinanceService(db *gorm.DB) *FinanceService {
	return &FinanceService{db: db}
}

// TransactionFilter параметры выборки операций
type TransactionFilter struct {
	Source   string     // 'bank', 'cash' или пусто (все)
	Type     string     // 'expense', 'income', 'transfer' или пусто
	Category string     // Точное имя категории
	BatchID  string     // Операции, привязанные к партии
	DateFrom *time.Time // Включительно
	DateTo   *time.Time // Включительно
	Limit    int
	Offset   int
}

// CategorySummary итог по категории за период
type CategorySummary struct {
	Category string  `json:"category"`
	Type     string  `json:"type"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// FinanceSummary сводка по книге учета за период
type FinanceSummary struct {
	PeriodStart  time.Time         `json:"period_start"`
	PeriodEnd    time.Time         `json:"period_end"`
	TotalIncome  float64           `json:"total_income"`
	TotalExpense float64           `json:"total_expense"`
	NetCashFlow  float64           `json:"net_cash_flow"`
	Categories   []CategorySummary `json:"categories"`
}

// CreateTransaction создает операцию в книге учета
func (fs *FinanceService) CreateTransaction(transaction *models.FinanceTransaction) error {
	if fs.db == nil {
		return fmt.Errorf("database connection not available")
	}
	if transaction.Amount < 0 {
		return fmt.Errorf("amount must be >= 0, use type=expense for outflows")
	}
	if transaction.Type != models.TransactionTypeExpense &&
		transaction.Type != models.TransactionTypeIncome &&
		transaction.Type != models.TransactionTypeTransfer {
		return fmt.Errorf("unknown transaction type: %s", transaction.Type)
	}
	if transaction.Source != models.TransactionSourceBank &&
		transaction.Source != models.TransactionSourceCash {
		return fmt.Errorf("unknown transaction source: %s", transaction.Source)
	}
	if transaction.Date.IsZero() {
		transaction.Date = time.Now()
	}
	transaction.Amount = RoundMoney(transaction.Amount)

	if err := fs.db.Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	log.Printf("💳 Операция записана: %s %s %.2f (%s)",
		transaction.Type, transaction.Category, transaction.Amount, transaction.Source)
	return nil
}

// GetTransactions возвращает операции по фильтру, новые первыми
func (fs *FinanceService) GetTransactions(filter TransactionFilter) ([]models.FinanceTransaction, int64, error) {
	query := fs.db.Model(&models.FinanceTransaction{})

	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.BatchID != "" {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	var transactions []models.FinanceTransaction
	err := query.Order("date DESC, created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&transactions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return transactions, total, nil
}

// GetTransactionByID возвращает операцию по ID
func (fs *FinanceService) GetTransactionByID(id string) (*models.FinanceTransaction, error) {
	var transaction models.FinanceTransaction
	err := fs.db.Preload("Batch").First(&transaction, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("transaction not found")
		}
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return &transaction, nil
}

// UpdateTransaction обновляет операцию
func (fs *FinanceService) UpdateTransaction(id string, updates map[string]interface{}) (*models.FinanceTransaction, error) {
	transaction, err := fs.GetTransactionByID(id)
	if err != nil {
		return nil, err
	}

	if amount, ok := updates["amount"].(float64); ok {
		if amount < 0 {
			return nil, fmt.Errorf("amount must be >= 0")
		}
		updates["amount"] = RoundMoney(amount)
	}

	if err := fs.db.Model(transaction).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return transaction, nil
}

// DeleteTransaction удаляет операцию (soft delete)
func (fs *FinanceService) DeleteTransaction(id string) error {
	transaction, err := fs.GetTransactionByID(id)
	if err != nil {
		return err
	}
	if err := fs.db.Delete(transaction).Error; err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	log.Printf("🗑️ Операция удалена: %s %.2f", transaction.Category, transaction.Amount)
	return nil
}

// GetSummary возвращает сводку доходов/расходов по категориям за период
// Агрегация одним сырым запросом, отмененные операции не учитываются
func (fs *FinanceService) GetSummary(from, to time.Time) (*FinanceSummary, error) {
	sqlQuery := `
		SELECT
			category,
			type,
			COALESCE(SUM(amount), 0) as total,
			COUNT(*) as count
		FROM finance_transactions
		WHERE deleted_at IS NULL
			AND status != 'Cancelled'
			AND type IN ('income', 'expense')
			AND date >= ? AND date <= ?
		GROUP BY category, type
		ORDER BY type, total DESC
	`

	var categories []CategorySummary
	if err := fs.db.Raw(sqlQuery, from, to).Scan(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}

	summary := &FinanceSummary{
		PeriodStart: from,
		PeriodEnd:   to,
		Categories:  categories,
	}
	for _, c := range categories {
		switch models.TransactionType(c.Type) {
		case models.TransactionTypeIncome:
			summary.TotalIncome += c.Total
		case models.TransactionTypeExpense:
			summary.TotalExpense += c.Total
		}
	}
	summary.TotalIncome = RoundMoney(summary.TotalIncome)
	summary.TotalExpense = RoundMoney(summary.TotalExpense)
	summary.NetCashFlow = RoundMoney(summary.TotalIncome - summary.TotalExpense)

	return summary, nil
}
