package api

import (
	"net/http"
	"time"

	"fleetbooks/server/internal/models"
	"fleetbooks/server/internal/services"

	"github.com/gin-gonic/gin"
)

// FinanceController управляет API endpoints книги учета
type FinanceController struct {
	service *services.FinanceService
}

// NewFinanceController создает новый контроллер финансов
func NewFinanceController(service *services.FinanceService) *FinanceController {
	return &FinanceController{
		service: service,
	}
}

// parsePeriod разбирает from/to из query, по умолчанию текущий месяц
func parsePeriod(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Second)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Неверный формат даты from, ожидается YYYY-MM-DD",
				"details": err.Error(),
			})
			return from, to, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Неверный формат даты to, ожидается YYYY-MM-DD",
				"details": err.Error(),
			})
			return from, to, false
		}
		// Включаем весь день
		to = parsed.AddDate(0, 0, 1).Add(-time.Second)
	}
	return from, to, true
}

// GetTransactions возвращает операции книги учета
// GET /api/v1/finance/transactions?source=bank|cash&type=expense|income&category=...&batch_id=...
func (fc *FinanceController) GetTransactions(c *gin.Context) {
	filter := services.TransactionFilter{
		Source:   c.Query("source"),
		Type:     c.Query("type"),
		Category: c.Query("category"),
		BatchID:  c.Query("batch_id"),
	}

	if raw := c.Query("from"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &parsed
		}
	}
	if raw := c.Query("to"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			endOfDay := parsed.AddDate(0, 0, 1).Add(-time.Second)
			filter.DateTo = &endOfDay
		}
	}

	transactions, total, err := fc.service.GetTransactions(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения операций",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
		"total":        total,
	})
}

// GetTransaction возвращает операцию по ID
// GET /api/v1/finance/transactions/:id
func (fc *FinanceController) GetTransaction(c *gin.Context) {
	transaction, err := fc.service.GetTransactionByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Операция не найдена",
		})
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// CreateTransaction создает операцию в книге учета
// POST /api/v1/finance/transactions
func (fc *FinanceController) CreateTransaction(c *gin.Context) {
	var req models.FinanceTransaction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	if req.Amount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Сумма операции обязательна",
		})
		return
	}

	if err := fc.service.CreateTransaction(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка создания операции",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, req)
}

// UpdateTransaction обновляет операцию
// PUT /api/v1/finance/transactions/:id
func (fc *FinanceController) UpdateTransaction(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	transaction, err := fc.service.UpdateTransaction(c.Param("id"), updates)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка обновления операции",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, transaction)
}

// DeleteTransaction удаляет операцию
// DELETE /api/v1/finance/transactions/:id
func (fc *FinanceController) DeleteTransaction(c *gin.Context) {
	if err := fc.service.DeleteTransaction(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка удаления операции",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Операция удалена"})
}

// GetSummary возвращает сводку доходов/расходов за период
// GET /api/v1/finance/summary?from=YYYY-MM-DD&to=YYYY-MM-DD
func (fc *FinanceController) GetSummary(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}

	summary, err := fc.service.GetSummary(from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка построения сводки",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
