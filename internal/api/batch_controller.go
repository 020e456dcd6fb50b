package api

import (
	"net/http"

	"fleetbooks/server/internal/models"
	"fleetbooks/server/internal/services"

	"github.com/gin-gonic/gin"
)

// BatchController управляет API endpoints партий рейсов
type BatchController struct {
	batchService    *services.BatchService
	forecastService *services.ForecastService
}

// NewBatchController создает новый контроллер партий
func NewBatchController(batchService *services.BatchService, forecastService *services.ForecastService) *BatchController {
	return &BatchController{
		batchService:    batchService,
		forecastService: forecastService,
	}
}

// CreateBatch создает новую партию
// POST /api/v1/batches
func (bc *BatchController) CreateBatch(c *gin.Context) {
	var batch models.TripBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	if err := bc.batchService.CreateBatch(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка создания партии",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, batch)
}

// GetBatches возвращает список партий
// GET /api/v1/batches
func (bc *BatchController) GetBatches(c *gin.Context) {
	batches, err := bc.batchService.GetBatches()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка получения партий",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches": batches,
		"count":   len(batches),
	})
}

// GetBatch возвращает партию со всеми связями
// GET /api/v1/batches/:id
func (bc *BatchController) GetBatch(c *gin.Context) {
	batch, err := bc.batchService.GetBatchByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Партия не найдена",
		})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// UpdateBatch обновляет название/описание партии
// PUT /api/v1/batches/:id
func (bc *BatchController) UpdateBatch(c *gin.Context) {
	// Указатели отличают "поле не передано" от пустой строки:
	// пустое описание очищает поле
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	batch, err := bc.batchService.UpdateBatch(c.Param("id"), req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка обновления партии",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, batch)
}

// DeleteBatch удаляет партию
// DELETE /api/v1/batches/:id
func (bc *BatchController) DeleteBatch(c *gin.Context) {
	if err := bc.batchService.DeleteBatch(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка удаления партии",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Партия удалена"})
}

// ImportTrips загружает рейсы в партию
// POST /api/v1/batches/:id/trips
func (bc *BatchController) ImportTrips(c *gin.Context) {
	var req struct {
		Trips []services.TripImportRow `json:"trips" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	batch, err := bc.batchService.ImportTrips(c.Param("id"), req.Trips)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка загрузки рейсов",
			"details": err.Error(),
		})
		return
	}

	BroadcastDashboardUpdate("trips_imported", map[string]interface{}{
		"batch_id":     batch.ID,
		"batch_status": batch.Status,
		"trips_count":  len(batch.Trips),
	})

	c.JSON(http.StatusOK, batch)
}

// SnapshotForecast фиксирует прогноз для партии
// POST /api/v1/batches/:id/forecast
// Тело запроса опционально: без него используются сохраненные допущения
func (bc *BatchController) SnapshotForecast(c *gin.Context) {
	batchID := c.Param("id")

	var input services.ForecastInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Неверные данные",
				"details": err.Error(),
			})
			return
		}
	} else {
		settings, err := bc.forecastService.GetSettings()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Ошибка загрузки настроек",
				"details": err.Error(),
			})
			return
		}
		input = services.InputFromSettings(settings)
	}

	// Проверяем существование партии до расчета
	if _, err := bc.batchService.GetBatchByID(batchID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Партия не найдена",
		})
		return
	}

	result, err := bc.forecastService.Calculate(input)
	if err != nil {
		if respondValidationError(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка расчета прогноза",
			"details": err.Error(),
		})
		return
	}

	snapshot, err := bc.forecastService.SnapshotForBatch(batchID, result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка сохранения снимка прогноза",
			"details": err.Error(),
		})
		return
	}

	BroadcastDashboardUpdate("forecast_snapshot", map[string]interface{}{
		"batch_id":          batchID,
		"projected_revenue": result.WeeklyRevenue,
	})

	c.JSON(http.StatusOK, snapshot)
}

// ImportSettlement сопоставляет settlement-накладную с партией
// POST /api/v1/batches/:id/settlement
func (bc *BatchController) ImportSettlement(c *gin.Context) {
	var imp services.SettlementImport
	if err := c.ShouldBindJSON(&imp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	batch, err := bc.batchService.ImportSettlement(c.Param("id"), imp)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Ошибка загрузки накладной",
			"details": err.Error(),
		})
		return
	}

	BroadcastDashboardUpdate("settlement_imported", map[string]interface{}{
		"batch_id":       batch.ID,
		"batch_status":   batch.Status,
		"actual_revenue": batch.ActualRevenue,
	})

	c.JSON(http.StatusOK, batch)
}

// GetVariance возвращает отклонение факта от прогноза
// GET /api/v1/batches/:id/variance
func (bc *BatchController) GetVariance(c *gin.Context) {
	variance, batch, err := bc.batchService.GetVariance(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Партия не найдена",
		})
		return
	}

	// variance == nil пока накладная не загружена: это "нет данных", не ноль
	c.JSON(http.StatusOK, gin.H{
		"batch_id":          batch.ID,
		"batch_status":      batch.Status,
		"projected_revenue": batch.ProjectedRevenue,
		"actual_revenue":    batch.ActualRevenue,
		"variance":          variance,
	})
}
