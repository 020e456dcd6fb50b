package api

import (
	"errors"
	"net/http"

	"fleetbooks/server/internal/models"
	"fleetbooks/server/internal/services"

	"github.com/gin-gonic/gin"
)

// ForecastController управляет API endpoints прогнозирования
type ForecastController struct {
	service *services.ForecastService
}

// NewForecastController создает новый контроллер прогнозов
func NewForecastController(service *services.ForecastService) *ForecastController {
	return &ForecastController{
		service: service,
	}
}

// respondValidationError отвечает 400 с именем проблемного поля допущений
func respondValidationError(c *gin.Context, err error) bool {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные допущения прогноза",
			"field":   validationErr.Field,
			"details": validationErr.Message,
		})
		return true
	}
	return false
}

// CalculateForecast рассчитывает недельный прогноз по переданным допущениям
// POST /api/v1/forecast/calculate
func (fc *ForecastController) CalculateForecast(c *gin.Context) {
	var input services.ForecastInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	result, err := fc.service.Calculate(input)
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

	c.JSON(http.StatusOK, result)
}

// GenerateScalingTable строит таблицу "что если машин будет N"
// POST /api/v1/forecast/scaling-table
func (fc *ForecastController) GenerateScalingTable(c *gin.Context) {
	var req struct {
		services.ForecastInput
		TruckCounts []int `json:"truck_counts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	rows, err := services.GenerateScalingTable(req.ForecastInput, req.TruckCounts)
	if err != nil {
		if respondValidationError(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка построения таблицы масштабирования",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":  rows,
		"count": len(rows),
	})
}

// GetLastForecast возвращает последний рассчитанный прогноз из кэша
// GET /api/v1/forecast/last
func (fc *ForecastController) GetLastForecast(c *gin.Context) {
	result, ok := fc.service.GetCachedResult()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Прогноз еще не рассчитывался",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSettings возвращает сохраненные допущения прогноза
// GET /api/v1/forecast/settings
func (fc *ForecastController) GetSettings(c *gin.Context) {
	settings, err := fc.service.GetSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка загрузки настроек",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings сохраняет допущения прогноза
// PUT /api/v1/forecast/settings
func (fc *ForecastController) UpdateSettings(c *gin.Context) {
	var settings models.ForecastSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные данные",
			"details": err.Error(),
		})
		return
	}

	if err := fc.service.UpdateSettings(&settings); err != nil {
		if respondValidationError(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка сохранения настроек",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, settings)
}
