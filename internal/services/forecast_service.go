package services

import (
	"fmt"
	"log"
	"time"

	"fleetbooks/server/internal/models"
	"fleetbooks/server/internal/utils"

	"gorm.io/gorm"
)

// Ключи кэша прогноза в Redis
const (
	forecastCacheKey = "fleet:forecast:last"
	forecastCacheTTL = 10 * time.Minute

	// ForecastSettingsChannel канал Pub/Sub с уведомлениями об изменении допущений
	ForecastSettingsChannel = "fleet:forecast:settings"
)

// ForecastService управляет настройками прогноза и снимками по партиям
// Сама арифметика живет в чистом движке (CalculateForecast), сервис только
// достает допущения из БД и сохраняет результаты
type ForecastService struct {
	db        *gorm.DB
	redisUtil *utils.RedisClient
	defaults  ForecastInput // Допущения из конфига, пока в БД нет сохраненных
}

// NewForecastService создает новый сервис прогнозирования
func NewForecastService(db *gorm.DB, redisUtil *utils.RedisClient, defaults ForecastInput) *ForecastService {
	return &ForecastService{
		db:        db,
		redisUtil: redisUtil,
		defaults:  defaults,
	}
}

// GetSettings возвращает сохраненные допущения прогноза
// Если настроек еще нет, создает строку из дефолтов конфига
func (fs *ForecastService) GetSettings() (*models.ForecastSettings, error) {
	if fs.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var settings models.ForecastSettings
	err := fs.db.Order("id").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("ошибка загрузки настроек прогноза: %w", err)
	}

	// Первая загрузка: инициализируем из конфига
	settings = models.ForecastSettings{
		TruckCount:         fs.defaults.TruckCount,
		NightsPerWeek:      fs.defaults.NightsPerWeek,
		ToursPerTruck:      fs.defaults.ToursPerTruck,
		AvgLoadsPerTour:    fs.defaults.AvgLoadsPerTour,
		DTRRate:            fs.defaults.DTRRate,
		AvgAccessorialRate: fs.defaults.AvgAccessorialRate,
		HourlyWage:         fs.defaults.HourlyWage,
		HoursPerNight:      fs.defaults.HoursPerNight,
		IncludeOvertime:    fs.defaults.IncludeOvertime,
		OvertimeMultiplier: fs.defaults.OvertimeMultiplier,
		PayrollTaxRate:     fs.defaults.PayrollTaxRate,
		WorkersCompRate:    fs.defaults.WorkersCompRate,
		WeeklyOverhead:     fs.defaults.WeeklyOverhead,
	}
	if err := fs.db.Create(&settings).Error; err != nil {
		return nil, fmt.Errorf("ошибка сохранения дефолтных настроек: %w", err)
	}
	log.Println("✅ Настройки прогноза инициализированы из конфига")
	return &settings, nil
}

// UpdateSettings сохраняет допущения прогноза (валидирует перед записью)
func (fs *ForecastService) UpdateSettings(settings *models.ForecastSettings) error {
	input := InputFromSettings(settings)
	if err := input.Validate(); err != nil {
		return err
	}

	current, err := fs.GetSettings()
	if err != nil {
		return err
	}
	settings.ID = current.ID

	if err := fs.db.Save(settings).Error; err != nil {
		return fmt.Errorf("ошибка сохранения настроек прогноза: %w", err)
	}

	// Сохраненный прогноз устарел вместе с допущениями
	if fs.redisUtil != nil {
		if err := fs.redisUtil.Delete(forecastCacheKey); err != nil {
			log.Printf("⚠️ Не удалось сбросить кэш прогноза: %v", err)
		}
		// Уведомляем подписчиков (дашборды), что допущения поменялись
		if err := fs.redisUtil.Publish(ForecastSettingsChannel, "settings_updated"); err != nil {
			log.Printf("⚠️ Не удалось опубликовать обновление настроек: %v", err)
		}
	}

	log.Printf("✅ Настройки прогноза обновлены: машин=%d, ночей=%d, DTR=%.2f",
		settings.TruckCount, settings.NightsPerWeek, settings.DTRRate)
	return nil
}

// InputFromSettings конвертирует строку настроек в допущения движка
func InputFromSettings(s *models.ForecastSettings) ForecastInput {
	return ForecastInput{
		TruckCount:         s.TruckCount,
		NightsPerWeek:      s.NightsPerWeek,
		ToursPerTruck:      s.ToursPerTruck,
		AvgLoadsPerTour:    s.AvgLoadsPerTour,
		DTRRate:            s.DTRRate,
		AvgAccessorialRate: s.AvgAccessorialRate,
		HourlyWage:         s.HourlyWage,
		HoursPerNight:      s.HoursPerNight,
		IncludeOvertime:    s.IncludeOvertime,
		OvertimeMultiplier: s.OvertimeMultiplier,
		PayrollTaxRate:     s.PayrollTaxRate,
		WorkersCompRate:    s.WorkersCompRate,
		WeeklyOverhead:     s.WeeklyOverhead,
	}
}

// Calculate прогоняет движок и кэширует последний результат
// Движок детерминированный, поэтому кэшировать безопасно
func (fs *ForecastService) Calculate(input ForecastInput) (*ForecastResult, error) {
	result, err := CalculateForecast(input)
	if err != nil {
		return nil, err
	}

	if fs.redisUtil != nil {
		if err := fs.redisUtil.Set(forecastCacheKey, result, forecastCacheTTL); err != nil {
			log.Printf("⚠️ Не удалось закэшировать прогноз: %v", err)
		}
	}

	return result, nil
}

// GetCachedResult возвращает последний рассчитанный прогноз из кэша (если есть)
func (fs *ForecastService) GetCachedResult() (*ForecastResult, bool) {
	if fs.redisUtil == nil {
		return nil, false
	}
	var result ForecastResult
	if err := fs.redisUtil.GetJSON(forecastCacheKey, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// SnapshotForBatch сохраняет снимок прогноза для партии (UPSERT)
// Снимок неизменяемый: пересчет заменяет строку, а не правит ее
func (fs *ForecastService) SnapshotForBatch(batchID string, result *ForecastResult) (*models.ForecastSnapshot, error) {
	if fs.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	snapshot := &models.ForecastSnapshot{
		BatchID:            batchID,
		WeeklyTours:        result.WeeklyTours,
		WeeklyLoads:        result.WeeklyLoads,
		TourPay:            result.TourPay,
		AccessorialPay:     result.AccessorialPay,
		WeeklyRevenue:      result.WeeklyRevenue,
		LaborCost:          result.LaborCost,
		PayrollTax:         result.PayrollTax,
		WorkersComp:        result.WorkersComp,
		Overhead:           result.Overhead,
		WeeklyCost:         result.WeeklyCost,
		WeeklyProfit:       result.WeeklyProfit,
		ContributionMargin: result.ContributionMargin,
	}

	// UPSERT: обновляем если снимок для партии уже есть, создаем если нет
	saveResult := fs.db.Where("batch_id = ?", batchID).
		Assign(*snapshot).
		FirstOrCreate(snapshot)
	if saveResult.Error != nil {
		return nil, fmt.Errorf("failed to save forecast snapshot: %w", saveResult.Error)
	}

	// Обновляем прогнозную выручку на самой партии для быстрого доступа
	projected := result.WeeklyRevenue
	if err := fs.db.Model(&models.TripBatch{}).
		Where("id = ?", batchID).
		Update("projected_revenue", projected).Error; err != nil {
		return nil, fmt.Errorf("failed to update batch projected revenue: %w", err)
	}

	log.Printf("✅ Снимок прогноза сохранен: партия=%s, выручка=%.2f, прибыль=%.2f",
		batchID, result.WeeklyRevenue, result.WeeklyProfit)
	return snapshot, nil
}
