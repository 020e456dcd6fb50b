package models

import (
	"time"

	"gorm.io/gorm"
)

// ForecastSettings хранит допущения прогноза
// Передаются в движок явно, без глобального состояния: одна актуальная строка в БД
type ForecastSettings struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	TruckCount         int     `gorm:"not null" json:"truck_count"`
	NightsPerWeek      int     `gorm:"not null" json:"nights_per_week"`
	ToursPerTruck      float64 `gorm:"type:decimal(8,3);not null" json:"tours_per_truck"`
	AvgLoadsPerTour    float64 `gorm:"type:decimal(8,3);not null" json:"avg_loads_per_tour"`
	DTRRate            float64 `gorm:"type:decimal(15,2);not null" json:"dtr_rate"`             // Ставка за тур
	AvgAccessorialRate float64 `gorm:"type:decimal(15,2);not null" json:"avg_accessorial_rate"` // Ставка за лоад
	HourlyWage         float64 `gorm:"type:decimal(15,2);not null" json:"hourly_wage"`
	HoursPerNight      float64 `gorm:"type:decimal(8,2);not null" json:"hours_per_night"`
	IncludeOvertime    bool    `gorm:"default:true" json:"include_overtime"`
	OvertimeMultiplier float64 `gorm:"type:decimal(5,2);default:1.5" json:"overtime_multiplier"`
	PayrollTaxRate     float64 `gorm:"type:decimal(8,6);not null" json:"payroll_tax_rate"`  // Доля от ФОТ, [0,1]
	WorkersCompRate    float64 `gorm:"type:decimal(8,6);not null" json:"workers_comp_rate"` // Доля от ФОТ, [0,1]
	WeeklyOverhead     float64 `gorm:"type:decimal(15,2);not null" json:"weekly_overhead"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName возвращает имя таблицы
func (ForecastSettings) TableName() string {
	return "forecast_settings"
}

// BeforeUpdate вызывается перед обновлением записи
func (fs *ForecastSettings) BeforeUpdate(tx *gorm.DB) error {
	fs.UpdatedAt = time.Now()
	return nil
}

// ForecastSnapshot хранит результат прогноза, привязанный к партии
// Снимок неизменяемый: пересчет прогноза заменяет строку целиком
type ForecastSnapshot struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	BatchID string `gorm:"type:uuid;not null;uniqueIndex" json:"batch_id"`

	WeeklyTours        float64 `gorm:"type:decimal(10,3);not null" json:"weekly_tours"`
	WeeklyLoads        int     `gorm:"not null" json:"weekly_loads"`
	TourPay            float64 `gorm:"type:decimal(15,2);not null" json:"tour_pay"`
	AccessorialPay     float64 `gorm:"type:decimal(15,2);not null" json:"accessorial_pay"`
	WeeklyRevenue      float64 `gorm:"type:decimal(15,2);not null" json:"weekly_revenue"`
	LaborCost          float64 `gorm:"type:decimal(15,2);not null" json:"labor_cost"`
	PayrollTax         float64 `gorm:"type:decimal(15,2);not null" json:"payroll_tax"`
	WorkersComp        float64 `gorm:"type:decimal(15,2);not null" json:"workers_comp"`
	Overhead           float64 `gorm:"type:decimal(15,2);not null" json:"overhead"`
	WeeklyCost         float64 `gorm:"type:decimal(15,2);not null" json:"weekly_cost"`
	WeeklyProfit       float64 `gorm:"type:decimal(15,2);not null" json:"weekly_profit"`
	ContributionMargin float64 `gorm:"type:decimal(15,2);not null" json:"contribution_margin"` // На машину за ночь

	CreatedAt time.Time `json:"created_at"`
}

// TableName возвращает имя таблицы
func (ForecastSnapshot) TableName() string {
	return "forecast_snapshots"
}
