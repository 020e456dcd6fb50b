package services

import (
	"fmt"
	"math"
)

// ForecastInput содержит допущения для расчета недельного прогноза
// Все поля обязательны; валидация отклоняет весь ввод целиком, без частичного расчета
type ForecastInput struct {
	TruckCount         int     `json:"truck_count"`
	NightsPerWeek      int     `json:"nights_per_week"`
	ToursPerTruck      float64 `json:"tours_per_truck"`       // Туров на машину за ночь
	AvgLoadsPerTour    float64 `json:"avg_loads_per_tour"`    // Среднее лоадов в туре
	DTRRate            float64 `json:"dtr_rate"`              // Оплата за выполненный тур
	AvgAccessorialRate float64 `json:"avg_accessorial_rate"`  // Оплата за лоад
	HourlyWage         float64 `json:"hourly_wage"`           // Ставка водителя
	HoursPerNight      float64 `json:"hours_per_night"`       // Часов за смену
	IncludeOvertime    bool    `json:"include_overtime"`
	OvertimeMultiplier float64 `json:"overtime_multiplier"` // Например 1.5
	PayrollTaxRate     float64 `json:"payroll_tax_rate"`    // Доля от ФОТ, [0,1]
	WorkersCompRate    float64 `json:"workers_comp_rate"`   // Доля от ФОТ, [0,1]
	WeeklyOverhead     float64 `json:"weekly_overhead"`     // Фиксированные недельные расходы
}

// ForecastResult содержит расчетную недельную раскладку выручки и затрат
// Все денежные поля округлены до центов; результат неизменяемый,
// каждый пересчет возвращает новое значение
type ForecastResult struct {
	WeeklyTours        float64 `json:"weekly_tours"` // Не округляется
	WeeklyLoads        int     `json:"weekly_loads"`
	TourPay            float64 `json:"tour_pay"`
	AccessorialPay     float64 `json:"accessorial_pay"`
	WeeklyRevenue      float64 `json:"weekly_revenue"`
	LaborCost          float64 `json:"labor_cost"`
	PayrollTax         float64 `json:"payroll_tax"`
	WorkersComp        float64 `json:"workers_comp"`
	Overhead           float64 `json:"overhead"`
	WeeklyCost         float64 `json:"weekly_cost"`
	WeeklyProfit       float64 `json:"weekly_profit"` // Может быть отрицательной
	ContributionMargin float64 `json:"contribution_margin"` // На машину за ночь
}

// ScalingRow строка таблицы масштабирования: прогноз для конкретного числа машин
type ScalingRow struct {
	Trucks int `json:"trucks"`
	ForecastResult
}

// Variance сравнение факта с прогнозом по партии
type Variance struct {
	Variance        float64 `json:"variance"`         // actual − projected, со знаком
	VariancePercent float64 `json:"variance_percent"` // Проценты, 12.5 означает 12.5%
	Accuracy        float64 `json:"accuracy"`         // 0–100, 100 = точное попадание
}

// ValidationError ошибка валидации допущений, называет проблемное поле
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DefaultScalingTruckCounts набор количеств машин для таблицы масштабирования по умолчанию
var DefaultScalingTruckCounts = []int{2, 4, 6, 8, 10}

// RoundMoney округляет до центов (половина — от нуля)
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// Validate проверяет все ограничения допущений разом
// При любом нарушении весь ввод отклоняется до начала расчета
func (in *ForecastInput) Validate() error {
	if in.TruckCount < 0 {
		return &ValidationError{Field: "truck_count", Message: "must be >= 0"}
	}
	if in.NightsPerWeek < 0 {
		return &ValidationError{Field: "nights_per_week", Message: "must be >= 0"}
	}
	if in.ToursPerTruck < 0 {
		return &ValidationError{Field: "tours_per_truck", Message: "must be >= 0"}
	}
	if in.AvgLoadsPerTour < 0 {
		return &ValidationError{Field: "avg_loads_per_tour", Message: "must be >= 0"}
	}
	if in.DTRRate < 0 {
		return &ValidationError{Field: "dtr_rate", Message: "must be >= 0"}
	}
	if in.AvgAccessorialRate < 0 {
		return &ValidationError{Field: "avg_accessorial_rate", Message: "must be >= 0"}
	}
	if in.HourlyWage < 0 {
		return &ValidationError{Field: "hourly_wage", Message: "must be >= 0"}
	}
	if in.HoursPerNight < 0 {
		return &ValidationError{Field: "hours_per_night", Message: "must be >= 0"}
	}
	if in.OvertimeMultiplier < 1 {
		return &ValidationError{Field: "overtime_multiplier", Message: "must be >= 1"}
	}
	if in.PayrollTaxRate < 0 || in.PayrollTaxRate > 1 {
		return &ValidationError{Field: "payroll_tax_rate", Message: "must be within [0,1]"}
	}
	if in.WorkersCompRate < 0 || in.WorkersCompRate > 1 {
		return &ValidationError{Field: "workers_comp_rate", Message: "must be within [0,1]"}
	}
	if in.WeeklyOverhead < 0 {
		return &ValidationError{Field: "weekly_overhead", Message: "must be >= 0"}
	}
	return nil
}

// CalculateForecast рассчитывает недельный прогноз выручки/затрат/прибыли
// Чистая детерминированная функция: без I/O и скрытого состояния,
// одинаковый ввод дает побитово одинаковый результат
func CalculateForecast(in ForecastInput) (*ForecastResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// Выручка
	weeklyTours := float64(in.TruckCount) * float64(in.NightsPerWeek) * in.ToursPerTruck
	weeklyLoads := int(math.Round(weeklyTours * in.AvgLoadsPerTour))
	tourPay := weeklyTours * in.DTRRate
	accessorialPay := float64(weeklyLoads) * in.AvgAccessorialRate
	weeklyRevenue := tourPay + accessorialPay

	// ФОТ: цикл по машинам, а не умножение — точка расширения
	// для индивидуальных часов по машинам; не сворачивать в формулу
	laborCost := 0.0
	for truck := 0; truck < in.TruckCount; truck++ {
		driverHours := float64(in.NightsPerWeek) * in.HoursPerNight
		if in.IncludeOvertime && driverHours > 40 {
			regularPay := 40 * in.HourlyWage
			overtimePay := (driverHours - 40) * in.HourlyWage * in.OvertimeMultiplier
			laborCost += regularPay + overtimePay
		} else {
			laborCost += driverHours * in.HourlyWage
		}
	}

	payrollTax := laborCost * in.PayrollTaxRate
	workersComp := laborCost * in.WorkersCompRate
	weeklyCost := laborCost + payrollTax + workersComp + in.WeeklyOverhead
	weeklyProfit := weeklyRevenue - weeklyCost // Без пола: может уйти в минус

	// Маржа на машину за ночь; при нулевом знаменателе возвращаем 0, не ошибку
	contributionMargin := 0.0
	if in.TruckCount > 0 && in.NightsPerWeek > 0 {
		contributionMargin = weeklyProfit / float64(in.TruckCount) / float64(in.NightsPerWeek)
	}

	// Округление только на выходе, промежуточные значения не трогаем
	return &ForecastResult{
		WeeklyTours:        weeklyTours,
		WeeklyLoads:        weeklyLoads,
		TourPay:            RoundMoney(tourPay),
		AccessorialPay:     RoundMoney(accessorialPay),
		WeeklyRevenue:      RoundMoney(weeklyRevenue),
		LaborCost:          RoundMoney(laborCost),
		PayrollTax:         RoundMoney(payrollTax),
		WorkersComp:        RoundMoney(workersComp),
		Overhead:           RoundMoney(in.WeeklyOverhead),
		WeeklyCost:         RoundMoney(weeklyCost),
		WeeklyProfit:       RoundMoney(weeklyProfit),
		ContributionMargin: RoundMoney(contributionMargin),
	}, nil
}

// GenerateScalingTable строит таблицу "что если машин будет N"
// Порядок строк повторяет порядок truckCounts, дубликаты считаются повторно
func GenerateScalingTable(base ForecastInput, truckCounts []int) ([]ScalingRow, error) {
	if len(truckCounts) == 0 {
		truckCounts = DefaultScalingTruckCounts
	}

	rows := make([]ScalingRow, 0, len(truckCounts))
	for _, trucks := range truckCounts {
		input := base
		input.TruckCount = trucks
		result, err := CalculateForecast(input)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ScalingRow{Trucks: trucks, ForecastResult: *result})
	}
	return rows, nil
}

// ComputeVariance сравнивает факт с прогнозом
// Возвращает nil, пока накладная не загружена: "нет данных" — это не нулевое отклонение
func ComputeVariance(projected float64, actual *float64) *Variance {
	if actual == nil {
		return nil
	}

	variance := *actual - projected

	// Защита от деления на ноль: при нулевом прогнозе процент равен 0
	variancePercent := 0.0
	if projected > 0 {
		variancePercent = variance / projected * 100
	}

	// Точность зажата в [0,100]: большой промах дает пол, а не отрицательное значение
	accuracy := 100 - math.Abs(variancePercent)
	if accuracy < 0 {
		accuracy = 0
	}
	if accuracy > 100 {
		accuracy = 100
	}

	// До центов округляется только денежное отклонение;
	// проценты отдаются как есть, форматирование — забота отображения
	return &Variance{
		Variance:        RoundMoney(variance),
		VariancePercent: variancePercent,
		Accuracy:        accuracy,
	}
}
