package services

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// Базовый набор допущений: 4 машины, 5 ночей, смены по 10 часов (переработка)
func validInput() ForecastInput {
	return ForecastInput{
		TruckCount:         4,
		NightsPerWeek:      5,
		ToursPerTruck:      1,
		AvgLoadsPerTour:    6.5,
		DTRRate:            452.09,
		AvgAccessorialRate: 34.12,
		HourlyWage:         28,
		HoursPerNight:      10,
		IncludeOvertime:    true,
		OvertimeMultiplier: 1.5,
		PayrollTaxRate:     0.0765,
		WorkersCompRate:    0.03,
		WeeklyOverhead:     500,
	}
}

func assertMoney(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, ожидалось %v", name, got, want)
	}
}

func TestCalculateForecastExample(t *testing.T) {
	result, err := CalculateForecast(validInput())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	assertMoney(t, "WeeklyTours", result.WeeklyTours, 20)
	if result.WeeklyLoads != 130 {
		t.Errorf("WeeklyLoads = %d, ожидалось 130", result.WeeklyLoads)
	}
	assertMoney(t, "TourPay", result.TourPay, 9041.80)
	assertMoney(t, "AccessorialPay", result.AccessorialPay, 4435.60)
	assertMoney(t, "WeeklyRevenue", result.WeeklyRevenue, 13477.40)

	// 50 часов в неделю на водителя: 40 по ставке + 10 с коэффициентом 1.5
	assertMoney(t, "LaborCost", result.LaborCost, 6160)
	assertMoney(t, "PayrollTax", result.PayrollTax, 471.24)
	assertMoney(t, "WorkersComp", result.WorkersComp, 184.80)
	assertMoney(t, "Overhead", result.Overhead, 500)
	assertMoney(t, "WeeklyCost", result.WeeklyCost, 7316.04)
	assertMoney(t, "WeeklyProfit", result.WeeklyProfit, 6161.36)
	assertMoney(t, "ContributionMargin", result.ContributionMargin, 308.07)

	// Внутренняя согласованность: прибыль равна выручке минус затраты
	assertMoney(t, "WeeklyProfit (identity)", result.WeeklyProfit,
		RoundMoney(result.WeeklyRevenue-result.WeeklyCost))
}

func TestCalculateForecastDeterminism(t *testing.T) {
	first, err := CalculateForecast(validInput())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	second, err := CalculateForecast(validInput())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("повторный вызов с тем же вводом дал другой результат: %+v != %+v", first, second)
	}
}

func TestCalculateForecastZeroTrucks(t *testing.T) {
	input := validInput()
	input.TruckCount = 0

	result, err := CalculateForecast(input)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	assertMoney(t, "WeeklyRevenue", result.WeeklyRevenue, 0)
	assertMoney(t, "LaborCost", result.LaborCost, 0)
	// Накладные расходы списываются всегда, даже без машин
	assertMoney(t, "WeeklyCost", result.WeeklyCost, 500)
	assertMoney(t, "WeeklyProfit", result.WeeklyProfit, -500)
	assertMoney(t, "ContributionMargin", result.ContributionMargin, 0)
}

func TestCalculateForecastZeroNights(t *testing.T) {
	input := validInput()
	input.NightsPerWeek = 0

	result, err := CalculateForecast(input)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	assertMoney(t, "WeeklyRevenue", result.WeeklyRevenue, 0)
	assertMoney(t, "WeeklyProfit", result.WeeklyProfit, -500)
	assertMoney(t, "ContributionMargin", result.ContributionMargin, 0)
}

func TestCalculateForecastOvertimeBoundary(t *testing.T) {
	// Ровно 40 часов: переработки нет
	input := validInput()
	input.HoursPerNight = 8 // 5 ночей × 8 часов = 40

	result, err := CalculateForecast(input)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	assertMoney(t, "LaborCost (40 часов)", result.LaborCost, 4*40*28)

	// Чуть больше 40: переработка включается
	input.HoursPerNight = 8.01 // 40.05 часа
	result, err = CalculateForecast(input)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	perTruck := 40*28.0 + 0.05*28*1.5
	assertMoney(t, "LaborCost (40.05 часа)", result.LaborCost, RoundMoney(4*perTruck))

	// Выключенный флаг переработки игнорирует порог
	input.HoursPerNight = 10
	input.IncludeOvertime = false
	result, err = CalculateForecast(input)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	assertMoney(t, "LaborCost (без переработки)", result.LaborCost, 4*50*28)
}

func TestCalculateForecastValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ForecastInput)
		field  string
	}{
		{"отрицательное число машин", func(in *ForecastInput) { in.TruckCount = -1 }, "truck_count"},
		{"отрицательное число ночей", func(in *ForecastInput) { in.NightsPerWeek = -2 }, "nights_per_week"},
		{"отрицательные туры", func(in *ForecastInput) { in.ToursPerTruck = -0.5 }, "tours_per_truck"},
		{"отрицательные лоады", func(in *ForecastInput) { in.AvgLoadsPerTour = -1 }, "avg_loads_per_tour"},
		{"отрицательная ставка DTR", func(in *ForecastInput) { in.DTRRate = -452.09 }, "dtr_rate"},
		{"отрицательная ставка за лоад", func(in *ForecastInput) { in.AvgAccessorialRate = -1 }, "avg_accessorial_rate"},
		{"отрицательная почасовая ставка", func(in *ForecastInput) { in.HourlyWage = -28 }, "hourly_wage"},
		{"отрицательные часы", func(in *ForecastInput) { in.HoursPerNight = -10 }, "hours_per_night"},
		{"коэффициент переработки меньше 1", func(in *ForecastInput) { in.OvertimeMultiplier = 0.5 }, "overtime_multiplier"},
		{"налог на ФОТ больше 1", func(in *ForecastInput) { in.PayrollTaxRate = 1.5 }, "payroll_tax_rate"},
		{"отрицательный налог на ФОТ", func(in *ForecastInput) { in.PayrollTaxRate = -0.01 }, "payroll_tax_rate"},
		{"страховка больше 1", func(in *ForecastInput) { in.WorkersCompRate = 2 }, "workers_comp_rate"},
		{"отрицательные накладные", func(in *ForecastInput) { in.WeeklyOverhead = -500 }, "weekly_overhead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			result, err := CalculateForecast(input)
			if result != nil {
				t.Errorf("при невалидном вводе не должно быть частичного результата, получили %+v", result)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ожидалась ValidationError, получили %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("ошибка указывает на поле %q, ожидалось %q", verr.Field, tt.field)
			}
		})
	}
}

func TestCalculateForecastRounding(t *testing.T) {
	// Неудобные дроби: проверяем, что на выходе не больше двух знаков
	input := validInput()
	input.ToursPerTruck = 1.337
	input.DTRRate = 433.333
	input.AvgAccessorialRate = 33.337
	input.HourlyWage = 27.77

	result, err := CalculateForecast(input)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	currency := map[string]float64{
		"TourPay":            result.TourPay,
		"AccessorialPay":     result.AccessorialPay,
		"WeeklyRevenue":      result.WeeklyRevenue,
		"LaborCost":          result.LaborCost,
		"PayrollTax":         result.PayrollTax,
		"WorkersComp":        result.WorkersComp,
		"Overhead":           result.Overhead,
		"WeeklyCost":         result.WeeklyCost,
		"WeeklyProfit":       result.WeeklyProfit,
		"ContributionMargin": result.ContributionMargin,
	}
	for name, v := range currency {
		cents := v * 100
		if math.Abs(cents-math.Round(cents)) > 1e-6 {
			t.Errorf("%s = %v содержит больше двух знаков после запятой", name, v)
		}
	}
}

func TestRoundMoneyHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		// 0.125 и 1.375 представимы в двоичном виде точно: полцента честно уходит от нуля
		{0.125, 0.13},
		{-0.125, -0.13},
		{1.375, 1.38},
		{-1.375, -1.38},
		{0.004, 0},
		{-0.004, 0},
		{12.34, 12.34},
	}
	for _, tt := range tests {
		if got := RoundMoney(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundMoney(%v) = %v, ожидалось %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateScalingTable(t *testing.T) {
	base := validInput()

	rows, err := GenerateScalingTable(base, nil) // nil -> дефолтный набор
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("ожидалось 5 строк, получили %d", len(rows))
	}

	for i, want := range DefaultScalingTruckCounts {
		if rows[i].Trucks != want {
			t.Errorf("строка %d: trucks = %d, ожидалось %d", i, rows[i].Trucks, want)
		}
		// Каждая строка совпадает с прямым вызовом движка
		direct := base
		direct.TruckCount = want
		expected, err := CalculateForecast(direct)
		if err != nil {
			t.Fatalf("неожиданная ошибка: %v", err)
		}
		if !reflect.DeepEqual(rows[i].ForecastResult, *expected) {
			t.Errorf("строка %d отличается от прямого расчета: %+v != %+v", i, rows[i].ForecastResult, *expected)
		}
	}
}

func TestGenerateScalingTableDuplicates(t *testing.T) {
	// Дубликаты не схлопываются: считаются и возвращаются дважды
	rows, err := GenerateScalingTable(validInput(), []int{4, 4})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ожидалось 2 строки, получили %d", len(rows))
	}
	if rows[0].Trucks != 4 || rows[1].Trucks != 4 {
		t.Errorf("обе строки должны быть для 4 машин: %+v", rows)
	}
	if !reflect.DeepEqual(rows[0], rows[1]) {
		t.Errorf("одинаковый ввод должен давать одинаковые строки")
	}
}

func TestGenerateScalingTableInvalidBase(t *testing.T) {
	base := validInput()
	base.DTRRate = -1

	if _, err := GenerateScalingTable(base, []int{2}); err == nil {
		t.Error("невалидные базовые допущения должны отклоняться")
	}
}

func TestComputeVariance(t *testing.T) {
	actual := func(v float64) *float64 { return &v }

	// Накладной еще нет: возвращаем nil, а не нулевое отклонение
	if v := ComputeVariance(1000, nil); v != nil {
		t.Errorf("без факта ожидался nil, получили %+v", v)
	}

	// Обычный случай: факт выше прогноза на 10%
	v := ComputeVariance(1000, actual(1100))
	if v == nil {
		t.Fatal("ожидался результат")
	}
	assertMoney(t, "Variance", v.Variance, 100)
	assertMoney(t, "VariancePercent", v.VariancePercent, 10)
	assertMoney(t, "Accuracy", v.Accuracy, 90)

	// Нулевой прогноз: процент 0, без деления на ноль
	v = ComputeVariance(0, actual(500))
	if v == nil {
		t.Fatal("ожидался результат")
	}
	assertMoney(t, "Variance", v.Variance, 500)
	assertMoney(t, "VariancePercent", v.VariancePercent, 0)
	if v.Accuracy < 0 || v.Accuracy > 100 {
		t.Errorf("Accuracy = %v вне диапазона [0,100]", v.Accuracy)
	}

	// Сильный промах: точность упирается в пол, не уходит в минус
	v = ComputeVariance(1000, actual(3500))
	if v == nil {
		t.Fatal("ожидался результат")
	}
	assertMoney(t, "Accuracy (пол)", v.Accuracy, 0)

	// Недобор тоже симметрично штрафуется
	v = ComputeVariance(1000, actual(900))
	if v == nil {
		t.Fatal("ожидался результат")
	}
	assertMoney(t, "Variance", v.Variance, -100)
	assertMoney(t, "VariancePercent", v.VariancePercent, -10)
	assertMoney(t, "Accuracy", v.Accuracy, 90)
}

func TestComputeVarianceSmallMiss(t *testing.T) {
	actual := 1000.004

	// Микропромах: до центов округляется только денежное отклонение,
	// проценты не маскируются под идеальное попадание
	v := ComputeVariance(1000, &actual)
	if v == nil {
		t.Fatal("ожидался результат")
	}
	assertMoney(t, "Variance", v.Variance, 0)
	if v.VariancePercent <= 0 {
		t.Errorf("VariancePercent = %v, ожидалось положительное значение", v.VariancePercent)
	}
	if v.Accuracy >= 100 {
		t.Errorf("Accuracy = %v, микропромах не должен давать ровно 100", v.Accuracy)
	}
	if v.Accuracy < 99.99 {
		t.Errorf("Accuracy = %v, промах в 0.004%% почти не штрафуется", v.Accuracy)
	}
}
