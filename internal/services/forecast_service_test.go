package services

import (
	"reflect"
	"testing"
)

// Без Redis сервис деградирует до чистого движка: расчет работает,
// кэш последнего прогноза пуст
func TestForecastServiceWithoutRedis(t *testing.T) {
	fs := NewForecastService(nil, nil, validInput())

	result, err := fs.Calculate(validInput())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	direct, err := CalculateForecast(validInput())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !reflect.DeepEqual(result, direct) {
		t.Errorf("сервис должен отдавать результат движка без изменений: %+v != %+v", result, direct)
	}

	if cached, ok := fs.GetCachedResult(); ok || cached != nil {
		t.Errorf("без Redis кэш должен быть пуст, получили %+v", cached)
	}
}

func TestForecastServiceRejectsInvalidInput(t *testing.T) {
	fs := NewForecastService(nil, nil, validInput())

	input := validInput()
	input.DTRRate = -1
	if _, err := fs.Calculate(input); err == nil {
		t.Error("невалидные допущения должны отклоняться до кэширования")
	}
}
