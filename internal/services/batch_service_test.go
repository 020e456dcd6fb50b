package services

import "testing"

func strPtr(s string) *string {
	return &s
}

func TestBuildBatchUpdates(t *testing.T) {
	// Поля не переданы: обновлять нечего
	updates, err := buildBatchUpdates(nil, nil)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("без полей ожидалась пустая карта, получили %+v", updates)
	}

	// Обновление названия
	updates, err = buildBatchUpdates(strPtr("Неделя 34"), nil)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if updates["name"] != "Неделя 34" {
		t.Errorf("name = %v, ожидалось 'Неделя 34'", updates["name"])
	}

	// Пустое название отклоняется
	if _, err := buildBatchUpdates(strPtr(""), nil); err == nil {
		t.Error("пустое название должно отклоняться")
	}

	// Пустое описание допустимо: именно так поле очищается
	updates, err = buildBatchUpdates(nil, strPtr(""))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if v, ok := updates["description"]; !ok || v != "" {
		t.Errorf("пустое описание должно попадать в обновление, получили %+v", updates)
	}

	// Непустое описание
	updates, err = buildBatchUpdates(nil, strPtr("партия на 12 рейсов"))
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if updates["description"] != "партия на 12 рейсов" {
		t.Errorf("description = %v", updates["description"])
	}
}
