package models

import (
	"testing"
	"time"
)

func day(offset int) time.Time {
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestResolveBatchStatus(t *testing.T) {
	now := day(0)
	invoiced := day(-1)

	tests := []struct {
		name    string
		invoice *time.Time
		trips   []Trip
		want    BatchStatus
	}{
		{
			name: "без рейсов",
			want: BatchStatusEmpty,
		},
		{
			name:  "все рейсы в будущем",
			trips: []Trip{{ServiceDate: day(1)}, {ServiceDate: day(3)}},
			want:  BatchStatusUpcoming,
		},
		{
			name:  "окно включает сейчас",
			trips: []Trip{{ServiceDate: day(-1), Completed: true}, {ServiceDate: day(2)}},
			want:  BatchStatusInProgress,
		},
		{
			name:  "все рейсы прошли и отмечены",
			trips: []Trip{{ServiceDate: day(-3), Completed: true}, {ServiceDate: day(-2), Completed: true}},
			want:  BatchStatusCompleted,
		},
		{
			name: "рейсы прошли сутки назад без отметки",
			// Окно рейса истекло: считается закрытым даже без отметки
			trips: []Trip{{ServiceDate: day(-2)}, {ServiceDate: day(-3)}},
			want:  BatchStatusCompleted,
		},
		{
			name: "рейс прошел недавно и не отмечен",
			// Сутки после плановой даты еще не истекли
			trips: []Trip{{ServiceDate: day(-1).Add(6 * time.Hour)}},
			want:  BatchStatusInProgress,
		},
		{
			name:    "накладная важнее всего остального",
			invoice: &invoiced,
			trips:   []Trip{{ServiceDate: day(1)}},
			want:    BatchStatusInvoiced,
		},
		{
			name:    "накладная при пустой партии",
			invoice: &invoiced,
			want:    BatchStatusInvoiced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBatchStatus(tt.invoice, tt.trips, now)
			if got != tt.want {
				t.Errorf("ResolveBatchStatus() = %s, ожидалось %s", got, tt.want)
			}
		})
	}
}

func TestTripIsSettled(t *testing.T) {
	now := day(0)

	completed := Trip{ServiceDate: day(1), Completed: true}
	if !completed.IsSettled(now) {
		t.Error("отмеченный рейс всегда закрыт")
	}

	recent := Trip{ServiceDate: day(0).Add(-6 * time.Hour)}
	if recent.IsSettled(now) {
		t.Error("рейс внутри суточного окна еще не закрыт")
	}

	stale := Trip{ServiceDate: day(-2)}
	if !stale.IsSettled(now) {
		t.Error("рейс с истекшим окном считается закрытым")
	}
}
