package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BatchStatus представляет статус партии рейсов
// Статус вычисляемый: источник истины — ResolveBatchStatus, колонка в БД только кэш
type BatchStatus string

const (
	BatchStatusEmpty      BatchStatus = "EMPTY"       // Партия создана, рейсы не загружены
	BatchStatusUpcoming   BatchStatus = "UPCOMING"    // Все рейсы в будущем
	BatchStatusInProgress BatchStatus = "IN_PROGRESS" // Окно партии включает текущий момент
	BatchStatusCompleted  BatchStatus = "COMPLETED"   // Все рейсы прошли
	BatchStatusInvoiced   BatchStatus = "INVOICED"    // Получена и сопоставлена settlement-накладная
)

// TripBatch представляет именованную партию рейсов за период
type TripBatch struct {
	ID          string      `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string      `json:"name" gorm:"type:varchar(255);not null"`
	Description string      `json:"description" gorm:"type:text"`
	Status      BatchStatus `json:"status" gorm:"type:varchar(20);default:'EMPTY';index"` // Кэш вычисляемого статуса

	TripsImportedAt   *time.Time `json:"trips_imported_at"`   // Когда загружены рейсы
	InvoiceImportedAt *time.Time `json:"invoice_imported_at"` // Когда загружена settlement-накладная

	// Итоги для быстрого доступа с дашборда (прогноз и факт выручки)
	ProjectedRevenue *float64 `json:"projected_revenue" gorm:"type:decimal(15,2)"`
	ActualRevenue    *float64 `json:"actual_revenue" gorm:"type:decimal(15,2)"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Связи
	Trips      []Trip              `gorm:"foreignKey:BatchID" json:"trips,omitempty"`
	Settlement *SettlementInvoice  `gorm:"foreignKey:BatchID" json:"settlement,omitempty"`
	Snapshot   *ForecastSnapshot   `gorm:"foreignKey:BatchID" json:"snapshot,omitempty"`
}

// TableName указывает имя таблицы
func (TripBatch) TableName() string {
	return "trip_batches"
}

// BeforeCreate генерирует UUID
func (b *TripBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.Status == "" {
		b.Status = BatchStatusEmpty
	}
	return nil
}

// IsInvoiced проверяет, сопоставлена ли накладная
func (b *TripBatch) IsInvoiced() bool {
	return b.InvoiceImportedAt != nil
}

// Trip представляет один запланированный тур в партии
type Trip struct {
	ID          string     `json:"id" gorm:"type:uuid;primaryKey"`
	BatchID     string     `json:"batch_id" gorm:"type:uuid;not null;index"`
	ServiceDate time.Time  `json:"service_date" gorm:"not null;index"` // Ночь, на которую запланирован тур
	TruckLabel  string     `json:"truck_label" gorm:"type:varchar(100)"` // Номер/позывной машины
	Loads       int        `json:"loads" gorm:"not null;default:0"` // Количество лоадов (точек) в туре
	Completed   bool       `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (Trip) TableName() string {
	return "trips"
}

// BeforeCreate генерирует UUID
func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// IsSettled проверяет, закрыт ли рейс: отмечен выполненным
// или его окно (сутки после плановой даты) прошло
func (t *Trip) IsSettled(now time.Time) bool {
	if t.Completed {
		return true
	}
	return now.After(t.ServiceDate.AddDate(0, 0, 1))
}

// ResolveBatchStatus вычисляет статус партии из ее полей
// Правила проверяются по приоритету, побеждает первое совпадение:
//  1. накладная загружена и сопоставлена -> INVOICED
//  2. рейсов нет -> EMPTY
//  3. все рейсы строго в будущем -> UPCOMING
//  4. все рейсы на/до текущего момента и все закрыты -> COMPLETED
//  5. иначе -> IN_PROGRESS
func ResolveBatchStatus(invoiceImportedAt *time.Time, trips []Trip, now time.Time) BatchStatus {
	if invoiceImportedAt != nil {
		return BatchStatusInvoiced
	}
	if len(trips) == 0 {
		return BatchStatusEmpty
	}

	allFuture := true
	allPastAndSettled := true
	for i := range trips {
		t := &trips[i]
		if !t.ServiceDate.After(now) {
			allFuture = false
		}
		if t.ServiceDate.After(now) || !t.IsSettled(now) {
			allPastAndSettled = false
		}
	}

	if allFuture {
		return BatchStatusUpcoming
	}
	if allPastAndSettled {
		return BatchStatusCompleted
	}
	return BatchStatusInProgress
}
