package services

import (
	"fmt"
	"log"
	"time"

	"fleetbooks/server/internal/models"

	"gorm.io/gorm"
)

// BatchService управляет партиями рейсов: создание, загрузка рейсов,
// сопоставление settlement-накладных и пересчет статусов
type BatchService struct {
	db *gorm.DB
}

// NewBatchService создает новый сервис партий
func NewBatchService(db *gorm.DB) *BatchService {
	return &BatchService{db: db}
}

// TripImportRow строка загрузки рейсов (из расписания диспетчерской)
type TripImportRow struct {
	ServiceDate time.Time `json:"service_date" binding:"required"`
	TruckLabel  string    `json:"truck_label"`
	Loads       int       `json:"loads"`
}

// SettlementImport данные settlement-накладной для сопоставления с партией
type SettlementImport struct {
	Number      string    `json:"number" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
	TotalAmount float64   `json:"total_amount" binding:"required"`
	Notes       string    `json:"notes"`
}

// CreateBatch создает новую партию рейсов
func (bs *BatchService) CreateBatch(batch *models.TripBatch) error {
	if bs.db == nil {
		return fmt.Errorf("database connection not available")
	}
	if batch.Name == "" {
		return fmt.Errorf("batch name is required")
	}

	if err := bs.db.Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	log.Printf("✅ Партия создана: %s (%s)", batch.Name, batch.ID)
	return nil
}

// GetBatches возвращает все партии, новые первыми
// Статус каждой партии пересчитывается на момент запроса
func (bs *BatchService) GetBatches() ([]models.TripBatch, error) {
	var batches []models.TripBatch
	err := bs.db.Preload("Trips").
		Order("created_at DESC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batches: %w", err)
	}

	now := time.Now()
	for i := range batches {
		bs.applyDerivedStatus(&batches[i], now)
	}
	return batches, nil
}

// GetBatchByID возвращает партию со всеми связями
func (bs *BatchService) GetBatchByID(batchID string) (*models.TripBatch, error) {
	var batch models.TripBatch
	err := bs.db.Preload("Trips", func(db *gorm.DB) *gorm.DB {
		return db.Order("service_date ASC")
	}).
		Preload("Settlement").
		Preload("Snapshot").
		First(&batch, "id = ?", batchID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("batch not found")
		}
		return nil, fmt.Errorf("failed to fetch batch: %w", err)
	}

	bs.applyDerivedStatus(&batch, time.Now())
	return &batch, nil
}

// buildBatchUpdates собирает изменяемые поля партии
// nil означает "поле не передано"; пустое описание допустимо и очищает поле,
// пустое название — нет
func buildBatchUpdates(name, description *string) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if name != nil {
		if *name == "" {
			return nil, fmt.Errorf("batch name cannot be empty")
		}
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	return updates, nil
}

// UpdateBatch обновляет название и описание партии
// Статус руками не меняется, он всегда вычисляется
func (bs *BatchService) UpdateBatch(batchID string, name, description *string) (*models.TripBatch, error) {
	batch, err := bs.GetBatchByID(batchID)
	if err != nil {
		return nil, err
	}

	updates, err := buildBatchUpdates(name, description)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := bs.db.Model(batch).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update batch: %w", err)
		}
	}
	return batch, nil
}

// DeleteBatch удаляет партию (soft delete) вместе с рейсами
func (bs *BatchService) DeleteBatch(batchID string) error {
	return bs.db.Transaction(func(tx *gorm.DB) error {
		var batch models.TripBatch
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("batch not found")
			}
			return fmt.Errorf("failed to fetch batch: %w", err)
		}

		if err := tx.Where("batch_id = ?", batchID).Delete(&models.Trip{}).Error; err != nil {
			return fmt.Errorf("failed to delete batch trips: %w", err)
		}
		if err := tx.Delete(&batch).Error; err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}

		log.Printf("🗑️ Партия удалена: %s (%s)", batch.Name, batch.ID)
		return nil
	})
}

// ImportTrips загружает рейсы в партию одной транзакцией
// Повторная загрузка заменяет прежний список рейсов целиком
func (bs *BatchService) ImportTrips(batchID string, rows []TripImportRow) (*models.TripBatch, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no trips to import")
	}
	for i, row := range rows {
		if row.ServiceDate.IsZero() {
			return nil, fmt.Errorf("trip %d: service_date is required", i+1)
		}
		if row.Loads < 0 {
			return nil, fmt.Errorf("trip %d: loads must be >= 0", i+1)
		}
	}

	err := bs.db.Transaction(func(tx *gorm.DB) error {
		var batch models.TripBatch
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("batch not found")
			}
			return fmt.Errorf("failed to fetch batch: %w", err)
		}
		if batch.IsInvoiced() {
			return fmt.Errorf("batch already invoiced, trips are frozen")
		}

		// Жесткое удаление старых рейсов: повторная загрузка — это замена
		if err := tx.Unscoped().Where("batch_id = ?", batchID).Delete(&models.Trip{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous trips: %w", err)
		}

		trips := make([]models.Trip, 0, len(rows))
		for _, row := range rows {
			trips = append(trips, models.Trip{
				BatchID:     batchID,
				ServiceDate: row.ServiceDate,
				TruckLabel:  row.TruckLabel,
				Loads:       row.Loads,
			})
		}
		if err := tx.Create(&trips).Error; err != nil {
			return fmt.Errorf("failed to create trips: %w", err)
		}

		now := time.Now()
		status := models.ResolveBatchStatus(batch.InvoiceImportedAt, trips, now)
		updates := map[string]interface{}{
			"trips_imported_at": now,
			"status":            status,
		}
		if err := tx.Model(&batch).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update batch after import: %w", err)
		}

		log.Printf("📦 Загружено рейсов: %d в партию %s, статус %s", len(trips), batch.Name, status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bs.GetBatchByID(batchID)
}

// ImportSettlement сопоставляет settlement-накладную с партией
// Партия переходит в INVOICED, а выплата попадает в книгу учета доходом
func (bs *BatchService) ImportSettlement(batchID string, imp SettlementImport) (*models.TripBatch, error) {
	if imp.TotalAmount < 0 {
		return nil, fmt.Errorf("total_amount must be >= 0")
	}
	if imp.PeriodEnd.Before(imp.PeriodStart) {
		return nil, fmt.Errorf("period_end must not be before period_start")
	}

	err := bs.db.Transaction(func(tx *gorm.DB) error {
		var batch models.TripBatch
		if err := tx.First(&batch, "id = ?", batchID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("batch not found")
			}
			return fmt.Errorf("failed to fetch batch: %w", err)
		}

		now := time.Now()
		invoice := &models.SettlementInvoice{
			BatchID:     batchID,
			Number:      imp.Number,
			PeriodStart: imp.PeriodStart,
			PeriodEnd:   imp.PeriodEnd,
			TotalAmount: RoundMoney(imp.TotalAmount),
			ImportedAt:  now,
			Notes:       imp.Notes,
		}

		// UPSERT: повторная загрузка накладной обновляет существующую
		result := tx.Where("batch_id = ?", batchID).
			Assign(*invoice).
			FirstOrCreate(invoice)
		if result.Error != nil {
			return fmt.Errorf("failed to save settlement invoice: %w", result.Error)
		}

		actual := invoice.TotalAmount
		updates := map[string]interface{}{
			"invoice_imported_at": now,
			"actual_revenue":      actual,
			"status":              models.BatchStatusInvoiced,
		}
		if err := tx.Model(&batch).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update batch after settlement: %w", err)
		}

		// Выплата по накладной — доход в книге учета
		if err := bs.createIncomeFromSettlement(tx, &batch, invoice); err != nil {
			return err
		}

		log.Printf("💰 Накладная %s сопоставлена с партией %s: %.2f", invoice.Number, batch.Name, actual)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bs.GetBatchByID(batchID)
}

// createIncomeFromSettlement создает доходную операцию из накладной
// Повторная загрузка той же накладной обновляет сумму, а не дублирует доход
func (bs *BatchService) createIncomeFromSettlement(tx *gorm.DB, batch *models.TripBatch, invoice *models.SettlementInvoice) error {
	transaction := &models.FinanceTransaction{
		Date:         invoice.ImportedAt,
		Type:         models.TransactionTypeIncome,
		Category:     models.CategoryLinehaul,
		Amount:       invoice.TotalAmount,
		Description:  fmt.Sprintf("Выплата по накладной %s (%s)", invoice.Number, batch.Name),
		Source:       models.TransactionSourceBank,
		Status:       models.TransactionStatusCompleted,
		Counterparty: "Заказчик",
		BatchID:      &batch.ID,
		PerformedBy:  "settlement-import",
	}

	result := tx.Where("batch_id = ? AND type = ? AND category = ?",
		batch.ID, models.TransactionTypeIncome, models.CategoryLinehaul).
		Assign(map[string]interface{}{
			"amount":      invoice.TotalAmount,
			"date":        invoice.ImportedAt,
			"description": transaction.Description,
		}).
		FirstOrCreate(transaction)
	if result.Error != nil {
		return fmt.Errorf("failed to record settlement income: %w", result.Error)
	}
	return nil
}

// MarkTripCompleted отмечает рейс выполненным (событие от диспетчерской)
// Возвращает партию рейса с пересчитанным статусом
func (bs *BatchService) MarkTripCompleted(tripID string, completedAt time.Time) (*models.TripBatch, error) {
	var trip models.Trip
	if err := bs.db.First(&trip, "id = ?", tripID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("trip not found")
		}
		return nil, fmt.Errorf("failed to fetch trip: %w", err)
	}

	if trip.Completed {
		// Повторное событие, ничего не меняем
		return bs.GetBatchByID(trip.BatchID)
	}

	updates := map[string]interface{}{
		"completed":    true,
		"completed_at": completedAt,
	}
	if err := bs.db.Model(&trip).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to mark trip completed: %w", err)
	}

	log.Printf("✅ Рейс %s (%s) отмечен выполненным", trip.ID, trip.TruckLabel)
	return bs.GetBatchByID(trip.BatchID)
}

// GetVariance возвращает отклонение факта от прогноза по партии
// nil без ошибки означает, что накладная еще не загружена
func (bs *BatchService) GetVariance(batchID string) (*Variance, *models.TripBatch, error) {
	batch, err := bs.GetBatchByID(batchID)
	if err != nil {
		return nil, nil, err
	}

	projected := 0.0
	if batch.Snapshot != nil {
		projected = batch.Snapshot.WeeklyRevenue
	} else if batch.ProjectedRevenue != nil {
		projected = *batch.ProjectedRevenue
	}

	return ComputeVariance(projected, batch.ActualRevenue), batch, nil
}

// RefreshBatchStatuses пересчитывает кэш статусов всех партий
// Вызывается тикером: статусы UPCOMING/IN_PROGRESS/COMPLETED меняются со временем сами
func (bs *BatchService) RefreshBatchStatuses() (int, error) {
	var batches []models.TripBatch
	if err := bs.db.Preload("Trips").Find(&batches).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch batches for refresh: %w", err)
	}

	now := time.Now()
	changed := 0
	for i := range batches {
		batch := &batches[i]
		status := models.ResolveBatchStatus(batch.InvoiceImportedAt, batch.Trips, now)
		if status == batch.Status {
			continue
		}
		if err := bs.db.Model(batch).Update("status", status).Error; err != nil {
			log.Printf("⚠️ Не удалось обновить статус партии %s: %v", batch.ID, err)
			continue
		}
		log.Printf("🔄 Статус партии %s: %s -> %s", batch.Name, batch.Status, status)
		batch.Status = status
		changed++
	}
	return changed, nil
}

// applyDerivedStatus пересчитывает статус на партии и обновляет кэш в БД при расхождении
func (bs *BatchService) applyDerivedStatus(batch *models.TripBatch, now time.Time) {
	status := models.ResolveBatchStatus(batch.InvoiceImportedAt, batch.Trips, now)
	if status != batch.Status {
		if err := bs.db.Model(batch).Update("status", status).Error; err != nil {
			log.Printf("⚠️ Не удалось обновить кэш статуса партии %s: %v", batch.ID, err)
		}
		batch.Status = status
	}
}
