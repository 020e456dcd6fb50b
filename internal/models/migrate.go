package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate создает таблицы в БД
func AutoMigrate(db *gorm.DB) error {
	// Порядок важен: партии до рейсов и накладных (foreign key)
	if err := db.AutoMigrate(&TripBatch{}); err != nil {
		log.Printf("❌ AutoMigrate для TripBatch failed: %v", err)
		return err
	}

	if err := db.AutoMigrate(
		&Trip{},
		&SettlementInvoice{},
		&ForecastSnapshot{},
		&FinanceTransaction{},
	); err != nil {
		log.Printf("❌ AutoMigrate для таблиц учета failed: %v", err)
		return err
	}

	if err := db.AutoMigrate(&ForecastSettings{}); err != nil {
		log.Printf("❌ AutoMigrate для ForecastSettings failed: %v", err)
		return err
	}
	log.Println("✅ Таблицы учета и прогноза мигрированы")

	return nil
}
