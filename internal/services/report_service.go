package services

import (
	"fmt"
	"time"

	"fleetbooks/server/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportService строит P&L отчеты по книге учета и партиям рейсов
type ReportService struct {
	db             *gorm.DB
	financeService *FinanceService
	batchService   *BatchService
}

// NewReportService создает новый сервис отчетов
func NewReportService(db *gorm.DB, financeService *FinanceService, batchService *BatchService) *ReportService {
	return &ReportService{
		db:             db,
		financeService: financeService,
		batchService:   batchService,
	}
}

// PnLBatchLine строка отчета по партии: прогноз против факта
type PnLBatchLine struct {
	BatchID          string             `json:"batch_id"`
	Name             string             `json:"name"`
	Status           models.BatchStatus `json:"status"`
	ProjectedRevenue *float64           `json:"projected_revenue"`
	ActualRevenue    *float64           `json:"actual_revenue"`
	Variance         *Variance          `json:"variance"` // nil пока нет накладной
}

// PnLReport отчет о прибылях и убытках за период
type PnLReport struct {
	PeriodStart  time.Time         `json:"period_start"`
	PeriodEnd    time.Time         `json:"period_end"`
	Income       []CategorySummary `json:"income"`
	Expenses     []CategorySummary `json:"expenses"`
	TotalIncome  float64           `json:"total_income"`
	TotalExpense float64           `json:"total_expense"`
	NetProfit    float64           `json:"net_profit"`
	Batches      []PnLBatchLine    `json:"batches"`
}

// BuildPnL собирает P&L за период: категории из книги учета
// плюс построчно партии, чье окно пересекается с периодом
func (rs *ReportService) BuildPnL(from, to time.Time) (*PnLReport, error) {
	summary, err := rs.financeService.GetSummary(from, to)
	if err != nil {
		return nil, err
	}

	report := &PnLReport{
		PeriodStart:  from,
		PeriodEnd:    to,
		TotalIncome:  summary.TotalIncome,
		TotalExpense: summary.TotalExpense,
		NetProfit:    RoundMoney(summary.TotalIncome - summary.TotalExpense),
	}
	for _, c := range summary.Categories {
		switch models.TransactionType(c.Type) {
		case models.TransactionTypeIncome:
			report.Income = append(report.Income, c)
		case models.TransactionTypeExpense:
			report.Expenses = append(report.Expenses, c)
		}
	}

	batches, err := rs.batchesInPeriod(from, to)
	if err != nil {
		return nil, err
	}
	for i := range batches {
		batch := &batches[i]
		projected := 0.0
		if batch.Snapshot != nil {
			projected = batch.Snapshot.WeeklyRevenue
		} else if batch.ProjectedRevenue != nil {
			projected = *batch.ProjectedRevenue
		}
		report.Batches = append(report.Batches, PnLBatchLine{
			BatchID:          batch.ID,
			Name:             batch.Name,
			Status:           batch.Status,
			ProjectedRevenue: batch.ProjectedRevenue,
			ActualRevenue:    batch.ActualRevenue,
			Variance:         ComputeVariance(projected, batch.ActualRevenue),
		})
	}

	return report, nil
}

// batchesInPeriod возвращает партии, у которых хотя бы один рейс попадает в период
func (rs *ReportService) batchesInPeriod(from, to time.Time) ([]models.TripBatch, error) {
	var batchIDs []string
	err := rs.db.Model(&models.Trip{}).
		Where("service_date >= ? AND service_date <= ?", from, to).
		Distinct("batch_id").
		Pluck("batch_id", &batchIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find batches in period: %w", err)
	}
	if len(batchIDs) == 0 {
		return nil, nil
	}

	var batches []models.TripBatch
	err = rs.db.Preload("Trips").
		Preload("Snapshot").
		Where("id IN ?", batchIDs).
		Order("created_at ASC").
		Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch period batches: %w", err)
	}

	now := time.Now()
	for i := range batches {
		batches[i].Status = models.ResolveBatchStatus(batches[i].InvoiceImportedAt, batches[i].Trips, now)
	}
	return batches, nil
}

// ExportPnLExcel выгружает P&L отчет в xlsx для бухгалтера
func (rs *ReportService) ExportPnLExcel(report *PnLReport) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "P&L"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{
		NumFmt: 2, // 0.00
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Отчет о прибылях и убытках")
	f.SetCellValue(sheet, "A2", fmt.Sprintf("Период: %s — %s",
		report.PeriodStart.Format("2006-01-02"), report.PeriodEnd.Format("2006-01-02")))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	row := 4
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Доходы")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), headerStyle)
	row++
	for _, c := range report.Income {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), c.Category)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), c.Total)
		f.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), moneyStyle)
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Итого доходы")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.TotalIncome)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	row += 2

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Расходы")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), headerStyle)
	row++
	for _, c := range report.Expenses {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), c.Category)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), c.Total)
		f.SetCellStyle(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), moneyStyle)
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Итого расходы")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.TotalExpense)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	row += 2

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Чистая прибыль")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), report.NetProfit)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	row += 2

	// Партии: прогноз против факта
	if len(report.Batches) > 0 {
		headers := []string{"Партия", "Статус", "Прогноз", "Факт", "Отклонение", "Точность %"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		row++

		for _, line := range report.Batches {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.Name)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), string(line.Status))
			if line.ProjectedRevenue != nil {
				f.SetCellValue(sheet, fmt.Sprintf("C%d", row), *line.ProjectedRevenue)
			}
			if line.ActualRevenue != nil {
				f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *line.ActualRevenue)
			}
			if line.Variance != nil {
				f.SetCellValue(sheet, fmt.Sprintf("E%d", row), line.Variance.Variance)
				f.SetCellValue(sheet, fmt.Sprintf("F%d", row), line.Variance.Accuracy)
			}
			f.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("F%d", row), moneyStyle)
			row++
		}
	}

	f.SetColWidth(sheet, "A", "A", 32)
	f.SetColWidth(sheet, "B", "F", 16)

	return f, nil
}
