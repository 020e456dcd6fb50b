package api

import (
	"fmt"
	"net/http"

	"fleetbooks/server/internal/services"

	"github.com/gin-gonic/gin"
)

// ReportController управляет API endpoints отчетов
type ReportController struct {
	service *services.ReportService
}

// NewReportController создает новый контроллер отчетов
func NewReportController(service *services.ReportService) *ReportController {
	return &ReportController{
		service: service,
	}
}

// GetPnL возвращает P&L отчет за период
// GET /api/v1/reports/pnl?from=YYYY-MM-DD&to=YYYY-MM-DD
func (rc *ReportController) GetPnL(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}

	report, err := rc.service.BuildPnL(from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка построения отчета",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportPnL выгружает P&L отчет в xlsx
// GET /api/v1/reports/pnl/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (rc *ReportController) ExportPnL(c *gin.Context) {
	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}

	report, err := rc.service.BuildPnL(from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка построения отчета",
			"details": err.Error(),
		})
		return
	}

	file, err := rc.service.ExportPnLExcel(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Ошибка формирования файла",
			"details": err.Error(),
		})
		return
	}

	filename := fmt.Sprintf("pnl_%s_%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := file.Write(c.Writer); err != nil {
		// Заголовки уже ушли клиенту, остается только залогировать
		c.Error(err)
	}
}
