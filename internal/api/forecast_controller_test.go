package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fleetbooks/server/internal/services"

	"github.com/gin-gonic/gin"
)

// Пока прогноз ни разу не считался, кэш пуст и endpoint отвечает 404
func TestGetLastForecastEmptyCache(t *testing.T) {
	gin.SetMode(gin.TestMode)

	forecastService := services.NewForecastService(nil, nil, services.ForecastInput{})
	controller := NewForecastController(forecastService)

	r := gin.New()
	r.GET("/api/v1/forecast/last", controller.GetLastForecast)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/forecast/last", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("код ответа = %d, ожидалось %d", w.Code, http.StatusNotFound)
	}
}
