package main

import (
	"log"
	"net/http"
	_ "net/http/pprof" // Для профилирования памяти
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fleetbooks/server/internal/api"
	"fleetbooks/server/internal/config"
	"fleetbooks/server/internal/database"
	"fleetbooks/server/internal/models"
	"fleetbooks/server/internal/services"
	"fleetbooks/server/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	// Игнорируем ошибку, если файл не найден (для production окружений)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	// Загрузка конфигурации
	cfg := config.Load()

	// Логируем наличие DATABASE_URL (без пароля)
	if cfg.DatabaseURL != "" {
		safeURL := cfg.DatabaseURL
		if idx := strings.Index(safeURL, "@"); idx > 0 {
			if schemeIdx := strings.Index(safeURL, "://"); schemeIdx > 0 {
				safeURL = safeURL[:schemeIdx+3] + "***@" + safeURL[idx+1:]
			}
		}
		log.Printf("📋 DATABASE_URL установлен: %s", safeURL)
	} else {
		log.Printf("⚠️ DATABASE_URL не установлен, используется значение по умолчанию")
	}

	// Подключение к PostgreSQL
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Printf("❌ PostgreSQL connection failed: %v", err)
		log.Printf("⚠️ Продолжаем без БД (только расчет прогнозов)")
		db = nil
	} else {
		defer database.ClosePostgres(db)

		// Выполняем миграции
		if err := models.AutoMigrate(db); err != nil {
			log.Printf("❌ Migration failed: %v", err)
			log.Printf("⚠️ Continuing with limited functionality")
		} else {
			log.Println("✅ Database migrations completed")
		}
	}

	// Подключение к Redis (с поддержкой Sentinel)
	redisClient, err := database.ConnectRedis(
		cfg.RedisURL,
		cfg.RedisSentinelAddrs,
		cfg.RedisMasterName,
	)
	var redisUtil *utils.RedisClient
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
		redisClient = nil
		redisUtil = nil
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
	}
	defer database.CloseRedis(redisClient)

	// Дефолтные допущения прогноза из конфига
	defaults := services.ForecastInput{
		TruckCount:         cfg.DefaultTruckCount,
		NightsPerWeek:      cfg.DefaultNightsPerWeek,
		ToursPerTruck:      cfg.DefaultToursPerTruck,
		AvgLoadsPerTour:    cfg.DefaultLoadsPerTour,
		DTRRate:            cfg.DefaultDTRRate,
		AvgAccessorialRate: cfg.DefaultAccessorialRate,
		HourlyWage:         cfg.DefaultHourlyWage,
		HoursPerNight:      cfg.DefaultHoursPerNight,
		IncludeOvertime:    cfg.DefaultIncludeOT,
		OvertimeMultiplier: cfg.DefaultOTMultiplier,
		PayrollTaxRate:     cfg.DefaultPayrollTaxRate,
		WorkersCompRate:    cfg.DefaultWorkersCompRate,
		WeeklyOverhead:     cfg.DefaultWeeklyOverhead,
	}

	// Инициализация сервиса прогнозирования
	// Движок работает и без БД: настройки тогда берутся из конфига
	forecastService := services.NewForecastService(db, redisUtil, defaults)
	log.Println("✅ Forecast service initialized")

	// Инициализация сервиса партий
	var batchService *services.BatchService
	if db != nil {
		batchService = services.NewBatchService(db)
		log.Println("✅ Batch service initialized")

		// Статусы UPCOMING/IN_PROGRESS/COMPLETED меняются со временем сами,
		// раз в 10 минут актуализируем кэш в БД
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				changed, err := batchService.RefreshBatchStatuses()
				if err != nil {
					log.Printf("⚠️ Ошибка пересчета статусов партий: %v", err)
					continue
				}
				if changed > 0 {
					log.Printf("🔄 Обновлено статусов партий: %d", changed)
					api.BroadcastDashboardUpdate("batch_statuses_refreshed", map[string]interface{}{
						"changed": changed,
					})
				}
			}
		}()
		log.Println("⏰ Автоматический пересчет статусов партий запущен (каждые 10 минут)")
	} else {
		log.Println("⚠️ Batch service not started: PostgreSQL not available")
	}

	// Инициализация сервиса финансов
	var financeService *services.FinanceService
	if db != nil {
		financeService = services.NewFinanceService(db)
		log.Println("✅ Finance service initialized")
	} else {
		log.Println("⚠️ Finance service not started: PostgreSQL not available")
	}

	// Инициализация сервиса отчетов
	var reportService *services.ReportService
	if db != nil && financeService != nil && batchService != nil {
		reportService = services.NewReportService(db, financeService, batchService)
		log.Println("✅ Report service initialized")
	} else {
		log.Println("⚠️ Report service not started: required services not available")
	}

	// Отключаем debug-логи gin
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Health check endpoint (должен быть до CORS для Railway)
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "FleetBooks Server",
			"version": "1.0.0",
		})
	})

	// Логирование всех запросов
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, status, latency)
	})

	// CORS для фронтенда
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// API routes
	apiGroup := r.Group("/api/v1")

	// Прогнозирование (расчет доступен и без БД)
	forecastController := api.NewForecastController(forecastService)
	forecastGroup := apiGroup.Group("/forecast")
	{
		forecastGroup.POST("/calculate", forecastController.CalculateForecast)        // Недельный прогноз
		forecastGroup.POST("/scaling-table", forecastController.GenerateScalingTable) // Таблица "что если машин будет N"
		forecastGroup.GET("/last", forecastController.GetLastForecast)                // Последний расчет из кэша
		if db != nil {
			forecastGroup.GET("/settings", forecastController.GetSettings)    // Сохраненные допущения
			forecastGroup.PUT("/settings", forecastController.UpdateSettings) // Обновить допущения
		}
	}
	log.Println("📈 Forecast endpoints enabled: /api/v1/forecast")

	// Партии рейсов
	if db != nil && batchService != nil {
		batchController := api.NewBatchController(batchService, forecastService)
		batchGroup := apiGroup.Group("/batches")
		{
			batchGroup.GET("", batchController.GetBatches)         // Список партий
			batchGroup.POST("", batchController.CreateBatch)       // Создать партию
			batchGroup.GET("/:id", batchController.GetBatch)       // Партия со связями
			batchGroup.PUT("/:id", batchController.UpdateBatch)    // Обновить название/описание
			batchGroup.DELETE("/:id", batchController.DeleteBatch) // Удалить партию
			batchGroup.POST("/:id/trips", batchController.ImportTrips)           // Загрузить рейсы
			batchGroup.POST("/:id/forecast", batchController.SnapshotForecast)   // Зафиксировать прогноз
			batchGroup.POST("/:id/settlement", batchController.ImportSettlement) // Сопоставить накладную
			batchGroup.GET("/:id/variance", batchController.GetVariance)         // Факт против прогноза
		}
		log.Println("🚚 Batch endpoints enabled: /api/v1/batches")
	} else {
		log.Println("⚠️ Batch endpoints not enabled: PostgreSQL not available")
	}

	// Книга учета
	if db != nil && financeService != nil {
		financeController := api.NewFinanceController(financeService)
		financeGroup := apiGroup.Group("/finance")
		{
			transactionGroup := financeGroup.Group("/transactions")
			{
				transactionGroup.GET("", financeController.GetTransactions)          // Список операций
				transactionGroup.GET("/:id", financeController.GetTransaction)       // Получить операцию
				transactionGroup.POST("", financeController.CreateTransaction)       // Создать операцию
				transactionGroup.PUT("/:id", financeController.UpdateTransaction)    // Обновить операцию
				transactionGroup.DELETE("/:id", financeController.DeleteTransaction) // Удалить операцию
			}
			financeGroup.GET("/summary", financeController.GetSummary) // Сводка по категориям
		}
		log.Println("💰 Finance endpoints enabled: /api/v1/finance")
	} else {
		log.Println("⚠️ Finance endpoints not enabled: PostgreSQL not available")
	}

	// Отчеты
	if reportService != nil {
		reportController := api.NewReportController(reportService)
		reportGroup := apiGroup.Group("/reports")
		{
			reportGroup.GET("/pnl", reportController.GetPnL)           // P&L за период
			reportGroup.GET("/pnl/export", reportController.ExportPnL) // Выгрузка в xlsx
		}
		log.Println("📊 Report endpoints enabled: /api/v1/reports")
	} else {
		log.Println("⚠️ Report endpoints not enabled: required services not available")
	}

	// WebSocket для дашбордов
	apiGroup.GET("/ws", api.ServeWS)

	// Запускаем WebSocket Hub для дашбордов
	go api.DashboardHub.Run()
	log.Println("📱 WebSocket Hub запущен для дашбордов")

	// Подписка на обновления допущений прогноза: изменение настроек
	// разлетается на все открытые дашборды через Pub/Sub
	if redisUtil != nil {
		settingsCh, closeSettingsSub := redisUtil.Subscribe(services.ForecastSettingsChannel)
		defer closeSettingsSub()
		go func() {
			for msg := range settingsCh {
				api.BroadcastDashboardUpdate("forecast_settings_updated", map[string]interface{}{
					"event": msg.Payload,
				})
			}
		}()
		log.Println("📡 Подписка на обновления настроек прогноза запущена")
	}

	// Запускаем Kafka Consumer для событий рейсов от диспетчерской системы
	if cfg.KafkaBrokers != "" && batchService != nil {
		log.Printf("📡 Kafka Trip Consumer: используем брокеры: %s", cfg.KafkaBrokers)
		tripConsumer := api.NewKafkaTripConsumer(cfg.KafkaBrokers, cfg.KafkaTripTopic, batchService, redisUtil, cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		tripConsumer.Start()
		defer tripConsumer.Stop()
	} else {
		if cfg.KafkaBrokers == "" {
			log.Println("⚠️ Kafka Trip Consumer НЕ запущен: KAFKA_BROKERS не установлен")
		} else {
			log.Println("⚠️ Kafka Trip Consumer НЕ запущен: PostgreSQL не настроен")
		}
	}

	// Запуск на порту из конфига
	port := cfg.ServerPort
	if port == "" {
		port = os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
	}

	// Запуск HTTP сервера для pprof (профилирование памяти)
	// Доступен на http://localhost:6060/debug/pprof/
	go func() {
		pprofPort := "6060"
		log.Printf("🔍 pprof доступен на http://localhost:%s/debug/pprof/", pprofPort)
		if err := http.ListenAndServe("localhost:"+pprofPort, nil); err != nil {
			log.Printf("⚠️ pprof server failed to start: %v", err)
		}
	}()

	// Периодическое логирование статистики памяти
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			logMemoryStats()
		}
	}()

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("📡 API доступен на http://0.0.0.0:%s/api/v1", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// logMemoryStats логирует текущую статистику использования памяти
func logMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	heapAllocMB := float64(m.HeapAlloc) / 1024 / 1024
	heapSysMB := float64(m.HeapSys) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024
	numGoroutines := runtime.NumGoroutine()

	log.Printf("💾 Memory Stats: HeapAlloc=%.2f MB, HeapSys=%.2f MB, Sys=%.2f MB, GC=%d, Goroutines=%d",
		heapAllocMB, heapSysMB, sysMB, m.NumGC, numGoroutines)

	if numGoroutines > 100 {
		log.Printf("⚠️ WARNING: High number of goroutines detected: %d (possible goroutine leak)", numGoroutines)
	}
}
