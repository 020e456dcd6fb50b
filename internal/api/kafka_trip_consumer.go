package api

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"fleetbooks/server/internal/services"
	"fleetbooks/server/internal/utils"

	"github.com/segmentio/kafka-go"
)

// TripEvent событие рейса от диспетчерской системы (JSON в Kafka)
type TripEvent struct {
	TripID      string    `json:"trip_id"`
	Event       string    `json:"event"` // 'completed' - пока единственное обрабатываемое
	TruckLabel  string    `json:"truck_label"`
	CompletedAt time.Time `json:"completed_at"`
}

// KafkaTripConsumer читает события рейсов из Kafka, отмечает рейсы
// выполненными и шлет обновления статусов на дашборды
type KafkaTripConsumer struct {
	topic        string
	groupID      string
	reader       *kafka.Reader
	ctx          context.Context
	cancel       context.CancelFunc
	batchService *services.BatchService
	redisUtil    *utils.RedisClient
	processed    int64
	lastLog      int64
}

// NewKafkaTripConsumer создает consumer событий рейсов
func NewKafkaTripConsumer(brokers, topic string, batchService *services.BatchService, redisUtil *utils.RedisClient, username, password, caCert string) *KafkaTripConsumer {
	brokerList := ParseKafkaBrokers(brokers)
	ctx, cancel := context.WithCancel(context.Background())

	dialer := CreateKafkaDialer(username, password, caCert)

	groupID := "fleetbooks-trip-group"
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokerList,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset, // Старые события не переигрываем: статусы пересчитываются из БД
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		Dialer:      dialer,
	})

	return &KafkaTripConsumer{
		topic:        topic,
		groupID:      groupID,
		reader:       reader,
		ctx:          ctx,
		cancel:       cancel,
		batchService: batchService,
		redisUtil:    redisUtil,
		lastLog:      time.Now().Unix(),
	}
}

// Start запускает чтение событий рейсов
func (kc *KafkaTripConsumer) Start() {
	log.Printf("📡 Kafka Trip Consumer запущен: topic=%s, groupID=%s", kc.topic, kc.groupID)

	go func() {
		for {
			select {
			case <-kc.ctx.Done():
				return
			default:
				msg, err := kc.reader.ReadMessage(kc.ctx)
				if err != nil {
					if err == context.Canceled {
						return
					}
					log.Printf("⚠️ Kafka Trip Consumer ошибка чтения: %v", err)
					time.Sleep(1 * time.Second)
					continue
				}

				var event TripEvent
				if err := json.Unmarshal(msg.Value, &event); err != nil {
					// Чужой формат сообщения, молча пропускаем
					continue
				}
				kc.handleEvent(event)
			}
		}
	}()
}

// handleEvent обрабатывает одно событие рейса
func (kc *KafkaTripConsumer) handleEvent(event TripEvent) {
	if event.Event != "completed" || event.TripID == "" {
		return
	}

	completedAt := event.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	batch, err := kc.batchService.MarkTripCompleted(event.TripID, completedAt)
	if err != nil {
		log.Printf("⚠️ Не удалось обработать событие рейса %s: %v", event.TripID, err)
		return
	}

	// Счетчик для статистики
	if kc.redisUtil != nil {
		if _, err := kc.redisUtil.Increment("fleet:trips:completed"); err != nil {
			log.Printf("⚠️ Ошибка инкремента счетчика рейсов: %v", err)
		}
	}

	BroadcastDashboardUpdate("trip_completed", map[string]interface{}{
		"trip_id":      event.TripID,
		"batch_id":     batch.ID,
		"batch_status": batch.Status,
	})

	processed := atomic.AddInt64(&kc.processed, 1)
	now := time.Now().Unix()
	if now-atomic.LoadInt64(&kc.lastLog) >= 5 {
		atomic.StoreInt64(&kc.lastLog, now)
		log.Printf("📊 Kafka Trip Consumer: обработано %d событий", processed)
	}
}

// Stop останавливает consumer
func (kc *KafkaTripConsumer) Stop() {
	kc.cancel()
	if kc.reader != nil {
		kc.reader.Close()
	}
	log.Println("🛑 Kafka Trip Consumer остановлен")
}
