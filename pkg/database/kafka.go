package database

import (
	"fmt"
	"time"

	"marketplace_chat_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NewKafkaWriterWithRetry 確認 broker 可連線後建立 Kafka Writer, key 相同的訊息進同一個 partition
func NewKafkaWriterWithRetry(k KafkaConnection) (*kafka.Writer, error) {
	if len(k.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	var err error
	for attempt := 1; attempt <= retryCount(k.RetryCount); attempt++ {
		if err = pingKafka(k.Brokers[0], k.Topic); err == nil {
			logger.Log.Info("Kafka Writer 建立成功", zap.Int("attempt", attempt), zap.Strings("brokers", k.Brokers))
			return &kafka.Writer{
				Addr:                   kafka.TCP(k.Brokers...),
				Topic:                  k.Topic,
				Balancer:               &kafka.Hash{},
				RequiredAcks:           kafka.RequireOne,
				AllowAutoTopicCreation: true,
				BatchTimeout:           50 * time.Millisecond,
			}, nil
		}

		logger.Log.Warn("Kafka 連線失敗",
			zap.Int("attempt", attempt),
			zap.Int("max", k.RetryCount),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval)
	}

	return nil, fmt.Errorf("無法建立 Kafka Writer，經過 %d 次嘗試: %w", k.RetryCount, err)
}

// pingKafka 連一次 broker 並讀 partition 資訊, 不寫入測試訊息
func pingKafka(broker, topic string) error {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.ReadPartitions(topic)
	if err != nil && topic != "" {
		// topic 可能尚未建立, 只要 broker 有回應就算連線成功
		_, err = conn.Brokers()
	}
	return err
}
