package main

import (
	"context"
	"fmt"
	"time"

	"marketplace_chat_service/internal/chat/repository"
	"marketplace_chat_service/pkg/config"
	"marketplace_chat_service/pkg/database"
	"marketplace_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// openMessageStore pick the backend from store.driver, the func closes it
func openMessageStore(ctx context.Context, cfg config.Chat) (repository.MessageRepository, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		uri := database.MongoURI(cfg.MongoSQL.Host, cfg.MongoSQL.Port, cfg.MongoSQL.User, cfg.MongoSQL.Password)
		mongo, err := database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval) * time.Second,
		}, cfg.MongoSQL.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, mongo.Database); err != nil {
			logger.Log.Warn("ensure mongo indexes", zap.Error(err))
		}
		return repository.NewMongoMessageRepository(mongo.Database), func() {
			_ = mongo.Close(context.Background())
		}, nil

	case config.StorePostgres:
		db, err := database.NewPGConnection(database.Connection{
			ConnectStr:    database.PostgresDSN(cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database),
			RetryCount:    cfg.PostgreSQL.RetryCount,
			RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval) * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := repository.AutoMigrateMessages(db); err != nil {
			return nil, nil, fmt.Errorf("migrate chat_messages: %w", err)
		}
		return repository.NewGormMessageRepository(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil

	case config.StoreBadger, "":
		db, err := database.NewBadgerDB(cfg.Badger.Path)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewBadgerMessageRepository(db), func() {
			_ = db.Close()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// openEventPublisher pick the broker from events.driver
func openEventPublisher(cfg config.Chat) (repository.EventPublisher, error) {
	switch cfg.Events.Driver {
	case config.EventsKafka:
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Events.Brokers,
			Topic:         cfg.Events.Topic,
			RetryCount:    cfg.Events.RetryCount,
			RetryInterval: cfg.Events.RetryInterval,
		})
		if err != nil {
			return nil, err
		}
		return repository.NewKafkaEventPublisher(writer), nil

	case config.EventsRabbitMQ:
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    cfg.Events.AMQPURL,
			RetryCount:    cfg.Events.RetryCount,
			RetryInterval: cfg.Events.RetryInterval,
		})
		if err != nil {
			return nil, err
		}
		ch, err := database.GetRabbitMQChannelWithRetry(conn, cfg.Events.RetryCount, cfg.Events.RetryInterval)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		rabbit := database.NewRabbitRepository(conn, ch)
		publisher, err := repository.NewRabbitEventPublisher(rabbit, cfg.Events.Exchange)
		if err != nil {
			_ = rabbit.Close()
			return nil, err
		}
		return publisher, nil

	case config.EventsNone, "":
		return repository.NewNopEventPublisher(), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
}
