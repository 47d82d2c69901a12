package di

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/davidmz/freefeed-server-1/internal/config"
	"github.com/davidmz/freefeed-server-1/internal/dbmongo"
	"github.com/davidmz/freefeed-server-1/internal/dbmysql"
	"github.com/davidmz/freefeed-server-1/internal/events"
	"github.com/davidmz/freefeed-server-1/internal/httpapi"
)

// Application aggregates everything the entry point needs.
type Application struct {
	Config     *config.Config
	DB         *gorm.DB
	Mongo      *dbmongo.MongoClient
	Dispatcher *events.Dispatcher
	API        *httpapi.API
}

func ProvideConfig() *config.Config {
	return config.Load()
}

func ProvideDatabase(cfg *config.Config) (*gorm.DB, error) {
	return dbmysql.NewMySQL(cfg)
}

func ProvideMongo(cfg *config.Config) (*dbmongo.MongoClient, func(), error) {
	client, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Close(ctx); err != nil {
			log.Printf("close mongo connection: %v", err)
		}
	}
	return client, cleanup, nil
}

// ProvideDispatcher builds the change-notification dispatcher and
// attaches the Kafka observer when the broker is enabled.
func ProvideDispatcher(cfg *config.Config, producer *events.KafkaProducer) (*events.Dispatcher, func()) {
	d := events.NewDispatcher(cfg.Events.Workers, cfg.Events.ChannelBufferSize)
	if producer != nil {
		d.Subscribe(events.NewKafkaObserver(producer))
	}
	cleanup := func() {
		d.Shutdown()
		if producer != nil {
			if err := producer.Close(); err != nil {
				log.Printf("close kafka producer: %v", err)
			}
		}
	}
	return d, cleanup
}
