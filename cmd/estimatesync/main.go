package main

import (
	decisionconsumer "bizpulse/internal/decisions/consumer"
	decisionrepo "bizpulse/internal/decisions/repository"
	decisionvalidator "bizpulse/internal/decisions/validator"
	documentrepo "bizpulse/internal/documents/repository"
	estimatehandler "bizpulse/internal/estimates/handler"
	estimateservice "bizpulse/internal/estimates/service"
	"bizpulse/pkg/app"
	"bizpulse/pkg/client"
	"bizpulse/pkg/config"
	"bizpulse/pkg/kafka"
	kafkaconfig "bizpulse/pkg/kafka/config"
)

const ServiceName = "estimatesync"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafka.TopicEstimateDecisions, kafka.TopicEstimateDecisionsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer producer.Close()

	cfg.Log.Info("Starting Estimate Sync service")

	documentRepo := documentrepo.NewMongoDocumentRepository(cfg)
	decisionQueue := decisionrepo.NewMongoDecisionQueue(cfg)
	validator := decisionvalidator.NewDecisionValidator(cfg.Log)
	announcer := estimateservice.NewKafkaAnnouncer(producer, ServiceName)

	portal := client.NewPortalClient(cfg.PortalBaseURL, cfg.PortalAdminKey, cfg.PortalTimeout, cfg.Log)
	syncService := estimateservice.NewSyncService(documentRepo, decisionQueue, portal, announcer, cfg)

	decisionHandler := decisionconsumer.NewDecisionConsumer(decisionQueue, validator, cfg.Log)
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafka.TopicEstimateDecisions,
		ServiceName,
		kafka.TopicEstimateDecisionsDLQ,
		decisionHandler.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	defer consumer.Close()

	serverApp := app.NewApplication(cfg, ServiceName)
	serverApp.SetApp(
		estimatehandler.NewEstimateHandler(syncService, decisionQueue, validator, announcer, cfg.Log),
	)
	serverApp.AddWorker(estimateservice.NewSyncWorker(syncService, cfg.SyncInterval, cfg.Log))
	serverApp.AddWorker(decisionconsumer.NewWorker(consumer))
	serverApp.Run()
}
