package main

import (
	"github.com/julienschmidt/httprouter"

	bookingshandler "slotly/internal/bookings/handler"
	bookingsrepo "slotly/internal/bookings/repository"
	bookingsservice "slotly/internal/bookings/service"
	bookingsvalidator "slotly/internal/bookings/validator"
	healthhandler "slotly/internal/health/handler"
	resourceshandler "slotly/internal/resources/handler"
	resourcesrepo "slotly/internal/resources/repository"
	resourcesservice "slotly/internal/resources/service"
	resourcesvalidator "slotly/internal/resources/validator"
	usershandler "slotly/internal/users/handler"
	usersrepo "slotly/internal/users/repository"
	usersservice "slotly/internal/users/service"
	usersvalidator "slotly/internal/users/validator"
	"slotly/pkg/app"
	"slotly/pkg/config"
	"slotly/pkg/contracts"
	"slotly/pkg/events"
	"slotly/pkg/kafka"
	kafka_config "slotly/pkg/kafka/config"
	"slotly/pkg/token"
)

const ServiceName = "api"

// apiRoutes merges the domain handlers onto one router.
type apiRoutes []contracts.Handler

func (a apiRoutes) RegisterRoutes(router *httprouter.Router) {
	for _, h := range a {
		h.RegisterRoutes(router)
	}
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting API service")

	tokens := token.NewManager(cfg.AuthSecret, cfg.AuthTokenTTL)

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	producer := kafka.NewProducer(kafkaCfg, ServiceName, cfg.Log)
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()
	emitter := events.NewKafkaEmitter(producer, cfg.Log)

	routes := initServices(cfg, tokens, emitter)
	healthHandler := healthhandler.NewHealthHandler(cfg.Client.Mongo.Client, cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(routes, healthHandler, tokens)
	serverApp.Run()
}

func initServices(cfg *config.Config, tokens *token.Manager, emitter events.Emitter) apiRoutes {
	userRepo := usersrepo.NewMongoUserRepository(cfg)
	resourceRepo := resourcesrepo.NewMongoResourceRepository(cfg)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingsrepo.NewSlotLockRepository(cfg)

	userService := usersservice.NewUserService(
		userRepo,
		usersvalidator.NewUserValidator(cfg.Log),
		tokens,
		cfg,
	)
	resourceService := resourcesservice.NewResourceService(
		resourceRepo,
		bookingRepo,
		resourcesvalidator.NewResourceValidator(cfg.Log),
		cfg,
	)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		lockRepo,
		resourceRepo,
		userRepo,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		emitter,
		cfg,
	)

	cfg.Log.Info("API services initialized", "database", cfg.MongoDatabaseName)

	return apiRoutes{
		usershandler.NewUserHandler(userService, cfg.Log),
		resourceshandler.NewResourceHandler(resourceService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
	}
}
