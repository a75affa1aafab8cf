package core

import (
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	handler "github.com/raviteja1088/wayfindr-app/module/core/internal/handler/http"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/handler/subscriber"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/handler/ws"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/database/postgres"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher"
	mirror "github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher/mqtt"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/publisher/rabbitmq"
	"github.com/raviteja1088/wayfindr-app/module/core/service"
)

type Options struct {
	AlertCooldown    time.Duration
	PersistTimeout   time.Duration
	SubscriberBuffer int
	MirrorPositions  bool
}

type Module struct {
	Router    *service.Router
	Sessions  *service.SessionController
	Ingestion *service.IngestionService
	Feed      *service.FeedService

	identity *handler.IdentityMiddleware
	vehicles *handler.VehicleHandler
	sessions *handler.SessionHandler
	feed     *ws.FeedHandler
	hub      *subscriber.FixHub
}

type TrackingStats struct {
	Sessions int                 `json:"active_sessions"`
	Router   service.RouterStats `json:"router"`
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, opts Options) (*Module, error) {
	positionRepo := postgres.NewPositionRepo(db)
	registryRepo := postgres.NewRegistryRepo(db)
	roleRepo := postgres.NewRoleRepo(db)

	notifier, err := rabbitmq.NewNotificationPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("notification publisher: %w", err)
	}

	router := service.NewRouter(opts.SubscriberBuffer)
	pubs := []publisher.PositionPublisher{router}
	if opts.MirrorPositions {
		pubs = append(pubs, mirror.NewPositionMirror(mqttClient))
	}

	ingestion := service.NewIngestionService(positionRepo, opts.PersistTimeout, pubs...)
	hub := subscriber.NewFixHub(mqttClient)
	sessions := service.NewSessionController(registryRepo, hub, ingestion, notifier)
	dispatcher := service.NewAlertDispatcher(notifier, opts.AlertCooldown)
	feed := service.NewFeedService(registryRepo, router, positionRepo, dispatcher)

	return &Module{
		Router:    router,
		Sessions:  sessions,
		Ingestion: ingestion,
		Feed:      feed,
		identity:  handler.NewIdentityMiddleware(roleRepo),
		vehicles:  handler.NewVehicleHandler(ingestion, registryRepo),
		sessions:  handler.NewSessionHandler(sessions),
		feed:      ws.NewFeedHandler(feed),
		hub:       hub,
	}, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	return postgres.MigrateUp(db)
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	api := r.Group("", m.identity.Resolve)
	m.vehicles.Register(api)
	m.sessions.Register(api)
	m.feed.Register(api)
}

func (m *Module) StartSubscribers() error {
	return m.hub.Start()
}

func (m *Module) Stats() any {
	return TrackingStats{
		Sessions: len(m.Sessions.Sessions()),
		Router:   m.Router.Stats(),
	}
}

// Shutdown stops every tracking session.
func (m *Module) Shutdown() {
	m.Sessions.Shutdown()
}
