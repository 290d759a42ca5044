package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/vrtelolleva/platform/internal/api"
	"github.com/vrtelolleva/platform/internal/auth"
	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/catalog"
	"github.com/vrtelolleva/platform/internal/domain"
	"github.com/vrtelolleva/platform/internal/lifecycle"
	"github.com/vrtelolleva/platform/internal/messages"
	"github.com/vrtelolleva/platform/internal/messaging"
	"github.com/vrtelolleva/platform/internal/store"
	"github.com/vrtelolleva/platform/internal/telemetry"
	"github.com/vrtelolleva/platform/internal/tracking"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "server", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("server", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := otelruntime.Start(otelruntime.WithMinimumReadMemStatsInterval(10 * time.Second)); err != nil {
		logger.Warn("failed to start runtime metrics", "error", err)
	}

	counters, err := telemetry.NewCounters()
	if err != nil {
		logger.Error("failed to create counters", "error", err)
		os.Exit(1)
	}

	var (
		orders store.OrderStore
		cat    catalog.Catalog
		users  auth.UserStore
	)

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL != "" {
		db, err := telemetry.OpenDB("postgres", postgresURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()

		if err := db.Ping(); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}

		orders = store.NewPostgresStore(db)
		cat = catalog.NewPostgresCatalog(db)
		users = auth.NewPostgresUserStore(db)
		logger.Info("using postgres storage")
	} else {
		memCat := catalog.NewMemoryCatalog()
		memUsers := auth.NewMemoryUserStore()
		seedDemoData(ctx, memCat, memUsers, logger)

		orders = store.NewMemoryStore()
		cat = memCat
		users = memUsers
		logger.Info("POSTGRES_URL not set, using in-memory storage with demo data")
	}

	notificationBus := bus.New(logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		mirror := messaging.NewMirror(brokers, messaging.NotificationsTopic, logger)
		defer func() { _ = mirror.Close() }()

		unsubscribe := mirror.Attach(notificationBus)
		defer unsubscribe()
		go mirror.Run(runCtx)

		logger.Info("mirroring notifications to kafka", "brokers", brokers, "topic", messaging.NotificationsTopic)
	}

	lc := lifecycle.NewService(orders, notificationBus, counters, logger)
	defer lc.Close()

	// Stand-in for real courier GPS: when an order goes out for delivery,
	// walk the courier toward the drop-off and persist each position.
	sim := tracking.NewSimulator(logger)
	defer notificationBus.Subscribe(func(n domain.Notification) {
		if n.Role != domain.RoleBusiness || n.Order == nil ||
			n.Order.Status != domain.OrderStatusOnTheWay || n.Order.DeliveryPerson == nil {
			return
		}

		orderID := n.Order.ID
		start := n.Order.DeliveryPerson.Location
		dest := n.Order.DeliveryLocation

		go func() {
			simCtx, stopSim := context.WithCancel(runCtx)
			defer stopSim()

			sim.Run(simCtx, start, dest, func(pos domain.Location) {
				updated, err := orders.Update(simCtx, orderID, func(o *domain.Order) {
					if o.DeliveryPerson != nil {
						o.DeliveryPerson.Location = pos
					}
				})
				if err != nil || updated.Status != domain.OrderStatusOnTheWay {
					stopSim()
				}
			})
		}()
	})()

	channel := messages.NewChannel(orders, notificationBus, counters, logger)
	authSvc := auth.NewService(users, logger)

	mux := http.NewServeMux()
	api.NewHandler(orders, cat, lc, channel, authSvc, users, notificationBus, logger).Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout: 10 * time.Second,
		// No write timeout: /events streams stay open for the life of
		// the client connection.
		WriteTimeout: 0,
	}

	go func() {
		logger.Info("starting server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// seedDemoData loads the demo accounts and menu used by the dashboards
// when running without a database.
func seedDemoData(ctx context.Context, cat *catalog.MemoryCatalog, users *auth.MemoryUserStore, logger *slog.Logger) {
	cat.AddBusiness(domain.Business{
		ID:          "b1",
		Name:        "Taquería El Pastor",
		Category:    "Mexicana",
		DeliveryFee: 3000,
		Location:    domain.Location{Lat: 19.4300, Lng: -99.1300},
		IsOpen:      true,
	})
	cat.AddProduct(domain.Product{ID: "p1", BusinessID: "b1", Name: "Tacos al Pastor (3 pzas)", Price: 7500, Category: "Tacos"})
	cat.AddProduct(domain.Product{ID: "p2", BusinessID: "b1", Name: "Quesadilla de Queso", Price: 6000, Category: "Antojitos"})
	cat.AddProduct(domain.Product{ID: "p3", BusinessID: "b1", Name: "Agua de Horchata", Price: 3000, Category: "Bebidas"})

	authSvc := auth.NewService(users, logger)
	demo := []struct {
		name  string
		email string
		role  domain.Role
	}{
		{"Ana Cliente", "ana@cliente.com", domain.RoleClient},
		{"Taquería El Pastor", "elpastor@negocio.com", domain.RoleBusiness},
		{"Pedro Repartidor", "pedro@repartidor.com", domain.RoleDelivery},
		{"Super Admin", "admin@vrtelolleva.com", domain.RoleAdmin},
	}
	for _, d := range demo {
		if _, err := authSvc.Register(ctx, d.name, d.email, "password123", d.role); err != nil {
			logger.Warn("failed to seed demo user", "email", d.email, "error", err)
		}
	}
}
