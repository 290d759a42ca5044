//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vrtelolleva/platform/internal/api"
	"github.com/vrtelolleva/platform/internal/auth"
	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/catalog"
	"github.com/vrtelolleva/platform/internal/domain"
	"github.com/vrtelolleva/platform/internal/lifecycle"
	"github.com/vrtelolleva/platform/internal/messages"
	"github.com/vrtelolleva/platform/internal/messaging"
	"github.com/vrtelolleva/platform/internal/store"
)

func TestPostgresOrderStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	orders := store.NewPostgresStore(db)

	order := &domain.Order{
		ClientID:     "client-1",
		BusinessID:   "b1",
		BusinessName: "Taquería El Pastor",
		Items: []domain.OrderItem{
			{ProductID: "p1", ProductName: "Tacos al Pastor (3 pzas)", UnitPrice: 7500, Quantity: 2},
			{ProductID: "p3", ProductName: "Agua de Horchata", UnitPrice: 3000, Quantity: 1},
		},
		TotalPrice:       21000,
		Status:           domain.OrderStatusPending,
		DeliveryAddress:  "Av. Siempre Viva 742",
		DeliveryLocation: domain.Location{Lat: 19.4350, Lng: -99.1350},
		SpecialNotes:     "Sin cebolla",
		CreatedAt:        time.Now().UTC(),
	}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("failed to create order: %v", err)
	}

	fetched, err := orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if len(fetched.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(fetched.Items))
	}
	if fetched.SpecialNotes != "Sin cebolla" {
		t.Fatalf("expected special notes round-tripped, got %q", fetched.SpecialNotes)
	}

	updated, err := orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, func(o *domain.Order) {
		o.Status = domain.OrderStatusAccepted
		o.PreparationTime = 20
	})
	if err != nil {
		t.Fatalf("failed to update status: %v", err)
	}
	if updated.Status != domain.OrderStatusAccepted || updated.PreparationTime != 20 {
		t.Fatalf("unexpected order after update: %+v", updated)
	}

	// Stale expectation must fail without changing the row.
	_, err = orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, func(o *domain.Order) {
		o.Status = domain.OrderStatusRejected
	})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	now := time.Now().UTC()
	for i, text := range []string{"Llego en 15 minutos", "Estoy en la puerta"} {
		_, err := orders.AppendMessage(ctx, order.ID, domain.QuickMessage{
			ID:          order.ID + "-msg-" + text[:2],
			OrderID:     order.ID,
			SenderID:    "delivery-1",
			RecipientID: "client-1",
			Message:     text,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("failed to append message %d: %v", i, err)
		}
	}

	fetched, err = orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if len(fetched.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fetched.Messages))
	}
	if fetched.Messages[0].Message != "Llego en 15 minutos" {
		t.Fatalf("messages out of append order: %+v", fetched.Messages)
	}

	listed, err := orders.List(ctx, store.Filter{BusinessID: "b1", Status: domain.OrderStatusAccepted})
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 order, got %d", len(listed))
	}
}

func TestPostgresCatalog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)

	_, err := db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, category, delivery_fee, lat, lng, is_open)
		VALUES ('b1', 'Taquería El Pastor', 'Mexicana', 3000, 19.4300, -99.1300, TRUE)
	`)
	if err != nil {
		t.Fatalf("failed to seed business: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, business_id, name, price, category) VALUES
		('p1', 'b1', 'Tacos al Pastor (3 pzas)', 7500, 'Tacos'),
		('p2', 'b1', 'Quesadilla de Queso', 6000, 'Antojitos')
	`)
	if err != nil {
		t.Fatalf("failed to seed products: %v", err)
	}

	cat := catalog.NewPostgresCatalog(db)

	items, total, err := catalog.Price(ctx, cat, "b1", []catalog.ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("failed to price order: %v", err)
	}
	if total != 2*7500+6000+3000 {
		t.Fatalf("unexpected total %d", total)
	}
	if len(items) != 2 || items[0].ProductName != "Tacos al Pastor (3 pzas)" {
		t.Fatalf("unexpected items %+v", items)
	}

	products, err := cat.ListProducts(ctx, "b1")
	if err != nil {
		t.Fatalf("failed to list products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
}

func TestPostgresAuth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.NewService(auth.NewPostgresUserStore(db), logger)

	profile, err := svc.Register(ctx, "Ana Cliente", "ana@cliente.com", "password123", domain.RoleClient)
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if profile.ID == "" {
		t.Fatal("expected generated user id")
	}

	_, err = svc.Register(ctx, "Otra Ana", "ANA@cliente.com", "otherpass", domain.RoleClient)
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	logged, err := svc.Login(ctx, "ana@cliente.com", "password123")
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	if logged.ID != profile.ID {
		t.Fatalf("expected profile %s, got %s", profile.ID, logged.ID)
	}

	if _, err := svc.Login(ctx, "ana@cliente.com", "wrong"); !errors.Is(err, domain.ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
}

func TestNotificationMirror(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger)

	mirror := messaging.NewMirror(brokers, messaging.NotificationsTopic, logger)
	defer func() { _ = mirror.Close() }()

	unsubscribe := mirror.Attach(b)
	defer unsubscribe()
	go mirror.Run(ctx)

	b.Publish(domain.Notification{
		Role:    domain.RoleClient,
		OrderID: "order-1",
		Title:   "Pedido Confirmado",
		Message: "Tu pedido fue aceptado.",
		Type:    domain.NotificationSuccess,
	})

	listener := messaging.NewListener(brokers, messaging.NotificationsTopic, "test-listener",
		messaging.WithStartOffset(-2)) // earliest
	defer func() { _ = listener.Close() }()

	received := make(chan domain.Notification, 1)
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	go func() {
		_ = listener.Listen(listenCtx, func(_ context.Context, n domain.Notification) error {
			select {
			case received <- n:
			default:
			}
			return nil
		})
	}()

	select {
	case n := <-received:
		if n.Title != "Pedido Confirmado" || n.Role != domain.RoleClient {
			t.Fatalf("unexpected notification %+v", n)
		}
	case <-time.After(60 * time.Second):
		t.Fatal("timed out waiting for mirrored notification")
	}
}

type notificationRecorder struct {
	mu   sync.Mutex
	seen []domain.Notification
}

func (r *notificationRecorder) record(n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *notificationRecorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	titles := make([]string, len(r.seen))
	for i, n := range r.seen {
		titles[i] = n.Title
	}
	return titles
}

func TestOrderLifecycleOverPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, delivery_fee, lat, lng, is_open)
		VALUES ('b1', 'Taquería El Pastor', 3000, 19.4300, -99.1300, TRUE)
	`)
	if err != nil {
		t.Fatalf("failed to seed business: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, business_id, name, price) VALUES ('p1', 'b1', 'Tacos al Pastor (3 pzas)', 7500)
	`)
	if err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}

	orders := store.NewPostgresStore(db)
	users := auth.NewPostgresUserStore(db)
	cat := catalog.NewPostgresCatalog(db)
	b := bus.New(logger)

	recorder := &notificationRecorder{}
	defer b.Subscribe(recorder.record)()

	lc := lifecycle.NewService(orders, b, nil, logger)
	defer lc.Close()

	channel := messages.NewChannel(orders, b, nil, logger)
	authSvc := auth.NewService(users, logger)

	mux := http.NewServeMux()
	api.NewHandler(orders, cat, lc, channel, authSvc, users, b, logger).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := srv.Client()

	post := func(path, body string) *http.Response {
		t.Helper()
		resp, err := client.Post(srv.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/orders", `{
		"client_id": "client-1",
		"business_id": "b1",
		"items": [{"product_id": "p1", "quantity": 2}],
		"delivery_address": "Av. Siempre Viva 742",
		"delivery_location": {"lat": 19.4350, "lng": -99.1350}
	}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating order, got %d", resp.StatusCode)
	}
	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	_ = resp.Body.Close()

	if order.TotalPrice != 2*7500+3000 {
		t.Fatalf("unexpected total %d", order.TotalPrice)
	}

	steps := []string{
		`{"target_status": "ACCEPTED", "preparation_time_minutes": 15}`,
		`{"target_status": "IN_PREPARATION"}`,
		`{"target_status": "READY_FOR_PICKUP"}`,
		`{"target_status": "ON_THE_WAY", "delivery_person": {"id": "delivery-1", "name": "Pedro Repartidor", "vehicle": "Moto", "location": {"lat": 19.4280, "lng": -99.1380}}}`,
		`{"target_status": "DELIVERED"}`,
	}
	for _, body := range steps {
		resp := post("/orders/"+order.ID+"/transition", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition %s failed with %d", body, resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	final, err := orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch final order: %v", err)
	}
	if final.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", final.Status)
	}
	if final.DeliveryPerson == nil || final.DeliveryPerson.Name != "Pedro Repartidor" {
		t.Fatalf("expected courier snapshot, got %+v", final.DeliveryPerson)
	}

	titles := recorder.titles()
	var sawDelivered bool
	for _, title := range titles {
		if title == "¡Pedido Entregado!" {
			sawDelivered = true
		}
	}
	if !sawDelivered {
		t.Fatalf("expected delivery notification, got %v", titles)
	}
}
