package common

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"vbs/src/config"
	"vbs/src/lib"
	"vbs/src/models"
	"vbs/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.Seat{},
		&models.Booking{},
		&models.BookingSeat{},
		&models.Payment{},
		&models.Ticket{},
	))
	return db
}

type fixture struct {
	user    models.User
	vehicle models.Vehicle
}

func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	user := models.User{Name: "Wanjiru", Email: "wanjiru@example.com", Role: types.ROLE_CUSTOMER}
	require.NoError(t, db.Create(&user).Error)
	vehicle := models.Vehicle{ID: "KAA001X", Name: "Shuttle 1", Route: "Nairobi-Nakuru", Capacity: 4}
	require.NoError(t, db.Create(&vehicle).Error)
	for _, n := range []string{"A1", "A2", "A3", "A4"} {
		require.NoError(t, db.Create(&models.Seat{VehicleID: vehicle.ID, SeatNumber: n}).Error)
	}
	return fixture{user: user, vehicle: vehicle}
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format(config.DATE_PARSE_FORMAT)
}

func bookingInput(f fixture, seats ...string) CreateBookingInput {
	return CreateBookingInput{
		UserID:        f.user.ID,
		VehicleID:     f.vehicle.ID,
		Seats:         seats,
		Departure:     "Nairobi",
		Destination:   "Nakuru",
		DepartureDate: tomorrow(),
		DepartureTime: "08:30",
		UnitPrice:     500,
		TotalPrice:    500 * int64(len(seats)),
	}
}

type fakeCheckout struct {
	mu    sync.Mutex
	calls []lib.CheckoutInput
	err   error
}

func (f *fakeCheckout) CreateCheckoutSession(ctx context.Context, in lib.CheckoutInput) (*lib.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	id := fmt.Sprintf("cs_test_%d", len(f.calls))
	return &lib.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

type fakePush struct {
	mu    sync.Mutex
	calls []lib.STKPushInput
	err   error
}

func (f *fakePush) STKPush(ctx context.Context, in lib.STKPushInput) (*lib.STKPushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	if f.err != nil {
		return nil, f.err
	}
	return &lib.STKPushResult{
		MerchantRequestID: fmt.Sprintf("29115-34620561-%d", len(f.calls)),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", len(f.calls)),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

type published struct {
	key     string
	payload types.JSONB
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(ctx context.Context, key string, payload types.JSONB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{key: key, payload: payload})
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*lib.SendMailInput
	err  error
}

func (f *fakeMailer) SendMail(ctx context.Context, in *lib.SendMailInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, in)
	return f.err
}

var errProviderDown = errors.New("provider unavailable")

type harness struct {
	db       *gorm.DB
	fx       fixture
	bookings *Bookings
	payments *Payments
	checkout *fakeCheckout
	push     *fakePush
	events   *fakePublisher
	mailer   *fakeMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	h := &harness{
		db:       db,
		fx:       seed(t, db),
		bookings: NewBookings(db),
		checkout: &fakeCheckout{},
		push:     &fakePush{},
		events:   &fakePublisher{},
		mailer:   &fakeMailer{},
	}
	h.payments = &Payments{
		DB:       db,
		Config:   &config.Config{Currency: "kes", TicketOnCheckoutSession: true},
		Checkout: h.checkout,
		Push:     h.push,
		Events:   h.events,
		Mailer:   h.mailer,
	}
	return h
}

func (h *harness) book(t *testing.T, seats ...string) *models.Booking {
	t.Helper()
	booking, err := h.bookings.Create(context.Background(), bookingInput(h.fx, seats...))
	require.NoError(t, err)
	return booking
}

func (h *harness) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Unscoped().Model(model).Where(query, args...).Count(&n).Error)
	return n
}
