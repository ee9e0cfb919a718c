package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"vbs/src/boot"
	"vbs/src/common"
	"vbs/src/config"
	"vbs/src/lib"
	"vbs/src/models"
	"vbs/src/types"
	"vbs/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	webhookSecret = "whsec_test"
	callbackToken = "cbtoken"
)

type stubCheckout struct{ n int }

func (s *stubCheckout) CreateCheckoutSession(ctx context.Context, in lib.CheckoutInput) (*lib.CheckoutSession, error) {
	s.n++
	id := fmt.Sprintf("cs_test_%d", s.n)
	return &lib.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

type stubPush struct{ n int }

func (s *stubPush) STKPush(ctx context.Context, in lib.STKPushInput) (*lib.STKPushResult, error) {
	s.n++
	return &lib.STKPushResult{
		MerchantRequestID: fmt.Sprintf("29115-%d", s.n),
		CheckoutRequestID: fmt.Sprintf("ws_CO_%d", s.n),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

type TestSuite struct {
	suite.Suite
	DB         *gorm.DB
	Router     *gin.Engine
	Config     *config.Config
	AdminToken string
	Customer   models.User
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	registerValidators()
}

func (s *TestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	d, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	sqlDB, _ := d.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := boot.Migrate(d); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	s.DB = d

	s.Config = &config.Config{
		JWTSecret:               "test-secret",
		Currency:                "kes",
		StripeWebhookSecret:     webhookSecret,
		MpesaCallbackToken:      callbackToken,
		TicketOnCheckoutSession: true,
	}

	hash, _ := utils.HashPassword("password123")
	admin := models.User{Name: "Admin", Email: "admin@example.com", PasswordHash: hash, Role: types.ROLE_ADMIN}
	customer := models.User{Name: "Wanjiru", Email: "wanjiru@example.com", PasswordHash: hash, Role: types.ROLE_CUSTOMER}
	if err := d.Create(&admin).Error; err != nil {
		log.Fatalf("Could not create user due to error: %s\n", err.Error())
	}
	if err := d.Create(&customer).Error; err != nil {
		log.Fatalf("Could not create user due to error: %s\n", err.Error())
	}
	s.Customer = customer
	token, err := utils.GenerateJWT(s.Config.JWTSecret, &admin, time.Hour)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.AdminToken = token

	svc := &services{
		cfg:      s.Config,
		db:       d,
		bookings: common.NewBookings(d),
		payments: &common.Payments{
			DB:       d,
			Config:   s.Config,
			Checkout: &stubCheckout{},
			Push:     &stubPush{},
		},
		tickets:   &common.Tickets{DB: d},
		inventory: &common.Inventory{DB: d},
	}
	s.Router = setupRouter()
	registerRoutes(s.Router, svc)
}

func (s *TestSuite) TearDownTest() {
	if inner, err := s.DB.DB(); err == nil {
		inner.Close()
	}
}

func (s *TestSuite) do(method, target string, body any, token string) (int, string) {
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		r = strings.NewReader(string(raw))
	}
	req, _ := http.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func (s *TestSuite) seedVehicle() {
	code, res := s.do("POST", "/api/v1/vehicles", map[string]any{
		"registration": "KAA001X", "name": "Shuttle 1", "route": "Nairobi-Nakuru", "capacity": 4,
	}, s.AdminToken)
	s.Require().Equal(http.StatusCreated, code, res)
	code, res = s.do("POST", "/api/v1/vehicles/KAA001X/seats", map[string]any{"seats": []string{"A1", "A2", "A3", "A4"}}, s.AdminToken)
	s.Require().Equal(http.StatusCreated, code, res)
}

func (s *TestSuite) createBooking(seats ...string) uint {
	code, res := s.do("POST", "/api/v1/bookings", map[string]any{
		"user_id":        s.Customer.ID,
		"vehicle_id":     "KAA001X",
		"seats":          seats,
		"departure":      "Nairobi",
		"destination":    "Nakuru",
		"departure_date": time.Now().AddDate(0, 0, 1).Format(config.DATE_PARSE_FORMAT),
		"departure_time": "08:30",
		"price":          500,
		"total_price":    500 * len(seats),
	}, "")
	s.Require().Equal(http.StatusCreated, code, res)
	return uint(gjson.Get(res, "data.id").Uint())
}

func (s *TestSuite) TestPingRoute() {
	code, _ := s.do("GET", "/", nil, "")
	assert.Equal(s.T(), 200, code)
}

func (s *TestSuite) TestMaintenanceMode() {
	s.Config.MaintenanceMode = true
	defer func() { s.Config.MaintenanceMode = false }()

	code, _ := s.do("GET", "/api/v1/vehicles", nil, "")
	assert.Equal(s.T(), 503, code)
}

func (s *TestSuite) TestAuthRoutes() {
	code, res := s.do("POST", "/api/v1/auth/register", map[string]any{
		"name": "Otieno", "email": "otieno@example.com", "password": "password123", "phone": "254712345678",
	}, "")
	assert.Equal(s.T(), http.StatusCreated, code, res)
	assert.Empty(s.T(), gjson.Get(res, "data.password_hash").String())

	code, _ = s.do("POST", "/api/v1/auth/register", map[string]any{
		"name": "Otieno", "email": "otieno@example.com", "password": "password123",
	}, "")
	assert.Equal(s.T(), http.StatusConflict, code)

	code, _ = s.do("POST", "/api/v1/auth/register", map[string]any{
		"name": "Bad", "email": "bad@example.com", "password": "password123", "phone": "0712345678",
	}, "")
	assert.Equal(s.T(), http.StatusBadRequest, code)

	code, res = s.do("POST", "/api/v1/auth/login", map[string]any{"email": "otieno@example.com", "password": "password123"}, "")
	assert.Equal(s.T(), http.StatusOK, code)
	token := gjson.Get(res, "token").String()
	assert.NotEmpty(s.T(), token)

	code, res = s.do("GET", "/api/v1/me", nil, token)
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "otieno@example.com", gjson.Get(res, "data.email").String())

	code, _ = s.do("POST", "/api/v1/auth/login", map[string]any{"email": "otieno@example.com", "password": "wrong-password"}, "")
	assert.Equal(s.T(), http.StatusUnauthorized, code)

	code, _ = s.do("GET", "/api/v1/me", nil, "")
	assert.Equal(s.T(), http.StatusUnauthorized, code)

	code, _ = s.do("POST", "/api/v1/vehicles", map[string]any{"registration": "KAB", "name": "x", "capacity": 1}, token)
	assert.Equal(s.T(), http.StatusForbidden, code, "customers cannot manage the fleet")
}

func (s *TestSuite) TestBookingAndMobileMoneyFlow() {
	s.seedVehicle()
	bookingId := s.createBooking("A1", "A2")

	code, res := s.do("GET", fmt.Sprintf("/api/v1/vehicles/KAA001X/availability?date=%s", time.Now().AddDate(0, 0, 1).Format(config.DATE_PARSE_FORMAT)), nil, "")
	s.Require().Equal(http.StatusOK, code)
	assert.False(s.T(), gjson.Get(res, `data.#(seat_number=="A1").available`).Bool())
	assert.True(s.T(), gjson.Get(res, `data.#(seat_number=="A3").available`).Bool())

	code, _ = s.do("POST", "/api/v1/mpesa/stkpush", map[string]any{"phone": "0712345678", "amount": 1000, "booking_id": bookingId}, "")
	assert.Equal(s.T(), http.StatusBadRequest, code)

	code, res = s.do("POST", "/api/v1/mpesa/stkpush", map[string]any{"phone": "254712345678", "amount": 1000, "booking_id": bookingId}, "")
	s.Require().Equal(http.StatusOK, code, res)
	ref := gjson.Get(res, "checkout_request_id").String()
	assert.Equal(s.T(), "ws_CO_1", ref)

	code, res = s.do("GET", "/api/v1/payment-status?checkout_request_id="+ref, nil, "")
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "pending", gjson.Get(res, "status").String())

	callback := fmt.Sprintf(`{"Body":{"stkCallback":{"MerchantRequestID":"29115-1","CheckoutRequestID":%q,"ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":1000},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"}]}}}}`, ref)

	code, _ = s.do("POST", "/api/v1/mpesa/callback?token=wrong", callback, "")
	assert.Equal(s.T(), http.StatusUnauthorized, code)

	code, res = s.do("POST", "/api/v1/mpesa/callback?token="+callbackToken, callback, "")
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), int64(0), gjson.Get(res, "ResultCode").Int())
	assert.Equal(s.T(), "Accepted", gjson.Get(res, "ResultDesc").String())

	code, res = s.do("POST", "/api/v1/mpesa/callback?token="+callbackToken, callback, "")
	assert.Equal(s.T(), http.StatusOK, code, "repeated callbacks are acknowledged")

	code, res = s.do("GET", "/api/v1/payment-status?checkout_request_id="+ref, nil, "")
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "completed", gjson.Get(res, "status").String())

	code, res = s.do("GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), nil, "")
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "confirmed", gjson.Get(res, "data.status").String())

	req, _ := http.NewRequest("GET", fmt.Sprintf("/api/v1/bookings/%d/receipt", bookingId), nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "application/pdf", w.Header().Get("Content-Type"))
	assert.True(s.T(), strings.HasPrefix(w.Body.String(), "%PDF"))

	code, res = s.do("POST", "/api/v1/mpesa/callback?token="+callbackToken, `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_404","ResultCode":0}}}`, "")
	assert.Equal(s.T(), http.StatusNotFound, code)
	assert.Equal(s.T(), "payment not found", gjson.Get(res, "ResultDesc").String())

	code, res = s.do("POST", "/api/v1/mpesa/callback?token="+callbackToken, `{"Body":{}}`, "")
	assert.Equal(s.T(), http.StatusBadRequest, code)
	assert.Equal(s.T(), "malformed callback", gjson.Get(res, "ResultDesc").String())
}

func (s *TestSuite) TestFailedMobileMoneyReleasesSeats() {
	s.seedVehicle()
	bookingId := s.createBooking("A3")

	code, res := s.do("POST", "/api/v1/mpesa/stkpush", map[string]any{"phone": "254712345678", "amount": 500, "booking_id": bookingId}, "")
	s.Require().Equal(http.StatusOK, code, res)
	ref := gjson.Get(res, "checkout_request_id").String()

	callback := fmt.Sprintf(`{"Body":{"stkCallback":{"CheckoutRequestID":%q,"ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`, ref)
	code, _ = s.do("POST", "/api/v1/mpesa/callback?token="+callbackToken, callback, "")
	assert.Equal(s.T(), http.StatusOK, code)

	code, res = s.do("GET", "/api/v1/payment-status?checkout_request_id="+ref, nil, "")
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "failed", gjson.Get(res, "status").String())

	code, _ = s.do("GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), nil, "")
	assert.Equal(s.T(), http.StatusNotFound, code)

	s.createBooking("A3")
}

func (s *TestSuite) TestSeatConflict() {
	s.seedVehicle()
	s.createBooking("A1")

	code, res := s.do("POST", "/api/v1/bookings", map[string]any{
		"user_id":        s.Customer.ID,
		"vehicle_id":     "KAA001X",
		"seats":          []string{"A1"},
		"departure":      "Nairobi",
		"destination":    "Nakuru",
		"departure_date": time.Now().AddDate(0, 0, 1).Format(config.DATE_PARSE_FORMAT),
		"departure_time": "08:30",
		"price":          500,
		"total_price":    500,
	}, "")
	assert.Equal(s.T(), http.StatusConflict, code)
	assert.NotEmpty(s.T(), gjson.Get(res, "error").String())

	code, _ = s.do("POST", "/api/v1/bookings", map[string]any{
		"user_id":        s.Customer.ID,
		"vehicle_id":     "KAA001X",
		"seats":          []string{"A2", "A3"},
		"departure":      "Nairobi",
		"destination":    "Nakuru",
		"departure_date": time.Now().AddDate(0, 0, 1).Format(config.DATE_PARSE_FORMAT),
		"departure_time": "08:30",
		"price":          500,
		"total_price":    500,
	}, "")
	assert.Equal(s.T(), http.StatusBadRequest, code, "total must match seat count")
}

func (s *TestSuite) stripeRequest(payload []byte, header string) int {
	req, _ := http.NewRequest("POST", "/api/v1/webhook/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w.Code
}

func (s *TestSuite) TestCardCheckoutAndStripeWebhook() {
	s.seedVehicle()
	bookingId := s.createBooking("A4")

	code, res := s.do("POST", "/api/v1/checkout-session", map[string]any{"booking_id": bookingId, "total_price": 500, "user_id": s.Customer.ID}, "")
	s.Require().Equal(http.StatusOK, code, res)
	sessionId := gjson.Get(res, "session_id").String()
	assert.NotEmpty(s.T(), gjson.Get(res, "url").String())

	code, _ = s.do("POST", "/api/v1/checkout-session", map[string]any{"booking_id": 9999, "total_price": 500, "user_id": s.Customer.ID}, "")
	assert.Equal(s.T(), http.StatusNotFound, code)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {"object": {"id": %q, "object": "checkout.session", "payment_status": "paid", "payment_intent": "pi_test_1"}}
	}`, stripe.APIVersion, sessionId))

	assert.Equal(s.T(), http.StatusBadRequest, s.stripeRequest(payload, "t=1,v1=deadbeef"))

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})
	assert.Equal(s.T(), http.StatusNoContent, s.stripeRequest(signed.Payload, signed.Header))

	code, res = s.do("GET", "/api/v1/payment-status?checkout_request_id="+sessionId, nil, "")
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "completed", gjson.Get(res, "status").String())

	code, res = s.do("GET", fmt.Sprintf("/api/v1/bookings/%d", bookingId), nil, "")
	assert.Equal(s.T(), "confirmed", gjson.Get(res, "data.status").String())

	unknown := []byte(fmt.Sprintf(`{
		"id": "evt_test_2",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.expired",
		"data": {"object": {"id": "cs_unknown", "object": "checkout.session"}}
	}`, stripe.APIVersion))
	signed = webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: unknown, Secret: webhookSecret})
	assert.Equal(s.T(), http.StatusNoContent, s.stripeRequest(signed.Payload, signed.Header))
}

func (s *TestSuite) TestTickets() {
	code, res := s.do("POST", "/api/v1/tickets", map[string]any{"subject": "Lost bag", "message": "Left it on seat A1"}, s.AdminToken)
	s.Require().Equal(http.StatusCreated, code, res)
	id := gjson.Get(res, "data.id").String()

	code, res = s.do("GET", "/api/v1/tickets", nil, s.AdminToken)
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), int64(1), gjson.Get(res, "count").Int())

	code, _ = s.do("GET", "/api/v1/tickets/not-a-uuid", nil, s.AdminToken)
	assert.Equal(s.T(), http.StatusBadRequest, code)

	code, res = s.do("PUT", "/api/v1/tickets/"+id+"/close", nil, s.AdminToken)
	assert.Equal(s.T(), http.StatusOK, code)
	assert.Equal(s.T(), "closed", gjson.Get(res, "data.status").String())

	code, _ = s.do("PUT", "/api/v1/tickets/"+id+"/close", nil, s.AdminToken)
	assert.Equal(s.T(), http.StatusConflict, code)
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
