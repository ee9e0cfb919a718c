package lib

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"vbs/src/config"

	"github.com/redis/go-redis/v9"
)

const mpesaTokenKey = "mpesa:access_token"

type STKPushInput struct {
	Phone       string
	Amount      int64
	Reference   string
	Description string
}

type STKPushResult struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// PushGateway sends a mobile-money push prompt to a payer's handset.
type PushGateway interface {
	STKPush(ctx context.Context, in STKPushInput) (*STKPushResult, error)
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// MpesaClient talks to the Daraja API. Access tokens are cached in redis when
// a client is supplied and fetched on every call otherwise.
type MpesaClient struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passKey        string
	callbackURL    string

	http  *http.Client
	cache *redis.Client
	now   func() time.Time
}

func NewMpesaClient(cfg *config.Config, rd *redis.Client) *MpesaClient {
	return &MpesaClient{
		baseURL:        strings.TrimRight(cfg.MpesaBaseURL, "/"),
		consumerKey:    cfg.MpesaConsumerKey,
		consumerSecret: cfg.MpesaConsumerSecret,
		shortCode:      cfg.MpesaShortCode,
		passKey:        cfg.MpesaPassKey,
		callbackURL:    cfg.MpesaCallbackEndpoint(),
		http:           &http.Client{Timeout: cfg.ProviderTimeout},
		cache:          rd,
		now:            time.Now,
	}
}

var nairobi = func() *time.Location {
	loc, err := time.LoadLocation("Africa/Nairobi")
	if err != nil {
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}()

// Timestamp formats t the way the provider expects, in East Africa time.
func Timestamp(t time.Time) string {
	return t.In(nairobi).Format("20060102150405")
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

func (m *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	if m.cache != nil {
		token, err := m.cache.Get(ctx, mpesaTokenKey).Result()
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && err != redis.Nil {
			log.Printf("[redis] Error reading mpesa token: %s\n", err.Error())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(m.consumerKey, m.consumerSecret)
	res, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return "", fmt.Errorf("token request: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	var tr tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response: empty access token")
	}

	if m.cache != nil {
		ttl := 3599 * time.Second
		if secs, err := strconv.Atoi(tr.ExpiresIn); err == nil {
			ttl = time.Duration(secs) * time.Second
		}
		// expire early so a token is never used right at its deadline
		if ttl > time.Minute {
			ttl -= time.Minute
		}
		if err := m.cache.SetEx(ctx, mpesaTokenKey, tr.AccessToken, ttl).Err(); err != nil {
			log.Printf("[redis] Error caching mpesa token: %s\n", err.Error())
		}
	}
	return tr.AccessToken, nil
}

func (m *MpesaClient) STKPush(ctx context.Context, in STKPushInput) (*STKPushResult, error) {
	token, err := m.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	ts := Timestamp(m.now())
	payload := stkPushRequest{
		BusinessShortCode: m.shortCode,
		Password:          Password(m.shortCode, m.passKey, ts),
		Timestamp:         ts,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            in.Amount,
		PartyA:            in.Phone,
		PartyB:            m.shortCode,
		PhoneNumber:       in.Phone,
		CallBackURL:       m.callbackURL,
		AccountReference:  in.Reference,
		TransactionDesc:   in.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	res, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stk push request: %w", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("stk push response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("stk push request: status %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}
	var result STKPushResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("stk push response: %w", err)
	}
	if result.ResponseCode != "0" || result.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stk push rejected: code=%s %s", result.ResponseCode, result.ResponseDescription)
	}
	return &result, nil
}
