// Package gateway はPaystack互換の決済APIクライアント。
// 金額は最小単位（ペセワ・コボ等）の整数で送受信する
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Smart3990/Kiyumart-sub000/internal/config"
	"github.com/Smart3990/Kiyumart-sub000/internal/usecase"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// 到達できない・2xx以外・壊れた応答。呼び出し側はリトライしてよい
var ErrUnavailable = errors.New("payment gateway unavailable")

type Paystack struct {
	secretKey   string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ usecase.PaymentGateway = (*Paystack)(nil)

func NewPaystack(cfg config.PaymentConfig, logger *zap.Logger) *Paystack {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Paystack{
		secretKey:   cfg.SecretKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("paystack"),
	}
}

func (p *Paystack) Configured() bool {
	return strings.TrimSpace(p.secretKey) != ""
}

type initializeRequest struct {
	Email       string           `json:"email"`
	Amount      int64            `json:"amount"`
	Currency    string           `json:"currency"`
	CallbackURL string           `json:"callback_url,omitempty"`
	Metadata    metadataEnvelope `json:"metadata"`
}

// メタデータのIDは文字列で送る（プロバイダ側で数値の丸めを避ける）
type metadataEnvelope struct {
	OrderID     string `json:"orderId"`
	UserID      string `json:"userId"`
	OrderNumber string `json:"orderNumber"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata"`
}

func (p *Paystack) Initialize(ctx context.Context, req usecase.PaymentInitRequest) (usecase.PaymentInitResult, error) {
	body := initializeRequest{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Currency:    req.Currency,
		CallbackURL: p.callbackURL,
		Metadata: metadataEnvelope{
			OrderID:     strconv.FormatInt(req.Metadata.OrderID, 10),
			UserID:      strconv.FormatInt(req.Metadata.UserID, 10),
			OrderNumber: req.Metadata.OrderNumber,
		},
	}

	env, _, err := p.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return usecase.PaymentInitResult{}, err
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return usecase.PaymentInitResult{}, fmt.Errorf("%w: decode initialize data: %v", ErrUnavailable, err)
	}

	return usecase.PaymentInitResult{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (usecase.GatewayVerification, error) {
	env, raw, err := p.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return usecase.GatewayVerification{}, err
	}

	var data verifyData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return usecase.GatewayVerification{}, fmt.Errorf("%w: decode verify data: %v", ErrUnavailable, err)
	}

	md, err := parseMetadata(data.Metadata)
	if err != nil {
		return usecase.GatewayVerification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return usecase.GatewayVerification{
		Reference:       data.Reference,
		Success:         data.Status == "success",
		Status:          data.Status,
		AmountMinor:     data.Amount,
		Currency:        data.Currency,
		Channel:         data.Channel,
		GatewayResponse: data.GatewayResponse,
		Metadata:        md,
		Raw:             raw,
	}, nil
}

// 1回だけ呼ぶ。リトライは呼び出し側の責任
func (p *Paystack) do(ctx context.Context, method, path string, body any) (envelope, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return envelope{}, nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return envelope{}, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return envelope{}, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return envelope{}, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("gateway returned non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return envelope{}, nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if !env.Status {
		return envelope{}, nil, fmt.Errorf("%w: %s", ErrUnavailable, env.Message)
	}
	return env, raw, nil
}

// IDは文字列でも数値でも受ける
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = flexibleID(v)
	return nil
}

type metadataIn struct {
	OrderID     flexibleID `json:"orderId"`
	UserID      flexibleID `json:"userId"`
	OrderNumber string     `json:"orderNumber"`
}

func parseMetadata(raw json.RawMessage) (usecase.PaymentMetadata, error) {
	trimmed := bytes.TrimSpace(raw)
	//メタデータなしは空文字やnullで返ってくる
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return usecase.PaymentMetadata{}, nil
	}

	var m metadataIn
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return usecase.PaymentMetadata{}, fmt.Errorf("decode metadata: %v", err)
	}
	return usecase.PaymentMetadata{
		OrderID:     int64(m.OrderID),
		UserID:      int64(m.UserID),
		OrderNumber: m.OrderNumber,
	}, nil
}
