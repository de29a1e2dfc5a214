package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hedgefarm/pkg/ratelimit"
)

const (
	binanceBaseURL    = "https://fapi.binance.com"
	binanceRecvWindow = "5000"
)

// Лимиты Binance действуют по-аккаунтно; 10 req/sec с burst 20 хватает
// на цикл открытие-закрытие с запасом.
const (
	binanceRate  = 10
	binanceBurst = 20
)

// Binance реализует интерфейс Client для USDT-маржинальных фьючерсов Binance.
// Один экземпляр = один аккаунт (ключи, лимитер).
type Binance struct {
	label     string
	apiKey    string
	secretKey string
	baseURL   string

	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewBinance создаёт клиент для одного аккаунта.
// Использует глобальный HTTP клиент с connection pooling.
func NewBinance(label, apiKey, secretKey string) *Binance {
	return &Binance{
		label:      label,
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    binanceBaseURL,
		httpClient: GetGlobalHTTPClient(),
		limiter:    ratelimit.NewLimiter(binanceRate, binanceBurst),
	}
}

func (b *Binance) Label() string {
	return b.label
}

// sign создаёт HMAC-SHA256 подпись query string
func (b *Binance) sign(payload string) string {
	h := hmac.New(sha256.New, []byte(b.secretKey))
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest выполняет запрос к fapi. Для signed запросов добавляет
// timestamp, recvWindow и подпись.
func (b *Binance) doRequest(ctx context.Context, method, endpoint string, params url.Values, signed bool) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = url.Values{}
	}

	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", binanceRecvWindow)
	}

	// Подпись считается по закодированной строке и добавляется последней
	encoded := params.Encode()
	if signed {
		encoded += "&signature=" + b.sign(encoded)
	}

	reqURL := b.baseURL + endpoint
	if encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signed {
		req.Header.Set("X-MBX-APIKEY", b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Ошибки приходят как {"code": -2019, "msg": "Margin is insufficient."}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Msg != "" {
			return nil, &ExchangeError{
				Account: b.label,
				Code:    apiErr.Code,
				Message: apiErr.Msg,
			}
		}
		return nil, fmt.Errorf("%s: unexpected status %d: %s", b.label, resp.StatusCode, string(body))
	}

	return body, nil
}

// PlaceOrder размещает ордер
func (b *Binance) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("type", req.Type)
	params.Set("positionSide", req.PositionSide)
	params.Set("quantity", strconv.FormatFloat(req.Quantity, 'f', -1, 64))
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	body, err := b.doRequest(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OrderID     int64  `json:"orderId"`
		Symbol      string `json:"symbol"`
		Price       string `json:"price"`
		AvgPrice    string `json:"avgPrice"`
		OrigQty     string `json:"origQty"`
		ExecutedQty string `json:"executedQty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	return &Order{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol:      resp.Symbol,
		Price:       parseFloat(resp.Price),
		AvgPrice:    parseFloat(resp.AvgPrice),
		OrigQty:     parseFloat(resp.OrigQty),
		ExecutedQty: parseFloat(resp.ExecutedQty),
	}, nil
}

// GetSymbolPrice получает текущую цену инструмента
func (b *Binance) GetSymbolPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := b.doRequest(ctx, http.MethodGet, "/fapi/v1/ticker/price", params, false)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}

	price := parseFloat(resp.Price)
	if price <= 0 {
		return 0, fmt.Errorf("%s: invalid price %q for %s", b.label, resp.Price, symbol)
	}

	return price, nil
}

// SetLeverage выставляет плечо для инструмента
func (b *Binance) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	_, err := b.doRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params, true)
	return err
}

// GetPositions возвращает открытые позиции аккаунта
func (b *Binance) GetPositions(ctx context.Context) ([]Position, error) {
	body, err := b.doRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", nil, true)
	if err != nil {
		return nil, err
	}

	var resp []struct {
		Symbol       string `json:"symbol"`
		PositionSide string `json:"positionSide"`
		PositionAmt  string `json:"positionAmt"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, Position{
			Symbol:       p.Symbol,
			PositionSide: p.PositionSide,
			PositionAmt:  parseFloat(p.PositionAmt),
		})
	}

	return positions, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
