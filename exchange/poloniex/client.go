// Copyright (c) 2025 madmickstar

// Package poloniex implements exchange.Client against the Poloniex REST
// API. Public data comes from the public endpoint; account operations go
// through the trading endpoint with HMAC-SHA512 signed form bodies.
package poloniex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/madmickstar/polo-trader/book"
	"github.com/madmickstar/polo-trader/exchange"
)

const (
	publicURL  = "https://poloniex.com/public"
	tradingURL = "https://poloniex.com/tradingApi"

	// bookDepth is how many levels each order-book fetch requests. Quotes
	// walk cumulative depth, so a shallow fetch would misreport liquidity.
	bookDepth = 100
)

// dateFormat is the timestamp layout in Poloniex responses, UTC.
const dateFormat = "2006-01-02 15:04:05"

type Options struct {
	PublicURL  string
	TradingURL string

	// RequestsPerSecond caps the request rate across both endpoints.
	RequestsPerSecond int

	Timeout time.Duration
}

func (o *Options) setDefaults() {
	if o.PublicURL == "" {
		o.PublicURL = publicURL
	}
	if o.TradingURL == "" {
		o.TradingURL = tradingURL
	}
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = 6
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
}

type Client struct {
	opts Options

	key    string
	secret []byte

	client  *http.Client
	limiter *rate.Limiter

	nonce atomic.Int64
}

var _ exchange.Client = (*Client)(nil)

func New(key, secret string, opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	c := &Client{
		opts:    *opts,
		key:     key,
		secret:  []byte(secret),
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
	}
	c.nonce.Store(time.Now().UnixNano())
	return c, nil
}

// apiError is the {"error": "..."} payload Poloniex returns for rejected
// requests, with HTTP status 200 more often than not.
type apiError struct {
	Error string `json:"error"`
}

func (c *Client) classify(msg string) error {
	if strings.Contains(strings.ToLower(msg), "not enough") {
		return fmt.Errorf("%s: %w", msg, exchange.ErrNotEnough)
	}
	return fmt.Errorf("poloniex: %s", msg)
}

func (c *Client) getJSON(ctx context.Context, values url.Values, result any) error {
	u := c.opts.PublicURL + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c *Client) postJSON(ctx context.Context, command string, values url.Values, result any) error {
	if values == nil {
		values = url.Values{}
	}
	values.Set("command", command)
	values.Set("nonce", strconv.FormatInt(c.nonce.Add(1), 10))
	body := values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.TradingURL, strings.NewReader(body))
	if err != nil {
		return err
	}
	mac := hmac.New(sha512.New, c.secret)
	mac.Write([]byte(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Key", c.key)
	req.Header.Set("Sign", hex.EncodeToString(mac.Sum(nil)))
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("poloniex request failed", "url", req.URL.Path, "err", err)
		}
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read poloniex response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
			return c.classify(ae.Error)
		}
		return fmt.Errorf("poloniex returned status %d", resp.StatusCode)
	}
	var ae apiError
	if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
		return c.classify(ae.Error)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("could not unmarshal poloniex response: %w", err)
	}
	return nil
}

// rawBook carries levels as [price, size] pairs of mixed string/number
// JSON values.
type rawBook struct {
	Asks [][2]json.Number `json:"asks"`
	Bids [][2]json.Number `json:"bids"`
}

func toLevels(raw [][2]json.Number) ([]book.Level, error) {
	levels := make([]book.Level, 0, len(raw))
	for _, pair := range raw {
		price, err := decimal.NewFromString(pair[0].String())
		if err != nil {
			return nil, fmt.Errorf("bad level price %q: %w", pair[0], err)
		}
		size, err := decimal.NewFromString(pair[1].String())
		if err != nil {
			return nil, fmt.Errorf("bad level size %q: %w", pair[1], err)
		}
		levels = append(levels, book.Level{Price: price, Size: size})
	}
	return levels, nil
}

func (c *Client) GetOrderBook(ctx context.Context, pair string, side exchange.BookSide) ([]book.Level, error) {
	values := url.Values{}
	values.Set("command", "returnOrderBook")
	values.Set("currencyPair", pair)
	values.Set("depth", strconv.Itoa(bookDepth))

	var raw rawBook
	if err := c.getJSON(ctx, values, &raw); err != nil {
		return nil, err
	}
	if side == exchange.Bids {
		return toLevels(raw.Bids)
	}
	return toLevels(raw.Asks)
}

func (c *Client) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	var raw map[string]string
	if err := c.postJSON(ctx, "returnBalances", nil, &raw); err != nil {
		return nil, err
	}
	balances := make(map[string]decimal.Decimal, len(raw))
	for sym, amount := range raw {
		v, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad %s balance %q: %w", sym, amount, err)
		}
		balances[sym] = v
	}
	return balances, nil
}

type rawOpenOrder struct {
	OrderNumber string          `json:"orderNumber"`
	Type        string          `json:"type"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Total       decimal.Decimal `json:"total"`
	Date        string          `json:"date"`
}

func (r *rawOpenOrder) toOrder() (exchange.OpenOrder, error) {
	date, err := time.ParseInLocation(dateFormat, r.Date, time.UTC)
	if err != nil {
		return exchange.OpenOrder{}, fmt.Errorf("bad order date %q: %w", r.Date, err)
	}
	return exchange.OpenOrder{
		OrderID: exchange.OrderID(r.OrderNumber),
		Side:    r.Type,
		Amount:  r.Amount,
		Rate:    r.Rate,
		Total:   r.Total,
		Date:    date,
	}, nil
}

func (c *Client) GetOpenOrders(ctx context.Context) (map[string][]exchange.OpenOrder, error) {
	values := url.Values{}
	values.Set("currencyPair", "all")

	var raw map[string][]rawOpenOrder
	if err := c.postJSON(ctx, "returnOpenOrders", values, &raw); err != nil {
		return nil, err
	}
	orders := make(map[string][]exchange.OpenOrder, len(raw))
	for pair, list := range raw {
		for _, ro := range list {
			o, err := ro.toOrder()
			if err != nil {
				return nil, err
			}
			orders[pair] = append(orders[pair], o)
		}
	}
	return orders, nil
}

type placeResponse struct {
	OrderNumber string `json:"orderNumber"`
}

func (c *Client) place(ctx context.Context, command, pair string, price, units decimal.Decimal) (exchange.OrderID, error) {
	values := url.Values{}
	values.Set("currencyPair", pair)
	values.Set("rate", price.String())
	values.Set("amount", units.String())

	var resp placeResponse
	if err := c.postJSON(ctx, command, values, &resp); err != nil {
		return "", err
	}
	if resp.OrderNumber == "" {
		return "", fmt.Errorf("poloniex %s on %s returned no order number", command, pair)
	}
	return exchange.OrderID(resp.OrderNumber), nil
}

func (c *Client) PlaceSell(ctx context.Context, pair string, price, units decimal.Decimal) (exchange.OrderID, error) {
	return c.place(ctx, "sell", pair, price, units)
}

func (c *Client) PlaceBuy(ctx context.Context, pair string, price, units decimal.Decimal) (exchange.OrderID, error) {
	return c.place(ctx, "buy", pair, price, units)
}

type rawTrade struct {
	OrderNumber string          `json:"orderNumber"`
	Type        string          `json:"type"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Total       decimal.Decimal `json:"total"`
	Fee         decimal.Decimal `json:"fee"`
	Date        string          `json:"date"`
}

func (c *Client) GetTradeHistory(ctx context.Context, pair string, since time.Time) ([]exchange.Trade, error) {
	values := url.Values{}
	values.Set("currencyPair", pair)
	values.Set("start", strconv.FormatInt(since.Unix(), 10))
	values.Set("end", strconv.FormatInt(time.Now().Unix(), 10))

	var raw []rawTrade
	if err := c.postJSON(ctx, "returnTradeHistory", values, &raw); err != nil {
		return nil, err
	}
	trades := make([]exchange.Trade, 0, len(raw))
	for _, rt := range raw {
		date, err := time.ParseInLocation(dateFormat, rt.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad trade date %q: %w", rt.Date, err)
		}
		trades = append(trades, exchange.Trade{
			OrderID: exchange.OrderID(rt.OrderNumber),
			Side:    rt.Type,
			Amount:  rt.Amount,
			Rate:    rt.Rate,
			Total:   rt.Total,
			Fee:     rt.Fee,
			Date:    date,
		})
	}
	return trades, nil
}
