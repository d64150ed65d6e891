package gateway

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
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pumbaabetiverse/sendswin-core/pkg/errno"
	"github.com/pumbaabetiverse/sendswin-core/pkg/logger"
)

// Client 交易所风格的签名 REST 客户端。
// 每个请求: query 串 + timestamp + recvWindow，HMAC-SHA256 签名后附在 signature 参数。
type Client struct {
	baseURL    string
	timeout    time.Duration
	recvWindow int

	mu           sync.Mutex
	httpByEgress map[string]*http.Client // 按代理地址复用 http.Client
}

func NewClient(baseURL string, timeout time.Duration, recvWindow int) *Client {
	return &Client{
		baseURL:      baseURL,
		timeout:      timeout,
		recvWindow:   recvWindow,
		httpByEgress: make(map[string]*http.Client),
	}
}

// httpClient 返回走指定代理的 http.Client (超时固定，单账号挂死不拖垮整轮扫描)
func (c *Client) httpClient(proxyURL string) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if hc, ok := c.httpByEgress[proxyURL]; ok {
		return hc, nil
	}

	transport := &http.Transport{}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("非法代理地址 %q: %w", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	hc := &http.Client{Transport: transport, Timeout: c.timeout}
	c.httpByEgress[proxyURL] = hc
	return hc, nil
}

// sign 计算 query 的 HMAC-SHA256 签名
func sign(secret, query string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// do 发起一次签名请求并解析 JSON 响应
func (c *Client) do(ctx context.Context, creds Credentials, method, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.Itoa(c.recvWindow))

	query := params.Encode()
	query += "&signature=" + sign(creds.APISecret, query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", creds.APIKey)

	hc, err := c.httpClient(creds.ProxyURL)
	if err != nil {
		return err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errno.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", errno.ErrUpstream, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode: %v", errno.ErrUpstream, err)
	}
	return nil
}

func (c *Client) RecentTransactions(ctx context.Context, creds Credentials, limit int) ([]Transaction, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Data []struct {
			OrderID     string `json:"orderId"`
			TxID        string `json:"transactionId"`
			Type        string `json:"transactionType"`
			Currency    string `json:"currency"`
			Amount      string `json:"amount"`
			PayerHandle string `json:"counterpartyId"`
			Time        int64  `json:"transactionTime"`
		} `json:"data"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "/sapi/v1/pay/transactions", params, &resp); err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(resp.Data))
	for _, d := range resp.Data {
		amount, err := decimal.NewFromString(d.Amount)
		if err != nil {
			logger.Warn("网关返回非法金额，跳过该笔", zap.String("order_id", d.OrderID), zap.String("amount", d.Amount))
			continue
		}
		txs = append(txs, Transaction{
			OrderID:     d.OrderID,
			TxID:        d.TxID,
			Type:        d.Type,
			Currency:    d.Currency,
			Amount:      amount,
			PayerHandle: d.PayerHandle,
			Time:        time.UnixMilli(d.Time),
		})
	}
	return txs, nil
}

func (c *Client) Balance(ctx context.Context, creds Credentials, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("asset", symbol)

	var resp []struct {
		Asset string `json:"asset"`
		Free  string `json:"free"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "/sapi/v3/asset/getUserAsset", params, &resp); err != nil {
		return decimal.Zero, err
	}
	for _, b := range resp {
		if b.Asset == symbol {
			return decimal.NewFromString(b.Free)
		}
	}
	return decimal.Zero, nil
}

// Withdraw 提交划转并轮询回执，直到网关给出 tx hash 或超时。
// 已提交但等不到确认 → 返回错误，本层不建模部分成功。
func (c *Client) Withdraw(ctx context.Context, creds Credentials, dest, network, symbol string, amount decimal.Decimal) (Receipt, error) {
	params := url.Values{}
	params.Set("coin", symbol)
	params.Set("network", network)
	params.Set("address", dest)
	params.Set("amount", amount.String())

	var submitted struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, creds, http.MethodPost, "/sapi/v1/capital/withdraw/apply", params, &submitted); err != nil {
		return Receipt{}, err
	}

	// 阻塞等待确认，5 秒一查，整体受 ctx 限时
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%w: 等待回执超时 (withdraw id %s): %v", errno.ErrUpstream, submitted.ID, ctx.Err())
		case <-ticker.C:
			receipt, done, err := c.withdrawReceipt(ctx, creds, submitted.ID)
			if err != nil {
				return Receipt{}, err
			}
			if done {
				return receipt, nil
			}
		}
	}
}

// withdrawReceipt 查一次提现历史，完成态 (status 6) 才返回 done
func (c *Client) withdrawReceipt(ctx context.Context, creds Credentials, withdrawID string) (Receipt, bool, error) {
	var resp []struct {
		ID             string `json:"id"`
		TxID           string `json:"txId"`
		TransactionFee string `json:"transactionFee"`
		Status         int    `json:"status"`
	}
	if err := c.do(ctx, creds, http.MethodGet, "/sapi/v1/capital/withdraw/history", nil, &resp); err != nil {
		return Receipt{}, false, err
	}

	for _, w := range resp {
		if w.ID != withdrawID {
			continue
		}
		if w.Status != 6 || w.TxID == "" { // 6 = completed
			return Receipt{}, false, nil
		}
		fee, err := decimal.NewFromString(w.TransactionFee)
		if err != nil {
			fee = decimal.Zero
		}
		return Receipt{TxHash: w.TxID, Fee: fee}, true, nil
	}
	return Receipt{}, false, nil
}

// Ping 无签名连通性探测 (走该账号的代理出口)
func (c *Client) Ping(ctx context.Context, creds Credentials) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ping", nil)
	if err != nil {
		return err
	}
	hc, err := c.httpClient(creds.ProxyURL)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping status %d", errno.ErrUpstream, resp.StatusCode)
	}
	return nil
}
