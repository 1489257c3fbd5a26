package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shadowScope/internal/endpoint"
	"shadowScope/internal/model"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 8 << 20
)

// RequestObserver receives one call per completed or failed request.
type RequestObserver interface {
	ObserveRequest(method, path string, statusCode int, d time.Duration)
}

// Client talks to the node's HTTP API.
type Client struct {
	httpClient *http.Client
	endpoints  endpoint.Endpoints
	observer   RequestObserver
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithObserver(observer RequestObserver) Option {
	return func(c *Client) { c.observer = observer }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the resolved endpoints.
func NewClient(endpoints endpoint.Endpoints, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoints:  endpoints,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the addresses this client was built with.
func (c *Client) Endpoints() endpoint.Endpoints {
	return c.endpoints
}

// Info reads /shadow/info as a loosely typed document. Numbers are kept as
// json.Number so the caller decides how to coerce them.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	const op = "chain info"
	data, err := c.send(ctx, op, http.MethodGet, "/shadow/info", "/shadow/info", nil)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var info map[string]any
	if err := dec.Decode(&info); err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return info, nil
}

// ChainInfo reads /shadow/info into its typed form.
func (c *Client) ChainInfo(ctx context.Context) (model.ChainInfo, error) {
	return getJSON[model.ChainInfo](ctx, c, "chain info", "/shadow/info", "/shadow/info")
}

func (c *Client) Validators(ctx context.Context) ([]model.Validator, error) {
	set, err := getJSON[model.ValidatorSet](ctx, c, "validator set", "/shadow/validators", "/shadow/validators")
	if err != nil {
		return nil, err
	}
	return set.Validators, nil
}

func (c *Client) RecentTransactions(ctx context.Context) ([]model.ExplorerTx, error) {
	return getJSON[[]model.ExplorerTx](ctx, c, "recent transactions", "/shadow/explorer", "/shadow/explorer")
}

func (c *Client) Transaction(ctx context.Context, signature string) (map[string]any, error) {
	if strings.TrimSpace(signature) == "" {
		return nil, &model.ValidationError{Field: "signature", Reason: "must not be empty"}
	}
	return getJSON[map[string]any](ctx, c, "transaction", "/shadow/tx/"+url.PathEscape(signature), "/shadow/tx/:signature")
}

func (c *Client) MerkleRoot(ctx context.Context) (model.MerkleRoot, error) {
	return getJSON[model.MerkleRoot](ctx, c, "merkle root", "/shadow/merkle-root", "/shadow/merkle-root")
}

// SubmitTransaction posts an already built transaction document.
func (c *Client) SubmitTransaction(ctx context.Context, tx json.RawMessage) (model.SubmitTxResponse, error) {
	if len(bytes.TrimSpace(tx)) == 0 {
		return model.SubmitTxResponse{}, &model.ValidationError{Field: "tx", Reason: "must not be empty"}
	}
	body := struct {
		Tx json.RawMessage `json:"tx"`
	}{Tx: tx}
	return postJSON[model.SubmitTxResponse](ctx, c, "submit transaction", "/shadow/tx", body)
}

func (c *Client) Balance(ctx context.Context, commitments []string) (model.Balance, error) {
	body := struct {
		Commitments []string `json:"commitments"`
	}{Commitments: commitments}
	if body.Commitments == nil {
		body.Commitments = []string{}
	}
	return postJSON[model.Balance](ctx, c, "balance", "/shadow/balance", body)
}

func (c *Client) GenerateAddress(ctx context.Context) (model.ShieldedAddress, error) {
	return getJSON[model.ShieldedAddress](ctx, c, "address generation", "/address/generate", "/address/generate")
}

func (c *Client) Faucet(ctx context.Context, address string) (model.FaucetResponse, error) {
	const op = "faucet"
	if strings.TrimSpace(address) == "" {
		return model.FaucetResponse{}, &model.ValidationError{Field: "address", Reason: "must not be empty"}
	}
	resp, err := getJSON[model.FaucetResponse](ctx, c, op, "/faucet/"+url.PathEscape(address), "/faucet/:address")
	if err != nil {
		return model.FaucetResponse{}, err
	}
	if !resp.Success {
		return resp, &model.ApplicationError{Op: op, Reason: reasonOr(resp.Error, "faucet transfer failed")}
	}
	return resp, nil
}

func (c *Client) Health(ctx context.Context) (model.Health, error) {
	return getJSON[model.Health](ctx, c, "health", "/health", "/health")
}

// BridgeDeposit submits a deposit and returns the bridge id assigned by the node.
func (c *Client) BridgeDeposit(ctx context.Context, req model.DepositRequest) (string, error) {
	const op = "bridge deposit"
	resp, err := postJSON[model.DepositResponse](ctx, c, op, "/bridge/deposit", req)
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.BridgeID == nil || *resp.BridgeID == "" {
		reason := "failed to create bridge deposit"
		if resp.Error != nil {
			reason = reasonOr(*resp.Error, reason)
		}
		return "", &model.ApplicationError{Op: op, Reason: reason}
	}
	return *resp.BridgeID, nil
}

func (c *Client) BridgeStatus(ctx context.Context, bridgeID string) (model.BridgeDeposit, error) {
	if strings.TrimSpace(bridgeID) == "" {
		return model.BridgeDeposit{}, &model.ValidationError{Field: "bridge_id", Reason: "must not be empty"}
	}
	return getJSON[model.BridgeDeposit](ctx, c, "bridge status", "/bridge/status/"+url.PathEscape(bridgeID), "/bridge/status/:bridge_id")
}

// BridgeWithdraw requests the withdrawal and returns the node's message.
func (c *Client) BridgeWithdraw(ctx context.Context, bridgeID, address string) (string, error) {
	const op = "bridge withdraw"
	resp, err := postJSON[model.WithdrawResponse](ctx, c, op, "/bridge/withdraw", model.WithdrawRequest{
		BridgeID:          bridgeID,
		WithdrawalAddress: address,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		reason := "withdrawal failed"
		if resp.Error != nil {
			reason = reasonOr(*resp.Error, reason)
		}
		return "", &model.ApplicationError{Op: op, Reason: reason}
	}
	if resp.Message != nil {
		return *resp.Message, nil
	}
	return "", nil
}

func (c *Client) BridgeHistory(ctx context.Context, address string) ([]model.BridgeDeposit, error) {
	if strings.TrimSpace(address) == "" {
		return nil, &model.ValidationError{Field: "address", Reason: "must not be empty"}
	}
	return getJSON[[]model.BridgeDeposit](ctx, c, "bridge history", "/bridge/history/"+url.PathEscape(address), "/bridge/history/:address")
}

func (c *Client) BridgeStats(ctx context.Context) (model.BridgeStats, error) {
	return getJSON[model.BridgeStats](ctx, c, "bridge stats", "/bridge/stats", "/bridge/stats")
}

func getJSON[T any](ctx context.Context, c *Client, op, path, template string) (T, error) {
	var out T
	data, err := c.send(ctx, op, http.MethodGet, path, template, nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

func postJSON[T any](ctx context.Context, c *Client, op, path string, body any) (T, error) {
	var out T
	data, err := c.send(ctx, op, http.MethodPost, path, path, body)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &model.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

// send performs one request and returns the body of a 200 response. Every
// other outcome is a *model.TransportError.
func (c *Client) send(ctx context.Context, op, method, path, template string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoints.API(path), reader)
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, template, 0, start)
		return nil, &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.observe(method, template, resp.StatusCode, start)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &model.TransportError{Op: op, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("node request", zap.String("method", method), zap.String("path", template), zap.Duration("took", time.Since(start)))
	return data, nil
}

func (c *Client) observe(method, template string, statusCode int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, template, statusCode, time.Since(start))
	}
}

func reasonOr(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}
	return reason
}
