package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trace-graph/internal/models"
)

// EtherscanClient fetches contract metadata from the Etherscan API: bytecode
// via the eth_getCode proxy and verified-source details via getsourcecode.
type EtherscanClient struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	rateLimiter *rateLimiter // free tier allows 5 req/sec
}

// NewEtherscanClient creates a new Etherscan API client
func NewEtherscanClient(apiKey string) *EtherscanClient {
	const requestsPerSecond = 4.0

	return &EtherscanClient{
		apiKey:      apiKey,
		baseURL:     "https://api.etherscan.io/api",
		client:      &http.Client{Timeout: 30 * time.Second},
		rateLimiter: newRateLimiter(requestsPerSecond),
	}
}

// rateLimiter implements a simple token bucket rate limiter
type rateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(requestsPerSecond float64) *rateLimiter {
	return &rateLimiter{
		tokens:     requestsPerSecond,
		maxTokens:  requestsPerSecond,
		refillRate: requestsPerSecond,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	r.lastRefill = now

	if r.tokens < 1 {
		waitTime := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()
		time.Sleep(waitTime)
		r.mu.Lock()
		r.tokens = 0
		r.lastRefill = time.Now()
	} else {
		r.tokens--
	}
}

type proxyResponse struct {
	Result string `json:"result"`
}

type sourceCodeResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Result  []sourceCodeResult `json:"result"`
}

type sourceCodeResult struct {
	SourceCode           string `json:"SourceCode"`
	ABI                  string `json:"ABI"`
	ContractName         string `json:"ContractName"`
	CompilerVersion      string `json:"CompilerVersion"`
	ConstructorArguments string `json:"ConstructorArguments"`
	LicenseType          string `json:"LicenseType"`
	Proxy                string `json:"Proxy"`
}

const notVerifiedABI = "Contract source code not verified"

// GetBytecode returns the deployed bytecode for an address, or nil for an EOA
func (c *EtherscanClient) GetBytecode(ctx context.Context, address string) ([]byte, error) {
	body, err := c.doRequest(ctx, c.buildURL("proxy", "eth_getCode", address))
	if err != nil {
		return nil, err
	}

	var resp proxyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse eth_getCode response: %w", err)
	}

	if resp.Result == "" || resp.Result == "0x" {
		return nil, nil
	}

	return common.FromHex(resp.Result), nil
}

// GetContractMetadata fetches verified-source details for a contract address.
// The returned metadata has IsContract unset; the caller decides that from
// the bytecode.
func (c *EtherscanClient) GetContractMetadata(ctx context.Context, address string) (*models.AddressMetadata, error) {
	body, err := c.doRequest(ctx, c.buildURL("contract", "getsourcecode", address))
	if err != nil {
		return nil, err
	}

	var resp sourceCodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse getsourcecode response: %w", err)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("empty getsourcecode result for %s", address)
	}

	result := resp.Result[0]
	meta := &models.AddressMetadata{
		Address:    address,
		IsVerified: result.ABI != notVerifiedABI,
		IsProxy:    result.Proxy == "1",
	}

	meta.ContractSourceCode = optionalString(result.SourceCode)
	if meta.IsVerified {
		meta.ContractABI = optionalString(result.ABI)
	}
	meta.ContractName = optionalString(result.ContractName)
	meta.CompilerVersion = optionalString(result.CompilerVersion)
	meta.ConstructorArguments = optionalString(result.ConstructorArguments)
	meta.LicenseType = optionalString(result.LicenseType)

	return meta, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (c *EtherscanClient) buildURL(module, action, address string) string {
	params := url.Values{}
	params.Set("module", module)
	params.Set("action", action)
	params.Set("address", address)
	params.Set("apikey", c.apiKey)
	return c.baseURL + "?" + params.Encode()
}

func (c *EtherscanClient) doRequest(ctx context.Context, url string) ([]byte, error) {
	const maxRetries = 3
	baseDelay := 1 * time.Second

	c.rateLimiter.wait()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to make request: %w", err)
			if err := sleepBackoff(ctx, baseDelay, attempt); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			delay := baseDelay * time.Duration(1<<uint(attempt))
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			}
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP error: %d - %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepBackoff(ctx context.Context, baseDelay time.Duration, attempt int) error {
	delay := baseDelay * time.Duration(1<<uint(attempt))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	}
}
