package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPOracle calls a wallet service's balance endpoint directly.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
}

func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPOracle{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

type balanceResponse struct {
	BalanceUSD float64 `json:"balance_usd"`
}

func (o *HTTPOracle) Balance(ctx context.Context, subscriberID string) (float64, error) {
	endpoint := fmt.Sprintf("%s/wallets/%s/balance", o.baseURL, url.PathEscape(subscriberID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("wallet: build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("wallet: decode response: %w", err)
	}
	return body.BalanceUSD, nil
}

// Decide applies the fail-open/fail-closed policy: if the oracle is
// unavailable, failClosed determines whether funds are treated as
// sufficient (false, risky) or insufficient (true, safe default).
func Decide(ctx context.Context, oracle Oracle, subscriberID string, requiredUSD float64, failClosed bool) (sufficient bool, err error) {
	balance, err := oracle.Balance(ctx, subscriberID)
	if err != nil {
		if failClosed {
			return false, nil
		}
		return true, nil
	}
	return balance >= requiredUSD, nil
}
