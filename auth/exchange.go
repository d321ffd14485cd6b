package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-phase-session/internal/utils"
	"github.com/pkg/errors"
)

const defaultExchangeTimeout = 15 * time.Second

// Exchanger swaps an authorization code for an access token.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// ExchangerFunc adapts a function to the Exchanger interface.
type ExchangerFunc func(ctx context.Context, code string) (string, error)

func (f ExchangerFunc) Exchange(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

// exchangeResponse is the proxy's reply; exactly one field is normally set.
type exchangeResponse struct {
	Token *string `json:"token,omitempty"`
	Error *string `json:"error,omitempty"`
}

// ProxyExchanger calls the token-exchange proxy at
// GET <baseURL>/<code>/client_id/<clientID>.
type ProxyExchanger struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// ProxyExchangerOption configures a ProxyExchanger.
type ProxyExchangerOption func(*ProxyExchanger)

func WithHTTPClient(client *http.Client) ProxyExchangerOption {
	return func(pe *ProxyExchanger) {
		pe.httpClient = client
	}
}

func NewProxyExchanger(baseURL, clientID string, options ...ProxyExchangerOption) (*ProxyExchanger, error) {
	if baseURL == "" {
		return nil, errors.New("[NewProxyExchanger] baseURL is required")
	}
	if clientID == "" {
		return nil, errors.New("[NewProxyExchanger] clientID is required")
	}
	pe := &ProxyExchanger{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{Timeout: defaultExchangeTimeout},
	}
	for _, opt := range options {
		opt(pe)
	}
	return pe, nil
}

// Exchange performs the one-shot exchange. A provider-reported error field is
// returned as ErrProviderError even when the HTTP status is 200.
func (pe *ProxyExchanger) Exchange(ctx context.Context, code string) (string, error) {
	endpoint := pe.baseURL + "/" + url.PathEscape(code) + "/client_id/" + url.PathEscape(pe.clientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "[ProxyExchanger.Exchange] NewRequest")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := pe.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrExchangeFailed, "[ProxyExchanger.Exchange] %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body exchangeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if providerErr := utils.Value(body.Error); providerErr != "" {
		return "", errors.Wrapf(ErrProviderError, "[ProxyExchanger.Exchange] %s", providerErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Wrapf(ErrExchangeFailed, "[ProxyExchanger.Exchange] status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", errors.Wrapf(ErrExchangeFailed, "[ProxyExchanger.Exchange] decode: %v", decodeErr)
	}

	accessToken := utils.Value(body.Token)
	if accessToken == "" {
		return "", ErrEmptyToken
	}
	return accessToken, nil
}
