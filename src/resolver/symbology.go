package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

// SymbologyClient resolves identifiers through an external symbology
// service. Both methods report found=false for a clean miss; err is reserved
// for transport-level failures.
type SymbologyClient interface {
	LookupISIN(ctx context.Context, isin string) (models.Instrument, bool, error)
	SearchName(ctx context.Context, name string) (models.Instrument, bool, error)
}

type symbologySearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		Shortname string `json:"shortname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// httpSymbologyClient queries a Yahoo-style finance search endpoint. All
// outbound calls go through a shared rate limiter; the cookie jar keeps the
// session the endpoint expects.
type httpSymbologyClient struct {
	httpClient http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewSymbologyClient creates the rate-limited HTTP symbology client.
func NewSymbologyClient(baseURL string, every time.Duration, timeout time.Duration) SymbologyClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &httpSymbologyClient{
		httpClient: http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(every), 1),
		baseURL: baseURL,
	}
}

func (c *httpSymbologyClient) LookupISIN(ctx context.Context, isin string) (models.Instrument, bool, error) {
	return c.search(ctx, isin)
}

func (c *httpSymbologyClient) SearchName(ctx context.Context, name string) (models.Instrument, bool, error) {
	return c.search(ctx, name)
}

func (c *httpSymbologyClient) search(ctx context.Context, query string) (models.Instrument, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Instrument{}, false, err
	}

	searchURL := fmt.Sprintf("%s/v1/finance/search?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return models.Instrument{}, false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Instrument{}, false, fmt.Errorf("symbology search for %q failed: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Instrument{}, false, fmt.Errorf("symbology search for %q returned status %d", query, resp.StatusCode)
	}

	var searchData symbologySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchData); err != nil {
		return models.Instrument{}, false, fmt.Errorf("failed to decode symbology response for %q: %w", query, err)
	}

	if len(searchData.Quotes) == 0 {
		return models.Instrument{}, false, nil
	}

	q := searchData.Quotes[0]
	return models.Instrument{
		Ticker:      q.Symbol,
		DisplayName: q.Shortname,
		Exchange:    q.Exchange,
		AssetClass:  assetClassFromQuoteType(q.QuoteType),
	}, true, nil
}

func assetClassFromQuoteType(quoteType string) string {
	switch quoteType {
	case "EQUITY":
		return "STOCK"
	case "ETF", "MUTUALFUND":
		return "ETF"
	case "CRYPTOCURRENCY":
		return "CRYPTO"
	case "":
		return ""
	default:
		return quoteType
	}
}
