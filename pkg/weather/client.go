// Package weather: клиент OpenWeatherMap (текущая погода).
//
// Клиент отвечает за HTTP: rate limiting, retry, разбор ошибок API.
// Обёртка для LLM (pkg/tools/std) только форматирует результат.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ilkoid/poncho-assist/pkg/config"
	"golang.org/x/time/rate"
)

// ErrorType: класс ошибки при обращении к API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrNotFound
	ErrTimeout
	ErrNetwork
	ErrRateLimit
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrNotFound:
		return "location_not_found"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// APIError: ответ API с кодом, отличным от 200.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweathermap error: status %d: %s", e.Status, e.Message)
}

// Classify определяет класс ошибки для диагностики.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuthFailed
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusTooManyRequests:
			return ErrRateLimit
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ErrTimeout
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return ErrNetwork
	}
	return ErrUnknown
}

// HTTPClient позволяет подменить транспорт в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client: клиент OpenWeatherMap.
type Client struct {
	apiKey        string
	baseURL       string
	units         string
	retryAttempts int
	httpClient    HTTPClient
	limiter       *rate.Limiter
}

// NewFromConfig создает клиент. Незаданные поля берутся из GetDefaults.
func NewFromConfig(cfg config.WeatherConfig) (*Client, error) {
	cfg = cfg.GetDefaults()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("weather.api_key is required (set %s)", config.EnvWeatherKey)
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid weather.timeout format: %w", err)
	}

	// rate_limit в запросах/минуту → rate.Limit в запросах/секунду
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60.0), cfg.BurstLimit)

	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		units:         cfg.Units,
		retryAttempts: cfg.RetryAttempts,
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       limiter,
	}, nil
}

// WithHTTPClient подменяет транспорт.
func (c *Client) WithHTTPClient(h HTTPClient) *Client {
	c.httpClient = h
	return c
}

// Units возвращает систему единиц запросов.
func (c *Client) Units() string { return c.units }

// Current возвращает текущую погоду для места ("Paris", "London,GB").
func (c *Client) Current(ctx context.Context, location string) (*Report, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, errors.New("location is empty")
	}

	params := url.Values{}
	params.Set("q", location)
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)

	var resp currentResponse
	if err := c.get(ctx, "/data/2.5/weather", params, &resp); err != nil {
		return nil, err
	}
	return resp.report(location, c.units), nil
}

// get выполняет GET с rate limiting и retry. 429 и сетевые ошибки
// повторяются, остальные ответы кроме 200 возвращаются как *APIError.
func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	u := c.baseURL + path + "?" + params.Encode()

	attempts := max(c.retryAttempts, 1)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{Status: resp.StatusCode, Message: apiMessage(body)}
			retryAfter := time.Second
			if s := resp.Header.Get("Retry-After"); s != "" {
				if sec, err := strconv.Atoi(s); err == nil {
					retryAfter = time.Duration(sec) * time.Second
				}
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter):
				continue
			}
		}

		if resp.StatusCode != http.StatusOK {
			return &APIError{Status: resp.StatusCode, Message: apiMessage(body)}
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded, last error: %w", lastErr)
}

// apiMessage достаёт поле message из ответа об ошибке.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}
