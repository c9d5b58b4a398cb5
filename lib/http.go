package lib

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

const (
	backendMaxConns       = 100
	DefaultBackendTimeout = 10 * time.Second
)

// JSON is the codec shared by every backend client.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// NewRestyClient builds a JSON client for the admin backend rooted at baseURL.
// A nil httpClient gets a pooled transport with the given timeout.
func NewRestyClient(baseURL string, httpClient *http.Client, timeout time.Duration) *resty.Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = DefaultBackendTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxConnsPerHost:     backendMaxConns,
				MaxIdleConnsPerHost: backendMaxConns,
			},
		}
	}

	client := resty.
		NewWithClient(httpClient).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBaseURL(baseURL)
	client.JSONMarshal = JSON.Marshal
	client.JSONUnmarshal = JSON.Unmarshal
	return client
}
