package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"gopkg.in/resty.v1"
)

const (
	ExchangePull   = "pull"
	ExchangeUpload = "upload"
)

func init() {
	Register(ExchangePull, func(cfg *config.Config) (Exchanger, error) {
		return newHTTPExchanger(ExchangePull, cfg)
	})
	Register(ExchangeUpload, func(cfg *config.Config) (Exchanger, error) {
		return newHTTPExchanger(ExchangeUpload, cfg)
	})
}

type uploadRequest struct {
	Data snapshot.Snapshot `json:"data"`
}

// HTTPExchanger pulls the latest snapshot with a GET, or pushes the
// current one with a POST of {"data": snapshot}.
type HTTPExchanger struct {
	name   string
	url    string
	client *resty.Client
}

func newHTTPExchanger(name string, cfg *config.Config) (*HTTPExchanger, error) {
	if cfg.RequestURL == "" {
		return nil, fmt.Errorf("request_url is required for %s", name)
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	return NewHTTPExchanger(name, cfg.RequestURL, timeout), nil
}

func NewHTTPExchanger(name, url string, timeout time.Duration) *HTTPExchanger {
	client := resty.NewWithClient(&http.Client{Timeout: timeout})
	client.SetHeader("Accept", "application/json")
	return &HTTPExchanger{name: name, url: url, client: client}
}

func (h *HTTPExchanger) Name() string {
	return h.name
}

func (h *HTTPExchanger) Exchange(ctx context.Context, current snapshot.Snapshot) ([]byte, error) {
	req := h.client.R()
	req.SetContext(ctx)

	var resp *resty.Response
	var err error
	if h.name == ExchangeUpload {
		body, marshalErr := json.Marshal(uploadRequest{Data: current})
		if marshalErr != nil {
			return nil, &RequestError{Exchange: h.name, Err: fmt.Errorf("failed to encode upload body: %w", marshalErr)}
		}
		resp, err = req.
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(h.url)
	} else {
		resp, err = req.Get(h.url)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, &RequestError{Exchange: h.name, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &RequestError{
			Exchange: h.name,
			Status:   resp.StatusCode(),
			Err:      fmt.Errorf("unexpected response from %s", h.url),
		}
	}
	return resp.Body(), nil
}
