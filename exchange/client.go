package exchange

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"tradewire/logger"
)

// Credentials configures venue authentication. Which fields are required
// depends on the adapter; a private call with missing credentials fails
// with AuthenticationError before any network I/O.
type Credentials struct {
	APIKey        string
	Secret        string
	Password      string
	WalletAddress string
	PrivateKey    string
}

// Request is a fully signed outgoing HTTP request: the adapter's signer has
// already folded parameters into URL, body, and headers.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// Response is the raw venue reply handed to the adapter's classifier.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	JSON   gjson.Result
}

// Classifier inspects every HTTP response before control returns to the
// caller. A nil return means success; anything else is a classified Error.
type Classifier func(res *Response) error

// Client is the shared HTTP core under every adapter: resty transport, a
// token-bucket limiter, and the adapter's response classifier. It performs
// exactly one request per call; retry policy belongs to the caller.
type Client struct {
	id       string
	http     *resty.Client
	limiter  *rate.Limiter
	classify Classifier
	log      *logger.Log
}

// ClientOptions tunes the shared transport.
type ClientOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// NewClient builds the transport for one adapter instance.
func NewClient(id string, opts ClientOptions, classify Classifier) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "tradewire/1.0")
	return &Client{
		id:       id,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		classify: classify,
		log:      logger.GetLogger(),
	}
}

// Do executes one signed request. Transport failures come back as
// NetworkError; venue-level failures are whatever the classifier raises.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, WrapError(KindNetwork, c.id, err)
	}

	r := c.http.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	start := time.Now()
	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		c.log.WithComponent(c.id).WithError(err).WithFields(logger.Fields{
			"method": req.Method,
			"url":    req.URL,
		}).Warn("request failed")
		return nil, WrapError(KindNetwork, c.id, err)
	}

	logger.LogRequest(c.log, c.id, req.Method, req.URL, res.StatusCode(), time.Since(start))

	response := &Response{
		Status: res.StatusCode(),
		Header: res.Header(),
		Body:   res.Body(),
		JSON:   gjson.ParseBytes(res.Body()),
	}
	if c.classify != nil {
		if err := c.classify(response); err != nil {
			return nil, err
		}
	}
	if response.Status >= http.StatusBadRequest {
		if kind, ok := HTTPStatusKind(response.Status); ok {
			return nil, NewError(kind, c.id, fmt.Sprintf("HTTP %d %s", response.Status, truncate(response.Body, 256)))
		}
		return nil, NewError(KindExchange, c.id, fmt.Sprintf("HTTP %d %s", response.Status, truncate(response.Body, 256)))
	}
	return response, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
