package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
)

// bridgeProperties is the properties block of a management-API publish request.
type bridgeProperties struct {
	ContentType string `json:"content_type"`
}

// bridgeRequest is the publish-request shape of the broker management API.
type bridgeRequest struct {
	Properties      bridgeProperties `json:"properties"`
	RoutingKey      string           `json:"routing_key"`
	Payload         string           `json:"payload"`
	PayloadEncoding string           `json:"payload_encoding"`
}

type bridgeResponse struct {
	Routed bool `json:"routed"`
}

type bridgePublisher struct {
	publishURL string
	requests   core.Requests
	logger     lumber.Logger
}

// newBridgePublisher rewrites an amqp+http(s) endpoint into the broker's
// management-API publish URL: fixed management port, fixed exchange, fixed
// routing key.
func newBridgePublisher(endpoint string, requests core.Requests, logger lumber.Logger) (*bridgePublisher, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	scheme := strings.TrimPrefix(strings.ToLower(u.Scheme), "amqp+")
	publishURL := scheme + "://" + u.Hostname() + ":" + global.ManagementAPIPort + global.ManagementPublishPath
	return &bridgePublisher{
		publishURL: publishURL,
		requests:   requests,
		logger:     logger,
	}, nil
}

func (p *bridgePublisher) Publish(ctx context.Context, envelope *core.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return &errs.TransportError{Endpoint: p.publishURL, Err: err}
	}
	body, err := json.Marshal(bridgeRequest{
		Properties:      bridgeProperties{ContentType: "application/json"},
		RoutingKey:      global.CoverageRoutingKey,
		Payload:         string(payload),
		PayloadEncoding: "string",
	})
	if err != nil {
		return &errs.TransportError{Endpoint: p.publishURL, Err: err}
	}

	respBody, err := p.requests.MakeAPIRequest(ctx, http.MethodPost, p.publishURL, body)
	if err != nil {
		return &errs.TransportError{Endpoint: p.publishURL, Err: err}
	}

	var resp bridgeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return &errs.TransportError{Endpoint: p.publishURL, Err: err}
	}
	if !resp.Routed {
		return &errs.TransportError{Endpoint: p.publishURL, Err: errs.New("broker did not route the message")}
	}
	p.logger.Debugf("published coverage report for %s@%s via management bridge", envelope.RepoID, envelope.Commit)
	return nil
}

func (p *bridgePublisher) Close() error { return nil }

type httpPublisher struct {
	endpoint string
	requests core.Requests
	logger   lumber.Logger
}

// newHTTPPublisher POSTs envelope JSON directly to a plain HTTP(S) collector.
func newHTTPPublisher(endpoint string, requests core.Requests, logger lumber.Logger) *httpPublisher {
	return &httpPublisher{endpoint: endpoint, requests: requests, logger: logger}
}

func (p *httpPublisher) Publish(ctx context.Context, envelope *core.Envelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return &errs.TransportError{Endpoint: p.endpoint, Err: err}
	}
	if _, err := p.requests.MakeAPIRequest(ctx, http.MethodPost, p.endpoint, body); err != nil {
		return &errs.TransportError{Endpoint: p.endpoint, Err: err}
	}
	p.logger.Debugf("published coverage report for %s@%s over http", envelope.RepoID, envelope.Commit)
	return nil
}

func (p *httpPublisher) Close() error { return nil }
