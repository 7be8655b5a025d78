// Package transport turns a logical "publish to the coverage topic" into a
// broker-native publish or an HTTP bridge call. The strategy is a pure
// function of the configured endpoint URL, selected once at configuration
// time; no other component inspects transport details.
package transport

import (
	"net/url"
	"strings"

	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/lumber"
)

// Kind enumerates the publish strategies.
type Kind int

const (
	// KindAMQP publishes natively with message persistence enabled.
	KindAMQP Kind = iota
	// KindBridge POSTs through the broker management API when no native
	// client can reach the broker.
	KindBridge
	// KindHTTP POSTs the envelope JSON to a plain HTTP(S) collector.
	KindHTTP
)

// Resolve maps an endpoint URL to a publish strategy. amqp:// and amqps://
// publish natively; amqp+http:// and amqp+https:// select the management-API
// bridge; plain http:// and https:// POST the envelope directly.
func Resolve(endpoint string) (Kind, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(u.Scheme) {
	case "amqp", "amqps":
		return KindAMQP, nil
	case "amqp+http", "amqp+https":
		return KindBridge, nil
	case "http", "https":
		return KindHTTP, nil
	default:
		return 0, errs.ErrUnsupportedScheme
	}
}

// New builds the publisher for the configured endpoint.
func New(endpoint string, requests core.Requests, logger lumber.Logger) (core.Publisher, error) {
	kind, err := Resolve(endpoint)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindAMQP:
		return newAMQPPublisher(endpoint, logger), nil
	case KindBridge:
		return newBridgePublisher(endpoint, requests, logger)
	default:
		return newHTTPPublisher(endpoint, requests, logger), nil
	}
}
