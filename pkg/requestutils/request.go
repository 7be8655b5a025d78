package requestutils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coverhub/coverhub/pkg/core"
	"github.com/coverhub/coverhub/pkg/errs"
	"github.com/coverhub/coverhub/pkg/lumber"
)

type requests struct {
	logger  lumber.Logger
	client  http.Client
	backoff backoff.BackOff
}

// New returns a Requests implementation retrying transient failures with the
// given backoff policy.
func New(logger lumber.Logger, timeout time.Duration, b backoff.BackOff) core.Requests {
	return &requests{
		logger:  logger,
		client:  http.Client{Timeout: timeout},
		backoff: b,
	}
}

func (r *requests) MakeAPIRequest(ctx context.Context, httpMethod, endpoint string, body []byte) ([]byte, error) {
	var respBody []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, bytes.NewBuffer(body))
		if err != nil {
			r.logger.Errorf("error while creating http request %v", err)
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			r.logger.Errorf("error while sending http request %v", err)
			return err
		}
		defer resp.Body.Close()

		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			r.logger.Errorf("error while reading http response body %v", err)
			return err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			r.logger.Errorf("server error status %d from %s", resp.StatusCode, endpoint)
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			r.logger.Errorf("non 2xx status code %d, body %s", resp.StatusCode, string(respBody))
			return backoff.Permanent(errs.New(fmt.Sprintf("non 2xx status code %d", resp.StatusCode)))
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(r.backoff, ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}
