package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/simplifyhr/offerflow/pkg/model"
	"github.com/simplifyhr/offerflow/pkg/offer"
)

type CheckResult struct {
	Status string      `json:"status"`
	Result model.JSONB `json:"result"`
}

type BackgroundChecker interface {
	Check(ctx context.Context, req offer.CandidateIdentity) (CheckResult, error)
}

// HTTPBackgroundChecker calls the background-check function.
type HTTPBackgroundChecker struct {
	client functionClient
}

func NewHTTPBackgroundChecker(url, apiKey string, httpClient *http.Client) *HTTPBackgroundChecker {
	return &HTTPBackgroundChecker{client: newFunctionClient(url, apiKey, httpClient)}
}

func (c *HTTPBackgroundChecker) Check(ctx context.Context, req offer.CandidateIdentity) (CheckResult, error) {
	var out CheckResult
	if err := c.client.post(ctx, "background check", req, &out); err != nil {
		return CheckResult{}, err
	}
	if out.Status == "" {
		return CheckResult{}, errors.New("background check response has no status")
	}
	return out, nil
}
