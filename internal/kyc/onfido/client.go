// Package onfido is a minimal client for the Onfido SDK-token flow: create
// an applicant, then mint a short-lived token authorizing the client-side
// widget for that applicant.
package onfido

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	dErrors "valid8/pkg/domain-errors"
)

const defaultBaseURL = "https://api.onfido.com/v3.6"

type Client struct {
	apiToken string
	baseURL  string
	http     *http.Client
	tracer   trace.Tracer
}

func New(apiToken string) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		tracer:   otel.Tracer("valid8/kyc/onfido"),
	}
}

// Enabled reports whether an API token is configured.
func (c *Client) Enabled() bool {
	return c.apiToken != ""
}

// SDKToken creates an applicant and returns a widget token bound to it.
func (c *Client) SDKToken(ctx context.Context, firstName, lastName string) (string, error) {
	ctx, span := c.tracer.Start(ctx, "onfido.sdk_token")
	defer span.End()

	applicantID, err := c.createApplicant(ctx, firstName, lastName)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]string{"applicant_id": applicantID})
	if err != nil {
		return "", fmt.Errorf("marshal sdk token request: %w", err)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/sdk_token", payload, &body); err != nil {
		return "", err
	}
	return body.Token, nil
}

func (c *Client) createApplicant(ctx context.Context, firstName, lastName string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
	})
	if err != nil {
		return "", fmt.Errorf("marshal applicant request: %w", err)
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/applicants", payload, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build onfido request: %w", err)
	}
	req.Header.Set("Authorization", "Token token="+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "onfido request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("onfido api error (status %d)", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode onfido response")
	}
	return nil
}
