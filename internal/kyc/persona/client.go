// Package persona is a minimal client for the Persona inquiries API. When
// no API key is configured every call reports the client as disabled and
// callers fall back to the client-side template flow or mock data.
package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"valid8/internal/kyc"
	"valid8/internal/platform/config"
	dErrors "valid8/pkg/domain-errors"
)

const personaVersion = "2023-01-05"

// Inquiry is the normalized view of a Persona inquiry.
type Inquiry struct {
	ID           string
	SessionToken string
	Status       string
	Fields       kyc.FieldBag
}

type Client struct {
	cfg    config.PersonaConfig
	http   *http.Client
	tracer trace.Tracer
}

func New(cfg config.PersonaConfig) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		tracer: otel.Tracer("valid8/kyc/persona"),
	}
}

// Enabled reports whether a server-side API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// TemplateID exposes the configured inquiry template for client-side flows.
func (c *Client) TemplateID() string {
	return c.cfg.TemplateID
}

// CreateInquiry opens a new inquiry for the given reference and returns its
// ID plus the one-time session token for mounting the widget.
func (c *Client) CreateInquiry(ctx context.Context, referenceID string) (*Inquiry, error) {
	ctx, span := c.tracer.Start(ctx, "persona.create_inquiry",
		trace.WithAttributes(attribute.String("persona.reference_id", referenceID)))
	defer span.End()

	payload, err := json.Marshal(map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"inquiry-template-id": c.cfg.TemplateID,
				"reference-id":        referenceID,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inquiry request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/inquiries", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build inquiry request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	var body inquiryResponse
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	return &Inquiry{
		ID:           body.Data.ID,
		SessionToken: body.Data.Attributes.SessionToken,
		Status:       body.Data.Attributes.Status,
		Fields:       body.Data.Attributes.Fields,
	}, nil
}

// GetInquiry reads an existing inquiry's status and extracted fields.
func (c *Client) GetInquiry(ctx context.Context, inquiryID string) (*Inquiry, error) {
	ctx, span := c.tracer.Start(ctx, "persona.get_inquiry",
		trace.WithAttributes(attribute.String("persona.inquiry_id", inquiryID)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/inquiries/"+inquiryID, nil)
	if err != nil {
		return nil, fmt.Errorf("build inquiry request: %w", err)
	}
	c.setHeaders(req)

	var body inquiryResponse
	if err := c.do(req, &body); err != nil {
		return nil, err
	}

	return &Inquiry{
		ID:           body.Data.ID,
		SessionToken: body.Data.Attributes.SessionToken,
		Status:       body.Data.Attributes.Status,
		Fields:       body.Data.Attributes.Fields,
	}, nil
}

type inquiryResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status       string       `json:"status"`
			SessionToken string       `json:"session-token"`
			Fields       kyc.FieldBag `json:"fields"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Persona-Version", personaVersion)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persona request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Errors []struct {
				Title string `json:"title"`
			} `json:"errors"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		title := "persona api error"
		if len(apiErr.Errors) > 0 && apiErr.Errors[0].Title != "" {
			title = apiErr.Errors[0].Title
		}
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("%s (status %d)", title, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode persona response")
	}
	return nil
}
