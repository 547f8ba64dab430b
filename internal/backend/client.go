// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

/*
Package backend is the HTTP client for the external research backend.

The backend owns users, findings, statistics and the import pipelines. The
portal treats it as an opaque collaborator: every call goes through
[Client], which attaches the request id and trace context, records latency
and status, and turns failures into [*Error] or [ErrMalformed].

# Envelopes

Most endpoints answer {"success": bool, "data": ..., "error": string}.
A 2xx answer with success=false is reported as an [*Error] carrying the
backend's own message.
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/platform/constants"
	"github.com/psu-triup/portal/internal/platform/ctxutil"
)

const (
	tracerName = "github.com/psu-triup/portal/internal/backend"

	// maxBodyBytes caps how much of a backend answer is read.
	maxBodyBytes = 8 << 20

	userAgent = constants.AppName + "/" + constants.AppVersion
)

// ErrMalformed reports a backend answer that could not be decoded.
var ErrMalformed = errors.New("backend: malformed response")

// Error is a backend answer that was not a success.
type Error struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: %s answered %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("backend: %s answered %d: %s", e.Endpoint, e.Status, e.Message)
}

// Observer receives one measurement per backend call.
//
// Status is 0 when no HTTP answer was received.
type Observer interface {
	ObserveBackendRequest(endpoint string, status int, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveBackendRequest(string, int, time.Duration) {}

// # Client

// Client talks to the backend API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
	tracer     trace.Tracer
}

// NewClient creates a [Client] for the given base URL.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, observer Observer) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    parsed,
		httpClient: httpClient,
		logger:     logger,
		observer:   observer,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// URL returns the absolute backend URL for the given path segments.
func (client *Client) URL(segments ...string) string {
	return client.baseURL.JoinPath(segments...).String()
}

// call describes one backend request.
type call struct {
	method string

	// endpoint is the route template used for metrics and spans.
	endpoint string

	segments   []string
	query      url.Values
	body       any
	credential *access.Credential
}

type answer struct {
	status int
	body   []byte
}

// send performs the request and returns whatever the backend answered.
func (client *Client) send(ctx context.Context, request call) (answer, error) {
	ctx, span := client.tracer.Start(ctx, "backend "+request.endpoint,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", request.method),
			attribute.String("http.route", request.endpoint),
		),
	)
	defer span.End()

	started := time.Now()
	status := 0
	defer func() {
		client.observer.ObserveBackendRequest(request.endpoint, status, time.Since(started))
	}()

	// 1. Build the request
	target := client.baseURL.JoinPath(request.segments...)
	if len(request.query) > 0 {
		target.RawQuery = request.query.Encode()
	}

	var payload io.Reader
	if request.body != nil {
		encoded, err := json.Marshal(request.body)
		if err != nil {
			return answer{}, fmt.Errorf("backend: encode %s: %w", request.endpoint, err)
		}
		payload = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.method, target.String(), payload)
	if err != nil {
		return answer{}, fmt.Errorf("backend: build %s: %w", request.endpoint, err)
	}

	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("User-Agent", userAgent)
	if payload != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if requestID := ctxutil.GetRequestID(ctx); requestID != "" {
		httpRequest.Header.Set(constants.HeaderXRequestID, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpRequest.Header))

	if request.credential != nil {
		switch request.credential.Scheme {
		case access.SchemeCookie:
			httpRequest.AddCookie(&http.Cookie{Name: request.credential.CookieName, Value: request.credential.Value})
		default:
			httpRequest.Header.Set(constants.HeaderAuthorization, "Bearer "+request.credential.Value)
		}
	}

	// 2. Execute
	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		client.logger.WarnContext(ctx, "backend_request_failed",
			slog.String("endpoint", request.endpoint),
			slog.Any("error", err),
		)
		return answer{}, fmt.Errorf("backend: %s: %w", request.endpoint, err)
	}
	defer response.Body.Close()

	status = response.StatusCode
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	// 3. Read the body
	body, err := io.ReadAll(io.LimitReader(response.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read")
		return answer{}, fmt.Errorf("backend: read %s: %w", request.endpoint, err)
	}

	if status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, strconv.Itoa(status))
	}

	return answer{status: status, body: body}, nil
}

// do performs the request and maps any non-2xx answer onto [*Error].
func (client *Client) do(ctx context.Context, request call) ([]byte, error) {
	result, err := client.send(ctx, request)
	if err != nil {
		return nil, err
	}

	if result.status < 200 || result.status >= 300 {
		backendErr := &Error{
			Endpoint: request.endpoint,
			Status:   result.status,
			Message:  errorMessage(result.body),
		}
		client.logger.WarnContext(ctx, "backend_request_rejected",
			slog.String("endpoint", request.endpoint),
			slog.Int("status", result.status),
			slog.String("message", backendErr.Message),
		)
		return nil, backendErr
	}

	return result.body, nil
}

// # Decoding

type envelope[T any] struct {
	Success *bool  `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// decodeData unwraps the data field of a success envelope.
func decodeData[T any](endpoint string, body []byte) (T, error) {
	var decoded envelope[T]
	if err := json.Unmarshal(body, &decoded); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %v", ErrMalformed, endpoint, err)
	}

	if decoded.Success != nil && !*decoded.Success {
		var zero T
		return zero, &Error{Endpoint: endpoint, Status: http.StatusOK, Message: decoded.Error}
	}

	return decoded.Data, nil
}

// errorMessage extracts a human message from an error body, if any.
func errorMessage(body []byte) string {
	var decoded struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &decoded) != nil {
		return ""
	}

	var text string
	if json.Unmarshal(decoded.Error, &text) == nil && text != "" {
		return text
	}

	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(decoded.Error, &nested) == nil && nested.Message != "" {
		return nested.Message
	}

	return decoded.Message
}

// Message returns the backend's message for err, or fallback.
func Message(err error, fallback string) string {
	var backendErr *Error
	if errors.As(err, &backendErr) && backendErr.Message != "" {
		return backendErr.Message
	}
	return fallback
}
