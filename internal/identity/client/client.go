package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	contract "kycpass/contracts/identity"
	"kycpass/internal/identity/models"
	"kycpass/internal/identity/tracer"
	"kycpass/internal/platform/privacy"
	"kycpass/internal/session/controller"
	"kycpass/pkg/platform/circuit"
	"kycpass/pkg/requestcontext"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient calls the backend identity service over its JSON API.
// It holds no session state; every call maps one request to one response.
type HTTPClient struct {
	apiURL  string
	baseURL string
	timeout time.Duration
	doer    HTTPDoer
	breaker *circuit.Breaker
	tracer  tracer.Tracer
	logger  *slog.Logger
}

// Ensure HTTPClient implements the controller's remote contract.
var _ controller.IdentityService = (*HTTPClient)(nil)

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPDoer sets a custom HTTP client (tracing transports, tests).
func WithHTTPDoer(doer HTTPDoer) Option {
	return func(c *HTTPClient) {
		if doer != nil {
			c.doer = doer
		}
	}
}

// WithBreaker guards calls with a circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *HTTPClient) {
		c.breaker = b
	}
}

// WithTracer sets the tracer used for per-operation spans.
func WithTracer(t tracer.Tracer) Option {
	return func(c *HTTPClient) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the identity service rooted at apiURL
// (e.g. http://localhost:8080); routes live under {apiURL}/api.
func New(apiURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	apiURL = strings.TrimRight(apiURL, "/")
	c := &HTTPClient{
		apiURL:  apiURL,
		baseURL: apiURL + "/api",
		timeout: timeout,
		doer:    &http.Client{Timeout: timeout},
		tracer:  tracer.NewNoop(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckDID reports whether a DID is registered for the account.
// A 404 from the backend means no DID and is not an error.
func (c *HTTPClient) CheckDID(ctx context.Context, account models.AccountID) (status models.DIDStatus, err error) {
	ctx, span := c.startSpan(ctx, tracer.SpanCheckDID, account)
	defer func() { c.endSpan(span, err) }()

	var resp contract.DIDStatusResponse
	err = c.call(ctx, OpCheckDID, http.MethodGet, c.didPath(account), nil, &resp)
	if err != nil {
		if GetCategory(err) == CategoryNotFound {
			return models.DIDStatus{}, nil
		}
		return models.DIDStatus{}, err
	}
	return models.DIDStatus{Present: resp.HasDID, DID: models.DID(resp.DIDID)}, nil
}

// CreateDID registers a DID for the account and returns its handle.
func (c *HTTPClient) CreateDID(ctx context.Context, account models.AccountID) (did models.DID, err error) {
	ctx, span := c.startSpan(ctx, tracer.SpanCreateDID, account)
	defer func() { c.endSpan(span, err) }()

	var resp contract.CreateDIDResponse
	if err = c.call(ctx, OpCreateDID, http.MethodPost, c.didPath(account), nil, &resp); err != nil {
		return "", err
	}
	return models.DID(resp.DIDID), nil
}

// ListCredentials returns the account's credentials in backend order.
// A 404 means the account has none.
func (c *HTTPClient) ListCredentials(ctx context.Context, account models.AccountID) (creds []models.Credential, err error) {
	ctx, span := c.startSpan(ctx, tracer.SpanListCredentials, account)
	defer func() { c.endSpan(span, err) }()

	var resp []contract.UserCredential
	path := fmt.Sprintf("%s/users/%s/credentials", c.baseURL, url.PathEscape(account.String()))
	if err = c.call(ctx, OpListCredentials, http.MethodGet, path, nil, &resp); err != nil {
		if GetCategory(err) == CategoryNotFound {
			return []models.Credential{}, nil
		}
		return nil, err
	}

	creds = make([]models.Credential, 0, len(resp))
	for _, uc := range resp {
		creds = append(creds, toCredential(uc))
	}
	return creds, nil
}

// CreateCredential asks the backend to issue a credential for the account.
func (c *HTTPClient) CreateCredential(ctx context.Context, account models.AccountID, data models.CredentialData) (cred *models.Credential, err error) {
	ctx, span := c.startSpan(ctx, tracer.SpanCreateCredential, account)
	defer func() { c.endSpan(span, err) }()

	req := contract.CreateCredentialRequest{
		UserAddress: account.String(),
		CredentialData: contract.CredentialData{
			FullName:    data.FullName,
			DateOfBirth: data.DateOfBirth,
			NationalID:  data.NationalID,
			Address:     data.Address,
		},
	}
	var resp contract.UserCredential
	if err = c.call(ctx, OpCreateCredential, http.MethodPost, c.baseURL+"/users/credentials", req, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		err = newServiceError(OpCreateCredential, CategoryBadResponse, http.StatusOK, "credential id missing from response", nil)
		return nil, err
	}
	created := toCredential(resp)
	return &created, nil
}

// VerifyCredential asks the backend whether the credential is valid and
// grants access. Validity and access are returned exactly as reported.
func (c *HTTPClient) VerifyCredential(ctx context.Context, account models.AccountID, credentialID models.CredentialID) (outcome *models.VerificationOutcome, err error) {
	ctx, span := c.startSpan(ctx, tracer.SpanVerifyCredential, account)
	defer func() { c.endSpan(span, err) }()

	req := contract.VerifyCredentialRequest{
		UserAddress: account.String(),
		VCID:        credentialID.String(),
	}
	var resp contract.VerifyCredentialResponse
	if err = c.call(ctx, OpVerifyCredential, http.MethodPost, c.baseURL+"/users/verify", req, &resp); err != nil {
		return nil, err
	}
	return &models.VerificationOutcome{
		IsValid:   resp.IsValid,
		HasAccess: resp.HasAccess,
		Message:   resp.Message,
	}, nil
}

// Health checks that the backend answers on {apiURL}/health.
func (c *HTTPClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/health", nil)
	if err != nil {
		return newServiceError(OpHealth, CategoryInternal, 0, "failed to create request", err)
	}
	resp, err := c.doer.Do(req)
	if err != nil {
		return classifyTransportError(ctx, OpHealth, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(OpHealth, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) didPath(account models.AccountID) string {
	return fmt.Sprintf("%s/users/%s/did", c.baseURL, url.PathEscape(account.String()))
}

func (c *HTTPClient) startSpan(ctx context.Context, name string, account models.AccountID) (context.Context, tracer.Span) {
	return c.tracer.Start(ctx, name, tracer.String(tracer.AttrAccount, privacy.HashAccount(account.String())))
}

// endSpan annotates span with the failure classification and ends it.
func (c *HTTPClient) endSpan(span tracer.Span, err error) {
	var se *ServiceError
	if errors.As(err, &se) {
		span.SetAttributes(tracer.String(tracer.AttrCategory, string(se.Category)))
		if se.StatusCode != 0 {
			span.SetAttributes(tracer.Int64(tracer.AttrStatusCode, int64(se.StatusCode)))
		}
		if errors.Is(err, ErrCircuitOpen) && c.breaker != nil {
			span.AddEvent(tracer.EventCircuitRejected, tracer.String(tracer.AttrCircuitState, c.breaker.State().String()))
		}
	}
	span.End(err)
}

// call performs one JSON round trip. Non-2xx statuses and undecodable bodies
// come back as *ServiceError; only transport failures and 5xx count against
// the circuit breaker.
func (c *HTTPClient) call(ctx context.Context, op Operation, method, target string, in, out any) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return newServiceError(op, CategoryUnavailable, 0, "circuit open", ErrCircuitOpen)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return newServiceError(op, CategoryInternal, 0, "failed to marshal request", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return newServiceError(op, CategoryInternal, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", requestID(ctx))

	resp, err := c.doer.Do(req)
	if err != nil {
		c.recordOutcome(op, false)
		return classifyTransportError(ctx, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.recordOutcome(op, false)
		return newServiceError(op, CategoryUnavailable, resp.StatusCode, "failed to read response", err)
	}

	c.recordOutcome(op, resp.StatusCode < http.StatusInternalServerError)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := classifyStatus(op, resp.StatusCode)
		svcErr.ServerMessage = extractMessage(respBody)
		return svcErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return newServiceError(op, CategoryBadResponse, resp.StatusCode, "failed to parse response", err)
	}
	return nil
}

func (c *HTTPClient) recordOutcome(op Operation, ok bool) {
	if c.breaker == nil {
		return
	}
	if ok {
		if c.breaker.RecordSuccess() {
			c.logger.Info("identity service circuit closed", "breaker", c.breaker.Name(), "operation", op)
		}
		return
	}
	if c.breaker.RecordFailure() {
		c.logger.Warn("identity service circuit opened", "breaker", c.breaker.Name(), "operation", op)
	}
}

func classifyTransportError(ctx context.Context, op Operation, err error) *ServiceError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return newServiceError(op, CategoryTimeout, 0, "request timeout", err)
	}
	return newServiceError(op, CategoryUnavailable, 0, "failed to execute request", err)
}

func classifyStatus(op Operation, status int) *ServiceError {
	switch {
	case status == http.StatusNotFound:
		return newServiceError(op, CategoryNotFound, status, "record not found", nil)
	case status == http.StatusTooManyRequests:
		return newServiceError(op, CategoryRateLimited, status, "rate limit exceeded", nil)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return newServiceError(op, CategoryTimeout, status, fmt.Sprintf("backend timeout: %d", status), nil)
	case status >= http.StatusInternalServerError:
		return newServiceError(op, CategoryUnavailable, status, fmt.Sprintf("backend unavailable: %d", status), nil)
	case status >= http.StatusBadRequest:
		return newServiceError(op, CategoryRejected, status, fmt.Sprintf("request rejected: %d", status), nil)
	default:
		return newServiceError(op, CategoryBadResponse, status, fmt.Sprintf("unexpected status code: %d", status), nil)
	}
}

// extractMessage pulls the backend's human-readable message out of an error
// body: "message" first, then "error". Non-JSON bodies yield "".
func extractMessage(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String && msg.String() != "" {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
		return msg.String()
	}
	return ""
}

func toCredential(uc contract.UserCredential) models.Credential {
	// Zero when the backend omits or mangles the timestamp.
	issuedAt, _ := time.Parse(time.RFC3339Nano, uc.IssuedAt)
	return models.Credential{
		ID:    models.CredentialID(uc.ID),
		Owner: models.AccountID(uc.UserAddress),
		Data: models.CredentialData{
			FullName:    uc.CredentialData.FullName,
			DateOfBirth: uc.CredentialData.DateOfBirth,
			NationalID:  uc.CredentialData.NationalID,
			Address:     uc.CredentialData.Address,
		},
		IssuedAt: issuedAt,
		LedgerID: uc.SuiVCID,
	}
}

func requestID(ctx context.Context) string {
	if id := requestcontext.RequestID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
