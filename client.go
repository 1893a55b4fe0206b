package snap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ruangpay/snap/signature"
)

// ottTTL is the sandbox-observed validity window of a one-time token.
const ottTTL = 5 * time.Minute

// Client issues signed gateway calls: canonical request → RSA signature
// → header set → transport, with idempotency and bounded retries around
// the exchange. Safe for concurrent use.
type Client struct {
	cred      *PartnerCredential
	baseURL   string
	cfg       config
	guard     *IdempotencyGuard
	assembler HeaderAssembler
}

// NewClient builds a client for the gateway at baseURL.
func NewClient(cred *PartnerCredential, baseURL string, opts ...Option) (*Client, error) {
	if cred == nil {
		return nil, errors.New("snap: partner credential is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, errors.New("snap: gateway base URL is required")
	}
	cfg := config{
		transport: http.DefaultClient,
		clock:     time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:     DefaultPolicy,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.faults.active() {
		cfg.logger.Warn("header fault injection is enabled; signed calls will fail gateway authentication")
	}
	return &Client{
		cred:      cred,
		baseURL:   baseURL,
		cfg:       cfg,
		guard:     NewIdempotencyGuard(),
		assembler: HeaderAssembler{Credential: cred, Faults: cfg.faults},
	}, nil
}

type callOptions struct {
	customerToken string
	externalID    string
	retry         *Policy
}

// CallOption customizes a single gateway call.
type CallOption func(*callOptions)

// WithCustomerToken attaches the Authorization-Customer bearer header
// for operations performed on behalf of a consenting user.
func WithCustomerToken(token string) CallOption {
	return func(o *callOptions) {
		o.customerToken = token
	}
}

// WithExternalID pins the X-EXTERNAL-ID instead of generating one.
func WithExternalID(id string) CallOption {
	return func(o *callOptions) {
		o.externalID = id
	}
}

// WithCallRetryPolicy overrides the client retry policy for one call.
func WithCallRetryPolicy(p Policy) CallOption {
	return func(o *callOptions) {
		o.retry = &p
	}
}

// Call signs and executes one gateway request, returning the raw
// response body on a 2xx answer and a classified *Error otherwise.
// Cancellation applies up to the point the transport is invoked; once
// sent, the remote side effect may complete despite a local timeout,
// which is what the idempotency guard exists for.
func (c *Client) Call(ctx context.Context, method, resourcePath string, payload any, opts ...CallOption) ([]byte, error) {
	var callOpts callOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&callOpts)
	}
	retry := c.cfg.retry
	if callOpts.retry != nil {
		retry = *callOpts.retry
	}

	body, err := signature.CanonicalizeValue(payload)
	if err != nil {
		return nil, NewInvalidFormatError(fmt.Sprintf("payload is not serializable: %v", err))
	}

	var result []byte
	attempt := 0
	err = retry.Do(ctx, func() error {
		attempt++
		ts := c.cfg.clock()
		sig, err := c.cred.Signer().Sign(ctx, signature.Material{
			Method:        method,
			ResourcePath:  resourcePath,
			CanonicalBody: body,
			Timestamp:     ts,
		})
		if err != nil {
			return fmt.Errorf("snap: sign request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+resourcePath, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("snap: build request: %w", err)
		}
		req.Header = c.assembler.Assemble(sig, ts, callOpts.externalID, c.cfg.deviceID, callOpts.customerToken)

		resp, err := c.cfg.transport.Do(req)
		if err != nil {
			c.cfg.logger.DebugContext(ctx, "gateway call failed",
				slog.String("method", method),
				slog.String("path", resourcePath),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return fmt.Errorf("snap: %s %s: %w", method, resourcePath, err)
		}
		defer func() { _ = resp.Body.Close() }()
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("snap: read response: %w", err)
		}
		c.cfg.logger.DebugContext(ctx, "gateway call",
			slog.String("method", method),
			slog.String("path", resourcePath),
			slog.Int("status", resp.StatusCode),
			slog.Int("attempt", attempt))
		if gwErr := ClassifyStatus(resp.StatusCode, respBody); gwErr != nil {
			return gwErr
		}
		result = respBody
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decodeResponse[T any](body []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("snap: decode gateway response: %w", err)
	}
	return &out, nil
}

// CreateOrder opens an order. The partner reference number is the
// idempotency key: an identical resubmission returns the recorded
// result with the same gateway reference number and response code,
// while a resubmission with a different payload fails as inconsistent.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.idempotentOrderCall(ctx, "order:"+req.PartnerReferenceNo, PathCreateOrder, req, req.PartnerReferenceNo)
}

// RefundOrder returns funds for a paid order, idempotent on the partner
// refund number.
func (c *Client) RefundOrder(ctx context.Context, req RefundOrderRequest) (*OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.idempotentOrderCall(ctx, "refund:"+req.PartnerRefundNo, PathRefundOrder, req, req.PartnerRefundNo)
}

func (c *Client) idempotentOrderCall(ctx context.Context, key, path string, req any, partnerRef string) (*OrderResult, error) {
	stored, err := c.guard.Do(ctx, key, req, func(ctx context.Context) (*Result, error) {
		body, err := c.Call(ctx, http.MethodPost, path, req)
		if err != nil {
			return nil, err
		}
		result, err := decodeResponse[OrderResult](body)
		if err != nil {
			return nil, err
		}
		return &Result{
			ReferenceNo:        result.ReferenceNo,
			PartnerReferenceNo: partnerRef,
			ResponseCode:       result.ResponseCode,
			Body:               body,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return decodeResponse[OrderResult](stored.Body)
}

// ConsultPay lists the pay options available for a merchant and amount.
func (c *Client) ConsultPay(ctx context.Context, req ConsultPayRequest) (*ConsultPayResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathConsultPay, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[ConsultPayResult](body)
}

// TransferToBank disburses funds to an external bank account,
// idempotent on the partner reference number. An identical
// resubmission after a timeout returns the recorded result instead of
// moving the funds twice.
func (c *Client) TransferToBank(ctx context.Context, req TransferToBankRequest) (*TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.idempotentTransferCall(ctx, "disburse:"+req.PartnerReferenceNo, PathTransferToBank, req, req.PartnerReferenceNo)
}

// TopUp disburses funds into a user's wallet account, idempotent on
// the partner reference number.
func (c *Client) TopUp(ctx context.Context, req TopUpRequest) (*TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.idempotentTransferCall(ctx, "topup:"+req.PartnerReferenceNo, PathTopUp, req, req.PartnerReferenceNo)
}

func (c *Client) idempotentTransferCall(ctx context.Context, key, path string, req any, partnerRef string) (*TransferResult, error) {
	stored, err := c.guard.Do(ctx, key, req, func(ctx context.Context) (*Result, error) {
		body, err := c.Call(ctx, http.MethodPost, path, req)
		if err != nil {
			return nil, err
		}
		result, err := decodeResponse[TransferResult](body)
		if err != nil {
			return nil, err
		}
		return &Result{
			ReferenceNo:        result.ReferenceNo,
			PartnerReferenceNo: partnerRef,
			ResponseCode:       result.ResponseCode,
			Body:               body,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return decodeResponse[TransferResult](stored.Body)
}

// TransferToBankStatus resolves a bank transfer whose outcome is
// unknown, for example after the submission timed out.
func (c *Client) TransferToBankStatus(ctx context.Context, req TransferStatusRequest) (*TransferStatusResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathTransferToBankStatus, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[TransferStatusResult](body)
}

// TopUpStatus resolves a wallet top-up whose outcome is unknown.
func (c *Client) TopUpStatus(ctx context.Context, req TransferStatusRequest) (*TransferStatusResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathTopUpStatus, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[TransferStatusResult](body)
}

// AccountInquiry resolves a wallet account and the applicable fee
// before a top-up.
func (c *Client) AccountInquiry(ctx context.Context, req AccountInquiryRequest) (*AccountInquiryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathAccountInquiry, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[AccountInquiryResult](body)
}

// BankAccountInquiry resolves an external bank account before a bank
// transfer.
func (c *Client) BankAccountInquiry(ctx context.Context, req BankAccountInquiryRequest) (*BankAccountInquiryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathBankAccountInquiry, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[BankAccountInquiryResult](body)
}

// QueryPayment looks up an order's transaction status.
func (c *Client) QueryPayment(ctx context.Context, req QueryPaymentRequest) (*QueryPaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathQueryPayment, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[QueryPaymentResult](body)
}

// CancelOrder voids an open order.
func (c *Client) CancelOrder(ctx context.Context, req CancelOrderRequest) (*OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathCancelOrder, req)
	if err != nil {
		return nil, err
	}
	return decodeResponse[OrderResult](body)
}

// WidgetPay performs a widget-rendered payment on behalf of the
// consenting user, idempotent on the partner reference number.
func (c *Client) WidgetPay(ctx context.Context, req WidgetPayRequest, customerToken string) (*OrderResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	stored, err := c.guard.Do(ctx, "widget:"+req.PartnerReferenceNo, req, func(ctx context.Context) (*Result, error) {
		body, err := c.Call(ctx, http.MethodPost, PathWidgetPay, req, WithCustomerToken(customerToken))
		if err != nil {
			return nil, err
		}
		result, err := decodeResponse[OrderResult](body)
		if err != nil {
			return nil, err
		}
		return &Result{
			ReferenceNo:        result.ReferenceNo,
			PartnerReferenceNo: req.PartnerReferenceNo,
			ResponseCode:       result.ResponseCode,
			Body:               body,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return decodeResponse[OrderResult](stored.Body)
}

// BalanceInquiry queries the consenting user's balances.
func (c *Client) BalanceInquiry(ctx context.Context, req BalanceInquiryRequest) (*BalanceInquiryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := c.Call(ctx, http.MethodPost, PathBalanceInquiry, req, WithCustomerToken(req.AdditionalInfo.AccessToken))
	if err != nil {
		return nil, err
	}
	return decodeResponse[BalanceInquiryResult](body)
}

// GatewayExchanger implements [TokenExchanger] over the signed-call
// client, advancing consent chains through the gateway's token APIs.
type GatewayExchanger struct {
	Client     *Client
	MerchantID string
}

// ExchangeAuthCode trades a consented authorization code for an access
// token.
func (g *GatewayExchanger) ExchangeAuthCode(ctx context.Context, code AuthorizationCode) (AccessToken, error) {
	req := ApplyTokenRequest{GrantType: "AUTHORIZATION_CODE", AuthCode: code.Code}
	if err := req.Validate(); err != nil {
		return AccessToken{}, err
	}
	body, err := g.Client.Call(ctx, http.MethodPost, PathApplyToken, req)
	if err != nil {
		return AccessToken{}, err
	}
	resp, err := decodeResponse[ApplyTokenResponse](body)
	if err != nil {
		return AccessToken{}, err
	}
	if resp.AccessToken == "" {
		return AccessToken{}, NewNotFoundError("gateway returned no access token", WithResponseBody(body))
	}
	token := AccessToken{
		Token:    resp.AccessToken,
		Scopes:   code.Scopes,
		IssuedAt: g.Client.cfg.clock(),
	}
	if resp.AccessTokenExpiryTime != "" {
		expiry, err := signature.ParseTimestamp(resp.AccessTokenExpiryTime)
		if err != nil {
			return AccessToken{}, NewInvalidFormatError("gateway returned a malformed token expiry", WithResponseBody(body))
		}
		token.ExpiresAt = expiry
	}
	return token, nil
}

// ApplyOTT derives a one-time token from a live access token.
func (g *GatewayExchanger) ApplyOTT(ctx context.Context, token AccessToken, deviceID string) (OneTimeToken, error) {
	req := ApplyOTTRequest{
		UserResources: []string{"OTT"},
		AdditionalInfo: OTTAdditionalInfo{
			AccessToken: token.Token,
			DeviceID:    deviceID,
		},
	}
	if err := req.Validate(); err != nil {
		return OneTimeToken{}, err
	}
	body, err := g.Client.Call(ctx, http.MethodPost, PathApplyOTT, req, WithCustomerToken(token.Token))
	if err != nil {
		return OneTimeToken{}, err
	}
	resp, err := decodeResponse[ApplyOTTResponse](body)
	if err != nil {
		return OneTimeToken{}, err
	}
	for _, info := range resp.UserResourceInfos {
		if info.ResourceType == "OTT" && info.Value != "" {
			now := g.Client.cfg.clock()
			return OneTimeToken{Token: info.Value, IssuedAt: now, ExpiresAt: now.Add(ottTTL)}, nil
		}
	}
	return OneTimeToken{}, NewNotFoundError("gateway returned no OTT resource", WithResponseBody(body))
}

// Unbind revokes the user's consent for this partner.
func (g *GatewayExchanger) Unbind(ctx context.Context, token AccessToken) error {
	req := AccountUnbindRequest{
		MerchantID: g.MerchantID,
		AdditionalInfo: OTTAdditionalInfo{
			AccessToken: token.Token,
		},
	}
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := g.Client.Call(ctx, http.MethodPost, PathAccountUnbind, req, WithCustomerToken(token.Token))
	return err
}
