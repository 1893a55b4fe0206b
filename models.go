package snap

import (
	"encoding/json"

	"github.com/oapi-codegen/runtime"
)

// Resource paths for the gateway operations this core drives. The path
// is part of the canonical string, so these must match the gateway
// byte for byte.
const (
	PathCreateOrder    = "/payment-gateway/v1.0/debit/create.htm"
	PathQueryPayment   = "/payment-gateway/v1.0/debit/status.htm"
	PathCancelOrder    = "/payment-gateway/v1.0/debit/cancel.htm"
	PathRefundOrder    = "/payment-gateway/v1.0/debit/refund.htm"
	PathConsultPay     = "/v1.0/payment-gateway/consult-pay.htm"
	PathApplyToken     = "/v1.0/access-token/b2b2c.htm"
	PathApplyOTT       = "/v1.0/qr/apply-ott.htm"
	PathWidgetPay      = "/v1.0/debit/payment-host-to-host.htm"
	PathBalanceInquiry = "/v1.0/balance-inquiry.htm"
	PathAccountUnbind  = "/v1.0/registration-account-unbinding.htm"
)

// Disbursement resource paths. Transfers move partner funds out to a
// bank account or a wallet account; the status endpoints answer for
// transfers whose first submission timed out.
const (
	PathTransferToBank       = "/v1.0/emoney/transfer-bank.htm"
	PathTransferToBankStatus = "/v1.0/emoney/transfer-bank-status.htm"
	PathTopUp                = "/v1.0/emoney/topup.htm"
	PathTopUpStatus          = "/v1.0/emoney/topup-status.htm"
	PathAccountInquiry       = "/v1.0/emoney/account-inquiry.htm"
	PathBankAccountInquiry   = "/v1.0/emoney/bank-account-inquiry.htm"
)

// Amount is a decimal value plus ISO-4217 currency, serialized the way
// the gateway expects ("10.00", "IDR").
type Amount struct {
	Value    string `json:"value" validate:"required,amount"`
	Currency string `json:"currency" validate:"required,currency"`
}

// PayMethod defines model for PayOption.PayMethod.
type PayMethod string

// Defines values for PayMethod.
const (
	PayMethodBalance        PayMethod = "BALANCE"
	PayMethodNetworkPay     PayMethod = "NETWORK_PAY"
	PayMethodVirtualAccount PayMethod = "VIRTUAL_ACCOUNT"
)

// BalancePayOption pays from the consenting user's wallet balance.
type BalancePayOption struct {
	PayMethod   PayMethod `json:"payMethod"`
	TransAmount Amount    `json:"transAmount"`
}

// NetworkPayOption routes payment through an external network rail.
type NetworkPayOption struct {
	PayMethod   PayMethod `json:"payMethod"`
	PayOption   string    `json:"payOption"`
	TransAmount Amount    `json:"transAmount"`
}

// PayOption is the polymorphic pay-option entry of an order request.
type PayOption struct {
	union json.RawMessage
}

// AsBalancePayOption returns the union data inside the PayOption as a BalancePayOption.
func (t PayOption) AsBalancePayOption() (BalancePayOption, error) {
	var body BalancePayOption
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromBalancePayOption overwrites any union data inside the PayOption as the provided BalancePayOption.
func (t *PayOption) FromBalancePayOption(v BalancePayOption) error {
	v.PayMethod = PayMethodBalance
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeBalancePayOption performs a merge with any union data inside the PayOption, using the provided BalancePayOption.
func (t *PayOption) MergeBalancePayOption(v BalancePayOption) error {
	v.PayMethod = PayMethodBalance
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	merged, err := runtime.JSONMerge(t.union, b)
	t.union = merged
	return err
}

// AsNetworkPayOption returns the union data inside the PayOption as a NetworkPayOption.
func (t PayOption) AsNetworkPayOption() (NetworkPayOption, error) {
	var body NetworkPayOption
	err := json.Unmarshal(t.union, &body)
	return body, err
}

// FromNetworkPayOption overwrites any union data inside the PayOption as the provided NetworkPayOption.
func (t *PayOption) FromNetworkPayOption(v NetworkPayOption) error {
	v.PayMethod = PayMethodNetworkPay
	b, err := json.Marshal(v)
	t.union = b
	return err
}

// MergeNetworkPayOption performs a merge with any union data inside the PayOption, using the provided NetworkPayOption.
func (t *PayOption) MergeNetworkPayOption(v NetworkPayOption) error {
	v.PayMethod = PayMethodNetworkPay
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	merged, err := runtime.JSONMerge(t.union, b)
	t.union = merged
	return err
}

// MarshalJSON serializes the underlying union for PayOption.
func (t PayOption) MarshalJSON() ([]byte, error) {
	return t.union.MarshalJSON()
}

// UnmarshalJSON loads union data for PayOption.
func (t *PayOption) UnmarshalJSON(b []byte) error {
	return t.union.UnmarshalJSON(b)
}

// URLParam carries the partner's notify/return URLs on order creation.
type URLParam struct {
	URL        string `json:"url" validate:"required,url"`
	Type       string `json:"type" validate:"required,oneof=PAY_RETURN NOTIFICATION"`
	IsDeeplink string `json:"isDeeplink,omitempty" validate:"omitempty,oneof=Y N"`
}

// CreateOrderRequest opens an order. PartnerReferenceNo doubles as the
// idempotency key: resubmissions must carry an identical payload.
type CreateOrderRequest struct {
	PartnerReferenceNo string      `json:"partnerReferenceNo" validate:"required,refno"`
	MerchantID         string      `json:"merchantId" validate:"required"`
	Amount             Amount      `json:"amount" validate:"required"`
	PayOptionDetails   []PayOption `json:"payOptionDetails,omitempty"`
	ValidUpTo          string      `json:"validUpTo,omitempty"`
	URLParams          []URLParam  `json:"urlParams,omitempty" validate:"omitempty,dive"`
}

// OrderResult is the gateway's answer to order mutations.
type OrderResult struct {
	ResponseCode       string `json:"responseCode"`
	ResponseMessage    string `json:"responseMessage"`
	ReferenceNo        string `json:"referenceNo"`
	PartnerReferenceNo string `json:"partnerReferenceNo"`
	WebRedirectURL     string `json:"webRedirectUrl,omitempty"`
}

// QueryPaymentRequest looks up an order by the partner's reference.
type QueryPaymentRequest struct {
	OriginalPartnerReferenceNo string `json:"originalPartnerReferenceNo" validate:"required,refno"`
	MerchantID                 string `json:"merchantId" validate:"required"`
	ServiceCode                string `json:"serviceCode,omitempty"`
}

// QueryPaymentResult reports the order's transaction status.
type QueryPaymentResult struct {
	ResponseCode               string  `json:"responseCode"`
	ResponseMessage            string  `json:"responseMessage"`
	OriginalPartnerReferenceNo string  `json:"originalPartnerReferenceNo"`
	OriginalReferenceNo        string  `json:"originalReferenceNo"`
	TransactionStatus          string  `json:"latestTransactionStatus"`
	TransactionStatusDesc      string  `json:"transactionStatusDesc,omitempty"`
	Amount                     *Amount `json:"amount,omitempty"`
}

// CancelOrderRequest voids an open order.
type CancelOrderRequest struct {
	OriginalPartnerReferenceNo string `json:"originalPartnerReferenceNo" validate:"required,refno"`
	MerchantID                 string `json:"merchantId" validate:"required"`
	Reason                     string `json:"reason,omitempty"`
}

// RefundOrderRequest returns funds for a paid order. PartnerRefundNo is
// the refund's own idempotency key.
type RefundOrderRequest struct {
	OriginalPartnerReferenceNo string `json:"originalPartnerReferenceNo" validate:"required,refno"`
	PartnerRefundNo            string `json:"partnerRefundNo" validate:"required,refno"`
	MerchantID                 string `json:"merchantId" validate:"required"`
	RefundAmount               Amount `json:"refundAmount" validate:"required"`
	Reason                     string `json:"reason,omitempty"`
}

// ApplyTokenRequest exchanges a consented authorization code for an
// access token.
type ApplyTokenRequest struct {
	GrantType string `json:"grantType" validate:"required,oneof=AUTHORIZATION_CODE REFRESH_TOKEN"`
	AuthCode  string `json:"authCode,omitempty"`
}

// ApplyTokenResponse carries the issued access token pair.
type ApplyTokenResponse struct {
	ResponseCode          string `json:"responseCode"`
	ResponseMessage       string `json:"responseMessage"`
	TokenType             string `json:"tokenType"`
	AccessToken           string `json:"accessToken"`
	AccessTokenExpiryTime string `json:"accessTokenExpiryTime"`
	RefreshToken          string `json:"refreshToken,omitempty"`
}

// OTTAdditionalInfo carries the on-behalf-of credentials for OTT and
// unbinding calls.
type OTTAdditionalInfo struct {
	AccessToken string `json:"accessToken" validate:"required"`
	DeviceID    string `json:"deviceId,omitempty"`
}

// ApplyOTTRequest derives a one-time token from a live access token.
type ApplyOTTRequest struct {
	UserResources  []string          `json:"userResources" validate:"required,min=1"`
	AdditionalInfo OTTAdditionalInfo `json:"additionalInfo" validate:"required"`
}

// UserResourceInfo is one issued resource in an OTT response.
type UserResourceInfo struct {
	ResourceType string `json:"resourceType"`
	Value        string `json:"value"`
}

// ApplyOTTResponse lists the issued one-time resources.
type ApplyOTTResponse struct {
	ResponseCode      string             `json:"responseCode"`
	ResponseMessage   string             `json:"responseMessage"`
	UserResourceInfos []UserResourceInfo `json:"userResourceInfos"`
}

// BalanceInquiryRequest queries the consenting user's balances.
type BalanceInquiryRequest struct {
	BalanceTypes   []string          `json:"balanceTypes,omitempty"`
	AdditionalInfo OTTAdditionalInfo `json:"additionalInfo" validate:"required"`
}

// AccountBalance is one balance bucket in an inquiry result.
type AccountBalance struct {
	BalanceType string `json:"balanceType"`
	Amount      Amount `json:"amount"`
}

// BalanceInquiryResult reports the user's balances.
type BalanceInquiryResult struct {
	ResponseCode    string           `json:"responseCode"`
	ResponseMessage string           `json:"responseMessage"`
	AccountInfos    []AccountBalance `json:"accountInfos"`
}

// AccountUnbindRequest revokes the user's consent for this partner.
type AccountUnbindRequest struct {
	MerchantID     string            `json:"merchantId" validate:"required"`
	AdditionalInfo OTTAdditionalInfo `json:"additionalInfo" validate:"required"`
}

// WidgetPayRequest performs a widget-rendered payment gated by an OTT.
type WidgetPayRequest struct {
	PartnerReferenceNo string `json:"partnerReferenceNo" validate:"required,refno"`
	MerchantID         string `json:"merchantId" validate:"required"`
	Amount             Amount `json:"amount" validate:"required"`
	ValidUpTo          string `json:"validUpTo,omitempty"`
}

// ConsultPayRequest asks the gateway which pay options are available
// for a merchant and amount before an order is created.
type ConsultPayRequest struct {
	MerchantID string `json:"merchantId" validate:"required"`
	Amount     Amount `json:"amount" validate:"required"`
}

// ConsultPayResult lists the offered pay options. Each entry is the
// same polymorphic shape order creation accepts.
type ConsultPayResult struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	PaymentInfos    []PayOption `json:"paymentInfos"`
}

// TransferToBankRequest moves partner funds to an external bank
// account. PartnerReferenceNo is the transfer's idempotency key.
type TransferToBankRequest struct {
	PartnerReferenceNo       string `json:"partnerReferenceNo" validate:"required,refno"`
	CustomerReference        string `json:"customerReference,omitempty"`
	BeneficiaryAccountNumber string `json:"beneficiaryAccountNumber" validate:"required"`
	BeneficiaryAccountName   string `json:"beneficiaryAccountName,omitempty"`
	BeneficiaryBankCode      string `json:"beneficiaryBankCode" validate:"required"`
	BeneficiaryBankName      string `json:"beneficiaryBankName,omitempty"`
	Amount                   Amount `json:"amount" validate:"required"`
}

// TopUpRequest moves partner funds into a user's wallet account.
// PartnerReferenceNo is the top-up's idempotency key.
type TopUpRequest struct {
	PartnerReferenceNo string `json:"partnerReferenceNo" validate:"required,refno"`
	CustomerNumber     string `json:"customerNumber" validate:"required"`
	Amount             Amount `json:"amount" validate:"required"`
}

// TransferResult is the gateway's answer to a disbursement submission.
// An in-progress answer carries a reference number and is resolved
// later through the matching status endpoint.
type TransferResult struct {
	ResponseCode       string `json:"responseCode"`
	ResponseMessage    string `json:"responseMessage"`
	ReferenceNo        string `json:"referenceNo"`
	PartnerReferenceNo string `json:"partnerReferenceNo"`
	TransactionDate    string `json:"transactionDate,omitempty"`
}

// TransferStatusRequest resolves a transfer whose outcome is unknown,
// keyed by the original partner reference.
type TransferStatusRequest struct {
	OriginalPartnerReferenceNo string `json:"originalPartnerReferenceNo" validate:"required,refno"`
	OriginalReferenceNo        string `json:"originalReferenceNo,omitempty"`
	ServiceCode                string `json:"serviceCode,omitempty"`
}

// TransferStatusResult reports the transfer's transaction status.
type TransferStatusResult struct {
	ResponseCode               string  `json:"responseCode"`
	ResponseMessage            string  `json:"responseMessage"`
	OriginalReferenceNo        string  `json:"originalReferenceNo"`
	OriginalPartnerReferenceNo string  `json:"originalPartnerReferenceNo"`
	ServiceCode                string  `json:"serviceCode,omitempty"`
	TransactionStatus          string  `json:"latestTransactionStatus"`
	TransactionStatusDesc      string  `json:"transactionStatusDesc,omitempty"`
	Amount                     *Amount `json:"amount,omitempty"`
}

// AccountInquiryRequest checks a wallet account before topping it up.
type AccountInquiryRequest struct {
	PartnerReferenceNo string `json:"partnerReferenceNo" validate:"required,refno"`
	CustomerNumber     string `json:"customerNumber" validate:"required"`
	Amount             Amount `json:"amount" validate:"required"`
}

// AccountInquiryResult reports the inquired account and the fee the
// transfer would carry.
type AccountInquiryResult struct {
	ResponseCode       string  `json:"responseCode"`
	ResponseMessage    string  `json:"responseMessage"`
	ReferenceNo        string  `json:"referenceNo"`
	PartnerReferenceNo string  `json:"partnerReferenceNo"`
	AccountHolderName  string  `json:"accountHolderName,omitempty"`
	Amount             *Amount `json:"amount,omitempty"`
	FeeAmount          *Amount `json:"feeAmount,omitempty"`
}

// BankAccountInquiryRequest checks an external bank account before a
// bank transfer.
type BankAccountInquiryRequest struct {
	PartnerReferenceNo       string `json:"partnerReferenceNo" validate:"required,refno"`
	BeneficiaryAccountNumber string `json:"beneficiaryAccountNumber" validate:"required"`
	BeneficiaryBankCode      string `json:"beneficiaryBankCode" validate:"required"`
	Amount                   Amount `json:"amount" validate:"required"`
}

// BankAccountInquiryResult reports the resolved beneficiary.
type BankAccountInquiryResult struct {
	ResponseCode           string  `json:"responseCode"`
	ResponseMessage        string  `json:"responseMessage"`
	ReferenceNo            string  `json:"referenceNo"`
	PartnerReferenceNo     string  `json:"partnerReferenceNo"`
	BeneficiaryAccountName string  `json:"beneficiaryAccountName,omitempty"`
	BeneficiaryBankName    string  `json:"beneficiaryBankName,omitempty"`
	Amount                 *Amount `json:"amount,omitempty"`
	FeeAmount              *Amount `json:"feeAmount,omitempty"`
}
