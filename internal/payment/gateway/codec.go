package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"

	domainErrors "github.com/velostore/ordercore/internal/domain/errors"
)

// Parameter names of the gateway's signed callback contract. Amounts travel
// as integers scaled by 100.
const (
	ParamTxnRef        = "txn_ref"
	ParamAmount        = "amount"
	ParamResponseCode  = "resp_code"
	ParamBankCode      = "bank_code"
	ParamTransactionNo = "transaction_no"
	ParamSecureHash    = "secure_hash"
)

// SuccessCode is the single response code the gateway sends for a settled
// payment. Everything else is a failure.
const SuccessCode = "00"

// ResponseCode is the fixed vocabulary the async channel answers with. The
// gateway retries delivery on anything but Success and AlreadyProcessed.
type ResponseCode string

const (
	RspSuccess          ResponseCode = "00"
	RspOrderNotFound    ResponseCode = "01"
	RspAlreadyProcessed ResponseCode = "02"
	RspAmountMismatch   ResponseCode = "04"
	RspSignatureInvalid ResponseCode = "97"
	RspInternalError    ResponseCode = "99"
)

// Message returns the human-readable companion of a response code.
func (c ResponseCode) Message() string {
	switch c {
	case RspSuccess:
		return "Confirm Success"
	case RspOrderNotFound:
		return "Order Not Found"
	case RspAlreadyProcessed:
		return "Order Already Confirmed"
	case RspAmountMismatch:
		return "Invalid Amount"
	case RspSignatureInvalid:
		return "Invalid Signature"
	default:
		return "Unknown Error"
	}
}

// Callback is one verified, decoded gateway notification.
type Callback struct {
	TxnRef        string
	Amount        int64
	ResponseCode  string
	BankCode      string
	TransactionNo string
	Raw           string
}

// Succeeded reports whether the gateway settled the payment.
func (cb *Callback) Succeeded() bool {
	return cb.ResponseCode == SuccessCode
}

// AmountValue converts the scaled integer back to currency units.
func (cb *Callback) AmountValue() float64 {
	return float64(cb.Amount) / 100
}

// Codec signs and verifies gateway parameter sets with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec builds a codec over the shared gateway secret.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// hashData canonicalizes the parameter set: the signature field is dropped,
// keys are sorted alphabetically, and each key=value pair is URL-encoded
// before joining with '&'. Both channels sign the exact same string.
func hashData(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == ParamSecureHash {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

// Sign computes the hex HMAC-SHA512 signature of the parameter set.
func (c *Codec) Sign(params url.Values) string {
	mac := hmac.New(sha512.New, c.secret)
	mac.Write([]byte(hashData(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the embedded signature in constant time.
func (c *Codec) Verify(params url.Values) bool {
	expected := c.Sign(params)
	got := params.Get(ParamSecureHash)
	return got != "" && hmac.Equal([]byte(expected), []byte(strings.ToLower(got)))
}

// ParseCallback verifies the signature and decodes the fields either
// channel needs. Nothing in the parameter set is trusted before Verify
// passes.
func (c *Codec) ParseCallback(params url.Values) (*Callback, error) {
	if !c.Verify(params) {
		return nil, domainErrors.ErrSignatureInvalid
	}

	amount, err := strconv.ParseInt(params.Get(ParamAmount), 10, 64)
	if err != nil {
		return nil, domainErrors.ErrValidation
	}

	return &Callback{
		TxnRef:        params.Get(ParamTxnRef),
		Amount:        amount,
		ResponseCode:  params.Get(ParamResponseCode),
		BankCode:      params.Get(ParamBankCode),
		TransactionNo: params.Get(ParamTransactionNo),
		Raw:           params.Encode(),
	}, nil
}
