package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback_Success(t *testing.T) {
	raw := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResultCode":0,"ResultDesc":"The service request is processed successfully.","CallbackMetadata":{"Item":[{"Name":"Amount","Value":1.00},{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},{"Name":"Balance"},{"Name":"TransactionDate","Value":20191219102115},{"Name":"PhoneNumber","Value":254708374149}]}}}}`)

	res, err := ParseCallback(raw)
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", res.CheckoutRequestID)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "NLJ7RT61SV", res.ReceiptNumber)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "254708374149", res.Phone)
}

func TestParseCallback_Cancelled(t *testing.T) {
	raw := []byte(`{"Body":{"stkCallback":{"MerchantRequestID":"m-2","CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`)

	res, err := ParseCallback(raw)
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Empty(t, res.ReceiptNumber)
}

func TestParseCallback_Invalid(t *testing.T) {
	_, err := ParseCallback([]byte(`{"Body":{}}`))
	assert.Error(t, err)
	_, err = ParseCallback([]byte(`not json`))
	assert.Error(t, err)
}
