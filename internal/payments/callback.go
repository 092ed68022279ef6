package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"dukapos/internal/models"

	"github.com/shopspring/decimal"
)

// CallbackBody is the payload Daraja posts to the callback URL.
type CallbackBody struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value,omitempty"`
				} `json:"Item"`
			} `json:"CallbackMetadata,omitempty"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// ParseCallback decodes a Daraja STK callback into a result.
func ParseCallback(raw []byte) (models.MPesaResult, error) {
	var body CallbackBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return models.MPesaResult{}, fmt.Errorf("decode mpesa callback: %w", err)
	}
	cb := body.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return models.MPesaResult{}, errors.New("mpesa callback without CheckoutRequestID")
	}

	res := models.MPesaResult{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
	}
	if cb.CallbackMetadata == nil {
		return res, nil
	}
	for _, item := range cb.CallbackMetadata.Item {
		if len(item.Value) == 0 {
			continue
		}
		switch item.Name {
		case "MpesaReceiptNumber":
			var s string
			if err := json.Unmarshal(item.Value, &s); err == nil {
				res.ReceiptNumber = s
			}
		case "Amount":
			var amt decimal.Decimal
			if err := json.Unmarshal(item.Value, &amt); err == nil {
				res.Amount = amt
			}
		case "PhoneNumber":
			// sent as a JSON number
			var n json.Number
			if err := json.Unmarshal(item.Value, &n); err == nil {
				res.Phone = n.String()
			}
		}
	}
	return res, nil
}
