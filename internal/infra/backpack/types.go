package backpack

import (
	"fmt"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
)

// API instructions, one per signed operation.
const (
	instrBalanceQuery   = "balanceQuery"
	instrPositionQuery  = "positionQuery"
	instrOrderQueryAll  = "orderQueryAll"
	instrOrderExecute   = "orderExecute"
	instrOrderCancelAll = "orderCancelAll"
)

// orderRequest is the place-order body. Quantity and price travel as strings.
type orderRequest struct {
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
}

// orderResponse is the venue's acknowledgement of a placed order.
type orderResponse struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Status   string `json:"status"`
	Quantity string `json:"quantity"`
}

// positionResponse mirrors the futures position query payload.
type positionResponse struct {
	Symbol        string `json:"symbol"`
	NetSize       string `json:"netSize"`
	EntryPrice    string `json:"entryPrice"`
	UnrealizedPnl string `json:"unrealizedPnl"`
}

// balanceEntry is one asset's row in the capital query.
type balanceEntry struct {
	Available string `json:"available"`
	Locked    string `json:"locked"`
	Staked    string `json:"staked"`
}

// openOrderResponse is one resting order in the open-orders query.
type openOrderResponse struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
	Status   string `json:"status"`
}

// apiErrorBody is the venue's error envelope.
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is a classified venue failure. Kind drives the retry decision:
// only transient failures may be re-attempted, and stale-clock rejections
// are kept distinct so the operator can tell a bad window from a bad secret.
type APIError struct {
	Status  int
	Code    string
	Message string
	Kind    domain.ErrorKind
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backpack API error [%d %s]: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backpack API error [%d]: %s", e.Status, e.Message)
}

// spotSymbol maps a bare symbol to its spot market (orders).
func spotSymbol(symbol string) string {
	return symbol + "_USDC"
}

// perpSymbol maps a bare symbol to its perpetual market (positions).
func perpSymbol(symbol string) string {
	return symbol + "_USDC_PERP"
}
