package bridge

import (
	"context"
	"strings"

	"shadowScope/internal/model"
)

// HistoryAPI lists past deposits of an address.
type HistoryAPI interface {
	BridgeHistory(ctx context.Context, address string) ([]model.BridgeDeposit, error)
}

// History fetches the deposits made by address. Every call goes to the node.
func History(ctx context.Context, api HistoryAPI, address string) ([]model.BridgeDeposit, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, &model.ValidationError{Field: "address", Reason: "must not be empty"}
	}
	return api.BridgeHistory(ctx, address)
}
