package strategy

import (
	"context"

	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
)

// fakeGateway is a scripted exchange.Gateway for detector tests
type fakeGateway struct {
	markets         []exchange.MarketSnapshot
	marketsErr      error
	targetPositions []exchange.PositionSnapshot
	targetErr       error
	balance         float64
	balanceErr      error
	midpoints       map[string]float64

	placedOrders []exchange.OrderRequest
	orderResult  *exchange.OrderResult
	orderErr     error
}

func (f *fakeGateway) Connect(ctx context.Context) error { return nil }
func (f *fakeGateway) Disconnect() error                 { return nil }

func (f *fakeGateway) GetActiveMarkets(ctx context.Context, filters exchange.MarketFilters) ([]exchange.MarketSnapshot, error) {
	return f.markets, f.marketsErr
}

func (f *fakeGateway) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	return f.midpoints[tokenID], nil
}

func (f *fakeGateway) GetTargetPositions(ctx context.Context, traderAddress string) ([]exchange.PositionSnapshot, error) {
	return f.targetPositions, f.targetErr
}

func (f *fakeGateway) GetBalance(ctx context.Context) (float64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeGateway) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	f.placedOrders = append(f.placedOrders, req)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	if f.orderResult != nil {
		return f.orderResult, nil
	}
	return &exchange.OrderResult{Success: true, OrderID: "order-1", FillPrice: req.LimitPrice}, nil
}
