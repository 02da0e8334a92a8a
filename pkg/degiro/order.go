package degiro

import (
	"context"
	"fmt"
	"net/http"
)

// Stage is a step of the order workflow.
type Stage int

const (
	StageSearching Stage = iota
	StageChecking
	StageConfirming
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageSearching:
		return "searching"
	case StageChecking:
		return "checking"
	case StageConfirming:
		return "confirming"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// OrderOptions describes an order by symbol. The product is resolved by
// searching for Symbol and taking the first match.
type OrderOptions struct {
	Symbol      string
	ProductType ProductType
	OrderType   OrderType
	Size        float64
	TimeType    TimeType
	Price       *float64
	StopPrice   *float64
}

// Buy resolves the product and places a buy order for it.
func (c *Client) Buy(ctx context.Context, opts OrderOptions) (OrderResult, error) {
	return c.placeOrder(ctx, Buy, opts)
}

// Sell resolves the product and places a sell order for it.
func (c *Client) Sell(ctx context.Context, opts OrderOptions) (OrderResult, error) {
	return c.placeOrder(ctx, Sell, opts)
}

func (c *Client) placeOrder(ctx context.Context, action Action, opts OrderOptions) (OrderResult, error) {
	w := &orderWorkflow{client: c, action: action, opts: opts}
	return w.run(ctx)
}

// CheckOrder asks the server to validate and price an order without placing
// it.
func (c *Client) CheckOrder(ctx context.Context, order OrderRequest) (OrderConfirmation, error) {
	if err := order.Validate(); err != nil {
		return OrderConfirmation{}, err
	}
	var resp struct {
		ConfirmationID ID `json:"confirmationId"`
	}
	if err := c.writeAction(ctx, http.MethodPost, "checkOrder", order, &resp); err != nil {
		return OrderConfirmation{}, err
	}
	if resp.ConfirmationID == "" {
		return OrderConfirmation{}, &MalformedResponseError{Field: "confirmationId"}
	}
	return OrderConfirmation{Order: order, ConfirmationID: string(resp.ConfirmationID)}, nil
}

// ConfirmOrder places a previously checked order. The same body that was
// checked is sent again.
func (c *Client) ConfirmOrder(ctx context.Context, conf OrderConfirmation) (OrderResult, error) {
	var resp struct {
		OrderID ID `json:"orderId"`
	}
	if err := c.writeAction(ctx, http.MethodPost, "order/"+conf.ConfirmationID, conf.Order, &resp); err != nil {
		return OrderResult{}, err
	}
	if resp.OrderID == "" {
		return OrderResult{}, &MalformedResponseError{Field: "orderId"}
	}
	return OrderResult{OrderID: string(resp.OrderID)}, nil
}

// DeleteOrder cancels an open order.
func (c *Client) DeleteOrder(ctx context.Context, orderID string) error {
	return c.writeAction(ctx, http.MethodDelete, "order/"+orderID, nil, nil)
}

// ---------------------------------------------------------------------------
// Workflow
// ---------------------------------------------------------------------------

// orderWorkflow drives search → check → confirm. Each step moves the
// workflow one stage forward; any error moves it to StageFailed and nothing
// already done on the server is undone.
type orderWorkflow struct {
	client *Client
	action Action
	opts   OrderOptions

	stage        Stage
	product      Product
	confirmation OrderConfirmation
	result       OrderResult
}

func (w *orderWorkflow) run(ctx context.Context) (OrderResult, error) {
	log := w.client.log.With("action", w.action, "symbol", w.opts.Symbol)
	for {
		var err error
		switch w.stage {
		case StageSearching:
			err = w.search(ctx)
		case StageChecking:
			err = w.check(ctx)
		case StageConfirming:
			err = w.confirm(ctx)
		case StageDone:
			log.Info("order placed", "orderId", w.result.OrderID)
			return w.result, nil
		default:
			return OrderResult{}, &OrderError{Stage: w.stage, Err: fmt.Errorf("unexpected stage")}
		}
		if err != nil {
			failed := w.stage
			w.stage = StageFailed
			log.Warn("order failed", "stage", failed, "error", err)
			return OrderResult{}, &OrderError{Stage: failed, Err: err}
		}
		log.Debug("order stage complete", "next", w.stage)
	}
}

func (w *orderWorkflow) search(ctx context.Context) error {
	res, err := w.client.SearchProduct(ctx, SearchOptions{
		Text:        w.opts.Symbol,
		ProductType: w.opts.ProductType,
		Limit:       1,
	})
	if err != nil {
		return err
	}
	if len(res.Data) == 0 {
		return fmt.Errorf("%w: %q", ErrProductNotFound, w.opts.Symbol)
	}
	w.product = res.Data[0]
	w.stage = StageChecking
	return nil
}

func (w *orderWorkflow) check(ctx context.Context) error {
	conf, err := w.client.CheckOrder(ctx, OrderRequest{
		BuySell:   w.action,
		OrderType: w.opts.OrderType,
		ProductID: w.product.ID,
		Size:      w.opts.Size,
		TimeType:  w.opts.TimeType,
		Price:     w.opts.Price,
		StopPrice: w.opts.StopPrice,
	})
	if err != nil {
		return err
	}
	w.confirmation = conf
	w.stage = StageConfirming
	return nil
}

func (w *orderWorkflow) confirm(ctx context.Context) error {
	res, err := w.client.ConfirmOrder(ctx, w.confirmation)
	if err != nil {
		return err
	}
	w.result = res
	w.stage = StageDone
	return nil
}
