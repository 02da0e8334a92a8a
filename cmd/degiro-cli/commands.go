package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"degiro/internal/broker"
	"degiro/internal/config"
	"degiro/internal/domain"
	"degiro/internal/engine"
	"degiro/internal/store"
	"degiro/pkg/degiro"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":     runLogin,
	"client":    runClient,
	"cash":      runCash,
	"portfolio": runPortfolio,
	"orders":    runOrders,
	"search":    runSearch,
	"buy":       func(ctx context.Context, a *app, args []string) error { return runOrder(ctx, a, domain.OrderSideBuy, args) },
	"sell":      func(ctx context.Context, a *app, args []string) error { return runOrder(ctx, a, domain.OrderSideSell, args) },
	"cancel":    runCancel,
	"snapshot":  runSnapshot,
}

// app holds the lazily built dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *degiro.Client
	journal *store.SQLiteStore
}

func (a *app) close() {
	if a.journal != nil {
		a.journal.Close()
		a.journal = nil
	}
}

// degiro returns a client carrying a session: the configured one when
// present, otherwise a fresh login.
func (a *app) degiro(ctx context.Context) (*degiro.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	d := a.cfg.Degiro
	opts := []degiro.Option{
		degiro.WithBaseURL(d.BaseURL),
		degiro.WithLogger(a.log),
	}
	if d.HasSession() {
		opts = append(opts, degiro.WithSession(degiro.Session{Token: d.SessionID, AccountID: d.AccountID}))
		a.client = degiro.NewClient(opts...)
		return a.client, nil
	}

	if d.Username == "" || d.Password == "" {
		return nil, errors.New("no session configured and no credentials (set DEGIRO_USER and DEGIRO_PASS)")
	}
	c := degiro.NewClient(opts...)
	if _, err := c.Login(ctx, degiro.Credentials{Username: d.Username, Password: d.Password}); err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func (a *app) broker(ctx context.Context) (broker.Broker, error) {
	switch a.cfg.Trading.Broker {
	case "degiro":
		c, err := a.degiro(ctx)
		if err != nil {
			return nil, err
		}
		return broker.NewDegiroBroker(c, degiro.ProductType(a.cfg.Degiro.ProductType)), nil
	case "alpaca":
		return broker.NewAlpacaBroker(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", a.cfg.Trading.Broker)
	}
}

func (a *app) orderJournal() (*store.SQLiteStore, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	s, err := store.NewSQLiteStore(a.cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening order journal: %w", err)
	}
	a.journal = s
	return s, nil
}

func (a *app) engine(ctx context.Context) (*engine.Engine, error) {
	b, err := a.broker(ctx)
	if err != nil {
		return nil, err
	}
	journal, err := a.orderJournal()
	if err != nil {
		return nil, err
	}
	rm := engine.NewRiskManager(a.cfg.Trading.MaxPositionPct, a.cfg.Trading.MaxOrderValue)
	return engine.NewEngine(b, journal, rm, a.log), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// entryFields flattens update entries for display.
func entryFields(entries []degiro.UpdateEntry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Fields())
	}
	return out
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func runLogin(ctx context.Context, a *app, _ []string) error {
	d := a.cfg.Degiro
	c := degiro.NewClient(degiro.WithBaseURL(d.BaseURL), degiro.WithLogger(a.log))
	s, err := c.Login(ctx, degiro.Credentials{Username: d.Username, Password: d.Password})
	if err != nil {
		return err
	}
	fmt.Printf("DEGIRO_SID=%s\nDEGIRO_ACCOUNT=%d\n", s.Token, s.AccountID)
	return nil
}

func runClient(ctx context.Context, a *app, _ []string) error {
	c, err := a.degiro(ctx)
	if err != nil {
		return err
	}
	info, err := c.ClientInfo(ctx)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func runCash(ctx context.Context, a *app, _ []string) error {
	c, err := a.degiro(ctx)
	if err != nil {
		return err
	}
	funds, err := c.CashFunds(ctx)
	if err != nil {
		return err
	}
	return printJSON(funds.Funds)
}

func runPortfolio(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("portfolio", flag.ExitOnError)
	resolved := fs.Bool("resolved", false, "resolve positions through the configured broker")
	fs.Parse(args)

	if *resolved {
		e, err := a.engine(ctx)
		if err != nil {
			return err
		}
		positions, err := e.GetPositions(ctx)
		if err != nil {
			return err
		}
		return printJSON(positions)
	}

	c, err := a.degiro(ctx)
	if err != nil {
		return err
	}
	pf, err := c.Portfolio(ctx)
	if err != nil {
		return err
	}
	return printJSON(entryFields(pf.Positions))
}

func runOrders(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	journal := fs.Bool("journal", false, "list the local order journal instead of open DeGiro orders")
	status := fs.String("status", "", "journal status filter (pending, accepted, rejected, filled, cancelled)")
	fs.Parse(args)

	if *journal {
		s, err := a.orderJournal()
		if err != nil {
			return err
		}
		orders, err := s.ListOrders(ctx, domain.OrderStatus(*status))
		if err != nil {
			return err
		}
		return printJSON(orders)
	}

	c, err := a.degiro(ctx)
	if err != nil {
		return err
	}
	open, err := c.Orders(ctx)
	if err != nil {
		return err
	}
	return printJSON(entryFields(open.Orders))
}

func runSearch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	productType := fs.String("type", "all", "product type (shares, etfs, bonds, ..., all)")
	limit := fs.Int("limit", 0, "maximum results (default 7)")
	offset := fs.Int("offset", 0, "result offset")
	sortColumn := fs.String("sort", "", "sort column")
	sortType := fs.String("order", "", "sort direction (asc, desc)")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return errors.New("usage: degiro-cli search [options] <text>")
	}
	c, err := a.degiro(ctx)
	if err != nil {
		return err
	}
	res, err := c.SearchProduct(ctx, degiro.SearchOptions{
		Text:        strings.Join(fs.Args(), " "),
		ProductType: degiro.ProductType(*productType),
		SortColumn:  *sortColumn,
		SortType:    *sortType,
		Limit:       *limit,
		Offset:      *offset,
	})
	if err != nil {
		return err
	}
	for _, p := range res.Data {
		fmt.Printf("%-10s %-8s %-12s %-4s %s\n", p.ID, p.Symbol, p.ISIN, p.Currency, p.Name)
	}
	return nil
}

func runOrder(ctx context.Context, a *app, side domain.OrderSide, args []string) error {
	fs := flag.NewFlagSet(string(side), flag.ExitOnError)
	orderType := fs.String("type", "market", "order type (market, limit, stop, stop_limit)")
	qty := fs.Float64("qty", 0, "order size")
	price := fs.Float64("price", 0, "limit price")
	stop := fs.Float64("stop", 0, "stop price")
	tif := fs.String("tif", "day", "time in force (day, gtc)")
	fs.Parse(args)

	if fs.NArg() != 1 || *qty <= 0 {
		return fmt.Errorf("usage: degiro-cli %s -qty N [options] <symbol>", side)
	}
	e, err := a.engine(ctx)
	if err != nil {
		return err
	}
	placed, err := e.SubmitOrder(ctx, &domain.Order{
		Symbol:      fs.Arg(0),
		Side:        side,
		Type:        domain.OrderType(*orderType),
		TimeInForce: domain.TimeInForce(*tif),
		Qty:         *qty,
		LimitPrice:  *price,
		StopPrice:   *stop,
	})
	if placed != nil {
		if perr := printJSON(placed); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}

func runCancel(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: degiro-cli cancel <order-id>")
	}
	e, err := a.engine(ctx)
	if err != nil {
		return err
	}
	if err := e.CancelOrder(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("cancelled %s\n", args[0])
	return nil
}

func runSnapshot(ctx context.Context, a *app, _ []string) error {
	e, err := a.engine(ctx)
	if err != nil {
		return err
	}
	positions, err := e.GetPositions(ctx)
	if err != nil {
		return err
	}
	if _, err := e.GetAccount(ctx); err != nil {
		a.log.Warn("reading account for equity gauge", "error", err)
	}

	ps := store.NewParquetStore(a.cfg.Storage.DataDir)
	now := time.Now()
	if err := ps.WriteSnapshot(ctx, now, positions); err != nil {
		return err
	}
	fmt.Printf("wrote %d positions for %s\n", len(positions), now.Format("2006-01-02"))
	return nil
}
