package main

import (
	"context"
	"log/slog"
	"testing"

	"degiro/internal/config"
)

func TestAppBroker(t *testing.T) {
	a := &app{
		cfg: &config.Config{Trading: config.TradingConfig{Broker: "alpaca"}},
		log: slog.Default(),
	}
	b, err := a.broker(context.Background())
	if err != nil {
		t.Fatalf("broker() returned error: %v", err)
	}
	if got := b.Name(); got != "alpaca" {
		t.Errorf("broker().Name() = %q, want %q", got, "alpaca")
	}
}

func TestAppBrokerRejectsSimulator(t *testing.T) {
	a := &app{
		cfg: &config.Config{Trading: config.TradingConfig{Broker: "simulator"}},
		log: slog.Default(),
	}
	if _, err := a.broker(context.Background()); err == nil {
		t.Error("broker() should not offer the in-memory simulator")
	}
}
