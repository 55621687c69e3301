package config

import (
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SaleTotalTolerance is the absolute rounding tolerance accepted when
// comparing a declared sale total against the sum of its lines.
//
// Set via env:
// - SALE_TOTAL_TOLERANCE=1 (default: 1 unit of currency)
//
// Mismatches beyond 100x this tolerance are reported as a distinct
// "too large to be rounding" validation failure.
func SaleTotalTolerance() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("SALE_TOTAL_TOLERANCE"))
	if raw == "" {
		return decimal.NewFromInt(1)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.NewFromInt(1)
	}
	return d
}

// LowStockThreshold: a post-sale on-hand quantity strictly below this (but
// above zero) triggers a low-stock notification.
//
// Set via env:
// - LOW_STOCK_THRESHOLD=3
func LowStockThreshold() int {
	return intFromEnv("LOW_STOCK_THRESHOLD", 3)
}

// High-value sale thresholds per currency bucket (phones sell in USD,
// accessories in ARS).
//
// Set via env:
// - HIGH_VALUE_USD_THRESHOLD=1500
// - HIGH_VALUE_ARS_THRESHOLD=500000
func HighValueUSDThreshold() decimal.Decimal {
	return decimalFromEnv("HIGH_VALUE_USD_THRESHOLD", 1500)
}

func HighValueARSThreshold() decimal.Decimal {
	return decimalFromEnv("HIGH_VALUE_ARS_THRESHOLD", 500000)
}

// SaleTxTimeout bounds every ledger-mutating transaction.
//
// Set via env:
// - SALE_TX_TIMEOUT_SECONDS=10
func SaleTxTimeout() time.Duration {
	return time.Duration(intFromEnv("SALE_TX_TIMEOUT_SECONDS", 10)) * time.Second
}

func decimalFromEnv(key string, def int64) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return decimal.NewFromInt(def)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NewFromInt(def)
	}
	return d
}
