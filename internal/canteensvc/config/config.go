package config

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config carries the canteen tunables. The defaults mirror the values
// the school runs with today: a 500 Tsh penalty on insufficient
// balance and a block after 10 penalties.
type Config struct {
	DBUrl            string
	PenaltySurcharge decimal.Decimal
	BlockThreshold   int
	OperatorListCap  int
	AdminListCap     int
	ScanListCap      int
}

func Load() Config {
	return Config{
		DBUrl:            os.Getenv("POSTGRES_URL"),
		PenaltySurcharge: envDecimal("PENALTY_SURCHARGE", decimal.NewFromInt(500)),
		BlockThreshold:   envInt("BLOCK_THRESHOLD", 10),
		OperatorListCap:  envInt("SESSION_LIST_CAP_OPERATOR", 10),
		AdminListCap:     envInt("SESSION_LIST_CAP_ADMIN", 20),
		ScanListCap:      envInt("SCAN_LIST_CAP", 50),
	}
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}
