package models

import (
	"time"
)

type Ticker struct {
	Symbol    string
	LastPrice float64
	Timestamp time.Time
}

type Balance struct {
	Asset     string
	Available float64
	UpdatedAt time.Time
}
