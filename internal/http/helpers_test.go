package http

import (
	"strconv"

	"github.com/shopspring/decimal"
)

func jsonNumber(id int64) string { return strconv.FormatInt(id, 10) }

func decimalOf(s string) decimal.Decimal { return decimal.RequireFromString(s) }
