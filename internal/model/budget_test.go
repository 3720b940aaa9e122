package model

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestWholeUnits(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"half up", "499.5", 500},
		{"half away from zero", "-499.5", -500},
		{"exact", "1677900", 1677900},
		{"max int64", "9223372036854775807", math.MaxInt64},
		{"saturates high", "20000000000000000000", math.MaxInt64},
		{"saturates low", "-20000000000000000000", -math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WholeUnits(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Errorf("WholeUnits(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestBudget_CheckAmounts(t *testing.T) {
	ok := Budget{
		DirectSubtotal: decimal.NewFromInt(1_000_000),
		TotalBeforeTax: decimal.NewFromInt(1_410_000),
		TotalWithTax:   decimal.NewFromInt(1_677_900),
		Currency:       "CLP",
	}
	if err := ok.CheckAmounts(); err != nil {
		t.Errorf("CheckAmounts() = %v, want nil", err)
	}

	huge := decimal.RequireFromString("20000000000000000000")
	bad := ok
	bad.DirectSubtotal = huge
	bad.TotalWithTax = huge.Mul(decimal.RequireFromString("1.6779"))

	err := bad.CheckAmounts()
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("CheckAmounts() = %v, want ErrAmountOverflow", err)
	}
	if !strings.Contains(err.Error(), "subtotal_directo") {
		t.Errorf("error should name the total, got %v", err)
	}
}

func TestBudget_MarshalJSONRejectsOverflow(t *testing.T) {
	b := Budget{
		Lines:          []BudgetLine{},
		DirectSubtotal: decimal.RequireFromString("20000000000000000000"),
		Currency:       "CLP",
	}

	if _, err := json.Marshal(b); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("json.Marshal error = %v, want ErrAmountOverflow", err)
	}

	b.DirectSubtotal = decimal.NewFromInt(500)
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"subtotal_directo":500`) {
		t.Errorf("unexpected JSON: %s", data)
	}
}
