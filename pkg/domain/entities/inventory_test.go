package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestStockLot_Validation(t *testing.T) {
	received := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	expiry := received.AddDate(2, 0, 0)

	validLot, err := NewStockLot("P1", "", "LOT001", received, &expiry, Liquid, decimal.NullDecimal{})
	if err != nil {
		t.Fatalf("Expected valid lot creation to succeed: %v", err)
	}
	if validLot.LocationID != DefaultLocation {
		t.Errorf("Expected default location %s, got %s", DefaultLocation, validLot.LocationID)
	}
	if validLot.ID == "" {
		t.Error("Expected lot id to be generated")
	}

	before := received.AddDate(0, 0, -1)

	testCases := []struct {
		name        string
		productID   ProductID
		lotCode     string
		expiry      *time.Time
		unit        QuantityUnit
		price       decimal.NullDecimal
		expectError string
	}{
		{"empty product", "", "LOT001", nil, Liquid, decimal.NullDecimal{}, "product_id: cannot be empty"},
		{"empty lot code", "P1", "", nil, Liquid, decimal.NullDecimal{}, "lot_code: cannot be empty"},
		{"expiry before receipt", "P1", "LOT001", &before, Liquid, decimal.NullDecimal{}, "expiry_date: must not be before the received date"},
		{"invalid unit", "P1", "LOT001", nil, QuantityUnit(0), decimal.NullDecimal{}, "unit: must be l or kg"},
		{"negative price", "P1", "LOT001", nil, Solid, decimal.NewNullDecimal(decimal.NewFromInt(-1)), "unit_price: cannot be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStockLot(tc.productID, "WAREHOUSE", tc.lotCode, received, tc.expiry, tc.unit, tc.price)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected a validation error, got %T", err)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestLedgerMovement_Validation(t *testing.T) {
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	lot, err := NewStockLot("P1", "WAREHOUSE", "LOT001", date, nil, Liquid, decimal.NullDecimal{})
	if err != nil {
		t.Fatalf("Failed to create lot: %v", err)
	}

	testCases := []struct {
		name      string
		direction Direction
		quantity  decimal.Decimal
		unit      QuantityUnit
		wantErr   bool
	}{
		{"positive in", In, decimal.NewFromInt(10), Liquid, false},
		{"positive out", Out, decimal.NewFromInt(10), Liquid, false},
		{"negative adjust", Adjust, decimal.NewFromInt(-3), Liquid, false},
		{"zero in", In, decimal.Zero, Liquid, true},
		{"negative out", Out, decimal.NewFromInt(-1), Liquid, true},
		{"zero adjust", Adjust, decimal.Zero, Liquid, true},
		{"unit mismatch", In, decimal.NewFromInt(1), Solid, true},
		{"unknown direction", Direction(0), decimal.NewFromInt(1), Liquid, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewLedgerMovement(lot, tc.direction, tc.quantity, tc.unit, date)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got movement %+v", m)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if m.LotID != lot.ID {
				t.Errorf("Expected lot id %s, got %s", lot.ID, m.LotID)
			}
		})
	}
}

func TestLedgerMovement_Signed(t *testing.T) {
	ten := decimal.NewFromInt(10)
	if got := (LedgerMovement{Direction: In, Quantity: ten}).Signed(); !got.Equal(ten) {
		t.Errorf("Expected in to be +10, got %s", got)
	}
	if got := (LedgerMovement{Direction: Out, Quantity: ten}).Signed(); !got.Equal(ten.Neg()) {
		t.Errorf("Expected out to be -10, got %s", got)
	}
	if got := (LedgerMovement{Direction: Adjust, Quantity: ten.Neg()}).Signed(); !got.Equal(ten.Neg()) {
		t.Errorf("Expected adjust to keep its sign, got %s", got)
	}
}
