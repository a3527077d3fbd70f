package draw

import (
	"testing"

	"github.com/luckypool/luckypool-service/internal/domain"
)

func TestDivisorValue(t *testing.T) {
	if Divisor != 344693032001 {
		t.Fatalf("unexpected divisor %d", Divisor)
	}
}

func TestAmountFixedVectors(t *testing.T) {
	cases := []struct {
		name   string
		random []byte
		x      uint64
		amount uint64
	}{
		{"zero input hits the jackpot tier", make([]byte, 8), 0, 100_000},
		{"value 5 is still jackpot", []byte{0, 0, 0, 0, 29, 205, 101, 0}, 5 * domain.Token1, 100_000},
		{"value 100 pays the fixed minimum", []byte{0, 0, 0, 2, 84, 11, 228, 0}, 100 * domain.Token1, 1_000},
		{"value 1000 pays the fixed minimum", []byte{0, 0, 0, 23, 72, 118, 232, 0}, 1000 * domain.Token1, 1_000},
		{"value 2000 pays itself", []byte{0, 0, 0, 46, 144, 237, 208, 0}, 2000 * domain.Token1, 2_000},
		{"value 3446 pays itself", []byte{0, 0, 0, 80, 59, 194, 182, 0}, 3446 * domain.Token1, 3_446},
		{"modulus wraparound returns to the jackpot tier", []byte{0, 0, 0, 80, 65, 184, 151, 0}, 3447*domain.Token1 - Divisor, 100_000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			x, amount := Amount(tc.random)
			if x != tc.x {
				t.Fatalf("raw value: got %d, want %d", x, tc.x)
			}
			if amount != tc.amount*domain.Token1 {
				t.Fatalf("reward: got %d, want %d", amount, tc.amount*domain.Token1)
			}
		})
	}
}

func TestAmountUsesOnlyFirstEightBytes(t *testing.T) {
	long := append([]byte{0, 0, 0, 2, 84, 11, 228, 0}, 0xff, 0xff, 0xff)
	x, amount := Amount(long)
	if x != 100*domain.Token1 || amount != 1000*domain.Token1 {
		t.Fatalf("trailing bytes affected the reduction: x=%d amount=%d", x, amount)
	}
}

func TestIsJackpot(t *testing.T) {
	if !IsJackpot(JackpotAmount * domain.Token1) {
		t.Fatal("jackpot amount not recognized")
	}
	if IsJackpot(MinimumAmount * domain.Token1) {
		t.Fatal("minimum tier misclassified as jackpot")
	}
}
