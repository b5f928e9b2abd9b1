package rolling

import "testing"

func TestEMA_FirstValueSeeds(t *testing.T) {
	e := NewEMA(10)

	if _, ok := e.Value(); ok {
		t.Fatal("Value defined before first update")
	}
	if got := e.Update(42); got != 42 {
		t.Fatalf("first Update = %v, want 42", got)
	}
	if v, ok := e.Value(); !ok || v != 42 {
		t.Fatalf("Value = %v, %v, want 42, true", v, ok)
	}
}

func TestEMA_Recurrence(t *testing.T) {
	e := NewEMA(9) // alpha = 0.2
	e.Update(100)

	got := e.Update(110)
	if want := 0.2*110 + 0.8*100; !almostEqual(got, want, 1e-12) {
		t.Fatalf("Update = %v, want %v", got, want)
	}
}

func TestEMA_ConstantInputIsFixedPoint(t *testing.T) {
	e := NewEMA(12)
	for i := 0; i < 100; i++ {
		e.Update(55.5)
	}
	if v, _ := e.Value(); !almostEqual(v, 55.5, 1e-12) {
		t.Fatalf("Value = %v, want 55.5", v)
	}
}
