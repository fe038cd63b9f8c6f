package xmath

import "testing"

func TestSum(t *testing.T) {
	if got := Sum([]float64{1, 2, 3.5}); got != 6.5 {
		t.Errorf("Sum() = %v, want 6.5", got)
	}
	if got := Sum([]int{}); got != 0 {
		t.Errorf("Sum(empty) = %v, want 0", got)
	}
}

func TestArgMax(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want int
	}{
		{"basic", []float64{1, 5, 3}, 1},
		{"empty", nil, -1},
		{"ties keep first", []float64{2, 2, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArgMax(tt.in); got != tt.want {
				t.Errorf("ArgMax(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("Clamp(5,0,3) = %d, want 3", got)
	}
	if got := Clamp(-1, 0, 3); got != 0 {
		t.Errorf("Clamp(-1,0,3) = %d, want 0", got)
	}
	if got := Clamp(2, 0, 3); got != 2 {
		t.Errorf("Clamp(2,0,3) = %d, want 2", got)
	}
}
