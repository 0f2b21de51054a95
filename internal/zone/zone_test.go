package zone

import "testing"

func TestNewRadii(t *testing.T) {
	r := NewRadii(200)
	if r.Critical != 200 {
		t.Errorf("Critical = %f, want 200", r.Critical)
	}
	if r.Warning != 600 {
		t.Errorf("Warning = %f, want 600", r.Warning)
	}
}

func TestClassify(t *testing.T) {
	r := NewRadii(200)

	tests := []struct {
		distance float64
		want     State
	}{
		{0, Critical},
		{150, Critical},
		{200, Critical},
		{201, Warning},
		{600, Warning},
		{601, Safe},
		{10000, Safe},
	}

	for _, tt := range tests {
		if got := Classify(tt.distance, r); got != tt.want {
			t.Errorf("Classify(%f) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestState_Ordering(t *testing.T) {
	if !(Safe < Warning && Warning < Critical) {
		t.Error("states must order Safe < Warning < Critical")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Safe, "safe"},
		{Warning, "warning"},
		{Critical, "critical"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
