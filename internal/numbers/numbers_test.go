package numbers

import "testing"

func TestPipSizeJPYCross(t *testing.T) {
	if got := PipSize("USDJPY"); got != 0.01 {
		t.Errorf("PipSize(USDJPY) = %v, want 0.01", got)
	}
	if got := PipSize("EURUSD"); got != 0.0001 {
		t.Errorf("PipSize(EURUSD) = %v, want 0.0001", got)
	}
}

func TestDeviationPips(t *testing.T) {
	got := DeviationPips("EURUSD", 1.1005, 1.1000)
	if got < 4.9 || got > 5.1 {
		t.Errorf("DeviationPips = %v, want ~5", got)
	}
}
