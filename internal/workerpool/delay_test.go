package workerpool_test

import (
	"testing"
	"time"

	"github.com/kaushik2901/async-endpoints/internal/workerpool"
)

func TestDelayCalculatorOutcomeTable(t *testing.T) {
	d := workerpool.NewDelayCalculator(workerpool.DelayConfig{
		PollingInterval: 2 * time.Second,
		ErrorDelay:      7 * time.Second,
	})

	cases := []struct {
		outcome workerpool.Outcome
		want    time.Duration
	}{
		{workerpool.JobSuccessfullyEnqueued, 2 * time.Second},
		{workerpool.NoJobFound, 6 * time.Second},
		{workerpool.FailedToEnqueue, 4 * time.Second},
		{workerpool.ErrorOccurred, 7 * time.Second},
	}

	for _, c := range cases {
		got := d.Delay(c.outcome)
		if got != c.want {
			t.Errorf("Delay(%s) = %s, want %s", c.outcome, got, c.want)
		}
	}
}

func TestDelayCalculatorCapsNoJobFoundAtMaxDelay(t *testing.T) {
	d := workerpool.NewDelayCalculator(workerpool.DelayConfig{PollingInterval: 20 * time.Second})
	if got := d.Delay(workerpool.NoJobFound); got != 30*time.Second {
		t.Fatalf("expected cap at 30s, got %s", got)
	}
}
