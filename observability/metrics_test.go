package observability

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"intentsettle/core/events"
)

func TestSettlementMetrics(t *testing.T) {
	asset := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	m := Settlement()
	m.RecordSettled(asset, big.NewInt(1850), big.NewInt(0), big.NewInt(1), true, 20*time.Millisecond)

	label := labelAsset(asset)
	if got := testutil.ToFloat64(m.settled.WithLabelValues(label)); got != 1 {
		t.Fatalf("settled counter = %v", got)
	}
	if got := testutil.ToFloat64(m.proceeds.WithLabelValues(label)); got != 1850 {
		t.Fatalf("proceeds counter = %v", got)
	}
	if got := testutil.ToFloat64(m.deferred.WithLabelValues(label)); got != 1 {
		t.Fatalf("deferred counter = %v", got)
	}

	m.RecordRejection("before_swap", "")
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("before_swap", "unspecified")); got != 1 {
		t.Fatalf("rejection counter = %v", got)
	}
}

func TestEventMetricsDrivePauseGauge(t *testing.T) {
	Events().Emit(events.PauseToggled{Paused: true})
	if got := testutil.ToFloat64(Payouts().pauseEngaged); got != 1 {
		t.Fatalf("pause gauge = %v", got)
	}
	Events().Emit(events.PauseToggled{Paused: false})
	if got := testutil.ToFloat64(Payouts().pauseEngaged); got != 0 {
		t.Fatalf("pause gauge = %v", got)
	}
	if got := testutil.ToFloat64(Events().emitted.WithLabelValues(events.TypePauseToggled)); got != 2 {
		t.Fatalf("emitted counter = %v", got)
	}
}

func TestBigToFloatHandlesNil(t *testing.T) {
	if bigToFloat(nil) != 0 {
		t.Fatalf("nil should map to zero")
	}
	if labelAsset(common.Address{}) != "unknown" {
		t.Fatalf("zero address should be unknown")
	}
}
