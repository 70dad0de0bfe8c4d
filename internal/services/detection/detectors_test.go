package detection

import (
	"testing"
	"time"

	"BotRadar/internal/domain/models"
)

func trade(venue, symbol string, side models.Side, notional, ts float64) models.TradeEvent {
	return models.NewTradeEvent(venue, symbol, notional, 1, side, ts, "", false)
}

func window(symbol string, evs ...models.TradeEvent) Window {
	return Window{Venue: "test", Symbol: symbol, Events: evs}
}

func TestMarketMakerDetectorFires(t *testing.T) {
	var evs []models.TradeEvent
	for i := 0; i < 12; i++ {
		side := models.SideBuy
		if i%2 == 1 {
			side = models.SideSell
		}
		evs = append(evs, trade("test", "ETHUSDT", side, 500+float64(i%3), float64(i)))
	}
	out, ok := NewMarketMakerDetector().TryDetect(window("ETHUSDT", evs...))
	if !ok {
		t.Fatalf("expected market maker match")
	}
	if out.Confidence != mmMaxConfidence || out.DirectionBias != 0 || out.Signature != "500" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestMarketMakerDetectorRejectsSlowFlow(t *testing.T) {
	var evs []models.TradeEvent
	for i := 0; i < 12; i++ {
		side := models.SideBuy
		if i%2 == 1 {
			side = models.SideSell
		}
		evs = append(evs, trade("test", "ETHUSDT", side, 500, float64(i)*5))
	}
	if _, ok := NewMarketMakerDetector().TryDetect(window("ETHUSDT", evs...)); ok {
		t.Fatalf("5s mean interval must not match")
	}
}

func TestMarketMakerDetectorZeroSizes(t *testing.T) {
	var evs []models.TradeEvent
	for i := 0; i < 12; i++ {
		side := models.SideBuy
		if i%2 == 1 {
			side = models.SideSell
		}
		evs = append(evs, trade("test", "ETHUSDT", side, 0, float64(i)))
	}
	if _, ok := NewMarketMakerDetector().TryDetect(window("ETHUSDT", evs...)); ok {
		t.Fatalf("zero mean size must degrade to no detection")
	}
}

func TestIcebergDetectorSellSide(t *testing.T) {
	evs := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideSell, 2000, 1),
		trade("test", "ETHUSDT", models.SideSell, 2030, 2),
		trade("test", "ETHUSDT", models.SideBuy, 75, 3),
		trade("test", "ETHUSDT", models.SideSell, 1980, 4),
		trade("test", "ETHUSDT", models.SideSell, 2010, 6),
		trade("test", "ETHUSDT", models.SideSell, 1990, 9),
	}
	out, ok := NewIcebergDetector().TryDetect(window("ETHUSDT", evs...))
	if !ok {
		t.Fatalf("expected iceberg match")
	}
	if out.DirectionBias != -1 || out.Signature != "2000" {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %v", out.Confidence)
	}
}

func TestIcebergDetectorMixedSides(t *testing.T) {
	evs := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideSell, 2000, 1),
		trade("test", "ETHUSDT", models.SideBuy, 2000, 2),
		trade("test", "ETHUSDT", models.SideSell, 2000, 3),
		trade("test", "ETHUSDT", models.SideBuy, 2000, 4),
		trade("test", "ETHUSDT", models.SideSell, 2000, 5),
	}
	if _, ok := NewIcebergDetector().TryDetect(window("ETHUSDT", evs...)); ok {
		t.Fatalf("3/5 side ratio must not match")
	}
}

func TestIcebergDetectorIgnoresDust(t *testing.T) {
	var evs []models.TradeEvent
	for i := 0; i < 10; i++ {
		evs = append(evs, trade("test", "ETHUSDT", models.SideBuy, 20, float64(i)))
	}
	if _, ok := NewIcebergDetector().TryDetect(window("ETHUSDT", evs...)); ok {
		t.Fatalf("sizes rounding to zero must not match")
	}
}

func TestScalperDetectorCountsPairs(t *testing.T) {
	evs := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideBuy, 1000, 0),
		trade("test", "ETHUSDT", models.SideSell, 1050, 5),
		trade("test", "ETHUSDT", models.SideBuy, 3000, 10),
		trade("test", "ETHUSDT", models.SideSell, 3100, 15),
		trade("test", "ETHUSDT", models.SideBuy, 9000, 20),
		trade("test", "ETHUSDT", models.SideSell, 9500, 25),
	}
	out, ok := NewScalperDetector().TryDetect(window("ETHUSDT", evs...))
	if !ok {
		t.Fatalf("expected scalper match")
	}
	if out.Confidence < 0.3-1e-9 || out.Confidence > 0.3+1e-9 {
		t.Fatalf("expected confidence 0.3, got %v", out.Confidence)
	}
	if out.AvgIntervalSeconds != scalperAvgInterval || out.Signature != "scalper" {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.DirectionBias != 0 {
		t.Fatalf("balanced legs must give zero bias, got %v", out.DirectionBias)
	}
}

func TestScalperDetectorIgnoresStalePairs(t *testing.T) {
	evs := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideBuy, 1000, 0),
		trade("test", "ETHUSDT", models.SideSell, 1000, 100),
		trade("test", "ETHUSDT", models.SideBuy, 1000, 200),
		trade("test", "ETHUSDT", models.SideSell, 1000, 300),
	}
	if _, ok := NewScalperDetector().TryDetect(window("ETHUSDT", evs...)); ok {
		t.Fatalf("pairs 100s apart must not match")
	}
}

func TestInstitutionalDetectorSession(t *testing.T) {
	d := NewInstitutionalDetector(DefaultInstitutionalConfig())
	inSession := float64(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).Unix())
	outOfSession := float64(time.Date(2024, 3, 5, 16, 0, 0, 0, time.UTC).Unix())

	out, ok := d.TryDetect(window("BTCUSDT", trade("test", "BTCUSDT", models.SideBuy, 75000, inSession)))
	if !ok {
		t.Fatalf("expected institutional match")
	}
	if out.Signature != "7" || out.Confidence != 0.6 || out.ConfidenceStep != 0.05 {
		t.Fatalf("unexpected output %+v", out)
	}
	if _, ok := d.TryDetect(window("BTCUSDT", trade("test", "BTCUSDT", models.SideBuy, 75000, outOfSession))); ok {
		t.Fatalf("16:00 UTC is outside the window")
	}
	if _, ok := d.TryDetect(window("ETHUSDT", trade("test", "ETHUSDT", models.SideBuy, 75000, inSession))); ok {
		t.Fatalf("non-BTC symbol must not match")
	}
	if _, ok := d.TryDetect(window("BTCUSDT", trade("test", "BTCUSDT", models.SideBuy, 50000, inSession))); ok {
		t.Fatalf("threshold is exclusive")
	}
}

func TestInstitutionalDetectorWrappingSession(t *testing.T) {
	d := NewInstitutionalDetector(InstitutionalConfig{MinNotional: 1000, StartHourUTC: 22, EndHourUTC: 2, AssetFilter: "eth"})
	late := float64(time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC).Unix())
	early := float64(time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC).Unix())
	noon := float64(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC).Unix())
	for _, ts := range []float64{late, early} {
		if _, ok := d.TryDetect(window("ETHUSDT", trade("test", "ETHUSDT", models.SideSell, 5000, ts))); !ok {
			t.Fatalf("expected match at %v", ts)
		}
	}
	if _, ok := d.TryDetect(window("ETHUSDT", trade("test", "ETHUSDT", models.SideSell, 5000, noon))); ok {
		t.Fatalf("noon is outside a 22-02 session")
	}
}

func TestWashTradeDetector(t *testing.T) {
	evs := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideSell, 1000, 10),
		trade("test", "ETHUSDT", models.SideBuy, 1000.5, 10.3),
	}
	out, ok := NewWashTradeDetector().TryDetect(window("ETHUSDT", evs...))
	if !ok {
		t.Fatalf("expected wash match")
	}
	if out.Confidence != 0.9 || out.DirectionBias != 0 || out.Signature != "wash_trader" {
		t.Fatalf("unexpected output %+v", out)
	}

	slow := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideSell, 1000, 10),
		trade("test", "ETHUSDT", models.SideBuy, 1000, 11),
	}
	if _, ok := NewWashTradeDetector().TryDetect(window("ETHUSDT", slow...)); ok {
		t.Fatalf("1s gap must not match")
	}
	sameSide := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideBuy, 1000, 10),
		trade("test", "ETHUSDT", models.SideBuy, 1000, 10.1),
	}
	if _, ok := NewWashTradeDetector().TryDetect(window("ETHUSDT", sameSide...)); ok {
		t.Fatalf("same side must not match")
	}
}

func TestIntervalSubtypes(t *testing.T) {
	cases := []struct {
		mean float64
		want string
	}{
		{0.5, models.SubtypeMarketMaker},
		{2, models.SubtypeScalper},
		{29.9, models.SubtypeScalper},
		{30, models.SubtypeGridBot},
		{299, models.SubtypeGridBot},
		{300, models.SubtypeMomentumChaser},
	}
	for _, c := range cases {
		if got := intervalSubtype(c.mean); got != c.want {
			t.Fatalf("intervalSubtype(%v)=%s want %s", c.mean, got, c.want)
		}
	}
}

func TestIntervalDetector(t *testing.T) {
	var evs []models.TradeEvent
	for i := 0; i < 15; i++ {
		evs = append(evs, trade("test", "ETHUSDT", models.SideBuy, float64(100*(i+1)), float64(i)*60))
	}
	out, ok := NewIntervalDetector().TryDetect(window("ETHUSDT", evs...))
	if !ok {
		t.Fatalf("expected interval match")
	}
	if out.Subtype != models.SubtypeGridBot || out.Signature != models.SubtypeGridBot {
		t.Fatalf("unexpected subtype %+v", out)
	}
	if out.Confidence != 1 || out.DirectionBias != 1 {
		t.Fatalf("unexpected output %+v", out)
	}

	burst := []models.TradeEvent{
		trade("test", "ETHUSDT", models.SideBuy, 1, 0),
		trade("test", "ETHUSDT", models.SideBuy, 1, 0.05),
		trade("test", "ETHUSDT", models.SideBuy, 1, 0.1),
	}
	if _, ok := NewIntervalDetector().TryDetect(window("ETHUSDT", burst...)); ok {
		t.Fatalf("sub-100ms cadence must not match")
	}
}

func TestSizeBuckets(t *testing.T) {
	if sizeSignature(10000) != sizeSignature(10400) {
		t.Fatalf("10000 and 10400 must share a market-maker bucket")
	}
	if sizeSignature(10000) == sizeSignature(10600) {
		t.Fatalf("10000 and 10600 must not share a market-maker bucket")
	}
	for _, v := range []float64{9960, 10040} {
		if roundedSize(v) != 10000 {
			t.Fatalf("roundedSize(%v)=%v", v, roundedSize(v))
		}
	}
	if roundedSize(10500) == 10000 || roundedSize(9500) == 10000 {
		t.Fatalf("a 5%% spread must leave the 10000 iceberg bucket")
	}
}
