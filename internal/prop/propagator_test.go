package prop

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/flightprop/internal/dynamo"
	"github.com/san-kum/flightprop/internal/events"
	"github.com/san-kum/flightprop/internal/models"
	"github.com/san-kum/flightprop/internal/tableau"
)

func tightConfig(tol float64) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.AbsTol = tol
	cfg.RelTol = tol
	return cfg
}

func TestDecayScenario(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddDetector(&events.FuncDetector{
		GFunc:   func(_ float64, y dynamo.State) float64 { return y[0] - 0.5 },
		TimeTol: 1e-9,
	})

	res, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 5, tightConfig(1e-8))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if got, want := res.Y[0], math.Exp(-5); math.Abs(got-want) > 1e-6 {
		t.Errorf("y(5) = %v, want %v", got, want)
	}
	if res.T != 5 {
		t.Errorf("final time = %v, want exactly 5", res.T)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(res.Events))
	}
	ev := res.Events[0]
	if math.Abs(ev.T-math.Ln2) > 1e-8 {
		t.Errorf("event time = %v, want ln 2 = %v", ev.T, math.Ln2)
	}
	if ev.Increasing {
		t.Error("decay crossing reported as increasing")
	}
	if ev.Action != events.Continue {
		t.Errorf("event action = %v, want Continue", ev.Action)
	}
	if math.Abs(ev.Y[0]-0.5) > 1e-8 {
		t.Errorf("event state = %v, want 0.5", ev.Y[0])
	}
	if res.Stats.Steps == 0 || res.Stats.Evaluations == 0 {
		t.Error("stats not populated")
	}
}

func TestDecayBackwardEvent(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddDetector(&events.FuncDetector{
		GFunc:   func(_ float64, y dynamo.State) float64 { return y[0] - 0.5 },
		TimeTol: 1e-9,
	})

	// The detector reads the state, so localization accuracy is bounded by
	// interior dense-output error, which grows with step size; cap the step
	// to keep that error below the asserted bound.
	cfg := tightConfig(1e-9)
	cfg.MaxStep = 0.1
	res, err := p.Propagate(context.Background(), 5, dynamo.State{math.Exp(-5)}, 0, cfg)
	if err != nil {
		t.Fatalf("backward propagate: %v", err)
	}
	if res.T != 0 {
		t.Errorf("final time = %v, want exactly 0", res.T)
	}
	if math.Abs(res.Y[0]-1) > 1e-6 {
		t.Errorf("y(0) = %v, want 1", res.Y[0])
	}
	if len(res.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(res.Events))
	}
	if math.Abs(res.Events[0].T-math.Ln2) > 1e-8 {
		t.Errorf("event time = %v, want ln 2", res.Events[0].T)
	}
}

func TestRoundTripSymmetry(t *testing.T) {
	eqs := models.NewHarmonic(1.0)
	p := New(eqs, tableau.DormandPrince54())
	cfg := tightConfig(1e-10)
	y0 := dynamo.State{1, 0}

	fwd, err := p.Propagate(context.Background(), 0, y0, 5, cfg)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	back, err := p.Propagate(context.Background(), 5, fwd.Y, 0, cfg)
	if err != nil {
		t.Fatalf("backward: %v", err)
	}
	for i := range y0 {
		if math.Abs(back.Y[i]-y0[i]) > 1e-7 {
			t.Errorf("component %d: round trip %v, want %v", i, back.Y[i], y0[i])
		}
	}
}

func TestTighterToleranceTightensError(t *testing.T) {
	y0 := dynamo.State{1}
	errAt := func(tol float64) float64 {
		p := New(models.NewDecay(1.0), tableau.DormandPrince54())
		res, err := p.Propagate(context.Background(), 0, y0, 2, tightConfig(tol))
		if err != nil {
			t.Fatalf("tol %g: %v", tol, err)
		}
		return math.Abs(res.Y[0] - math.Exp(-2))
	}
	loose := errAt(1e-6)
	tight := errAt(1e-9)
	if tight >= loose {
		t.Errorf("error did not shrink: %g at 1e-6, %g at 1e-9", loose, tight)
	}
	if tight > 1e-7 {
		t.Errorf("error %g too large for tolerance 1e-9", tight)
	}
}

func TestStopAtImpact(t *testing.T) {
	p := New(models.NewBallistic(), tableau.DormandPrince54())
	p.AddDetector(&models.GroundImpact{})

	res, err := p.Propagate(context.Background(), 0, dynamo.State{0, 10, 5, 0}, 5, tightConfig(1e-9))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if !res.Stopped {
		t.Fatal("propagation did not stop at impact")
	}
	tImpact := math.Sqrt(2 * 10 / 9.81)
	if math.Abs(res.T-tImpact) > 1e-8 {
		t.Errorf("impact time = %v, want %v", res.T, tImpact)
	}
	if math.Abs(res.Y[1]) > 1e-7 {
		t.Errorf("altitude at impact = %v, want 0", res.Y[1])
	}
	if len(res.Events) != 1 || res.Events[0].Action != events.Stop {
		t.Errorf("events = %+v, want a single Stop", res.Events)
	}
}

func TestBounceResetsState(t *testing.T) {
	p := New(models.NewBallistic(), tableau.DormandPrince54())
	p.AddDetector(&models.GroundImpact{Restitution: 0.7})

	res, err := p.Propagate(context.Background(), 0, dynamo.State{0, 10, 5, 0}, 4, tightConfig(1e-9))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if res.Stopped {
		t.Fatal("bounce must not stop the propagation")
	}
	if len(res.Events) != 2 {
		t.Fatalf("events = %d, want 2 bounces", len(res.Events))
	}
	t1 := math.Sqrt(2 * 10 / 9.81)
	t2 := t1 + 2*0.7*t1 // flight time after a bounce scales with restitution
	if math.Abs(res.Events[0].T-t1) > 1e-6 {
		t.Errorf("first bounce at %v, want %v", res.Events[0].T, t1)
	}
	if math.Abs(res.Events[1].T-t2) > 1e-6 {
		t.Errorf("second bounce at %v, want %v", res.Events[1].T, t2)
	}
	for _, ev := range res.Events {
		if ev.Action != events.ResetState {
			t.Errorf("bounce action = %v, want ResetState", ev.Action)
		}
	}
	if res.Y[1] <= 0 {
		t.Errorf("altitude after second bounce = %v, want airborne", res.Y[1])
	}
}

func TestApexContinues(t *testing.T) {
	p := New(models.NewBallistic(), tableau.DormandPrince54())
	p.AddDetector(&models.Apex{})

	res, err := p.Propagate(context.Background(), 0, dynamo.State{0, 0, 10, 20}, 3, tightConfig(1e-9))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events = %d, want 1 apex", len(res.Events))
	}
	tApex := 20 / 9.81
	if math.Abs(res.Events[0].T-tApex) > 1e-7 {
		t.Errorf("apex at %v, want %v", res.Events[0].T, tApex)
	}
	if res.T != 3 {
		t.Errorf("final time = %v, want 3", res.T)
	}
}

func TestEarliestEventWins(t *testing.T) {
	timeCrossing := func(at float64) *events.FuncDetector {
		return &events.FuncDetector{
			GFunc:   func(tt float64, _ dynamo.State) float64 { return tt - at },
			TimeTol: 1e-10,
		}
	}
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddDetector(timeCrossing(0.6)) // index 0, fires later
	p.AddDetector(timeCrossing(0.4)) // index 1, fires first

	res, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 1, tightConfig(1e-8))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(res.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(res.Events))
	}
	if res.Events[0].Detector != 1 || math.Abs(res.Events[0].T-0.4) > 1e-9 {
		t.Errorf("first event %+v, want detector 1 at 0.4", res.Events[0])
	}
	if res.Events[1].Detector != 0 || math.Abs(res.Events[1].T-0.6) > 1e-9 {
		t.Errorf("second event %+v, want detector 0 at 0.6", res.Events[1])
	}
}

func TestEventNearSegmentStart(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddDetector(&events.FuncDetector{
		GFunc:   func(tt float64, _ dynamo.State) float64 { return tt - 2e-9 },
		TimeTol: 1e-9,
	})

	res, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 1, tightConfig(1e-8))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(res.Events) != 1 {
		t.Fatalf("events = %d, want 1 near the segment start", len(res.Events))
	}
	if math.Abs(res.Events[0].T-2e-9) > 1e-9 {
		t.Errorf("event time = %v, want 2e-9", res.Events[0].T)
	}
}

func TestSimultaneousTieBreaksByRegistration(t *testing.T) {
	halfway := func() *events.FuncDetector {
		return &events.FuncDetector{
			GFunc:   func(tt float64, _ dynamo.State) float64 { return tt - 0.5 },
			TimeTol: 1e-10,
			OnEvent: func(float64, dynamo.State, bool, bool) events.Action { return events.Stop },
		}
	}
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddDetector(halfway())
	p.AddDetector(halfway())

	res, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 1, tightConfig(1e-8))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if !res.Stopped || len(res.Events) != 1 {
		t.Fatalf("result %+v, want one stopping event", res)
	}
	if res.Events[0].Detector != 0 {
		t.Errorf("tie went to detector %d, want first-registered 0", res.Events[0].Detector)
	}
}

func TestStepTooSmall(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	cfg := tightConfig(1e-12)
	cfg.InitialStep = 0.5
	cfg.MinStep = 0.5

	res, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 5, cfg)
	if !errors.Is(err, dynamo.ErrStepTooSmall) {
		t.Fatalf("err = %v, want ErrStepTooSmall", err)
	}
	var pe *dynamo.PropagationError
	if !errors.As(err, &pe) {
		t.Fatal("fatal error is not a PropagationError")
	}
	if pe.State == nil || res == nil {
		t.Error("fatal error must carry the last valid time and state")
	}
}

func TestEvaluationBudget(t *testing.T) {
	p := New(models.NewHarmonic(1.0), tableau.DormandPrince54())
	cfg := tightConfig(1e-10)
	cfg.MaxEvaluations = 20

	_, err := p.Propagate(context.Background(), 0, dynamo.State{1, 0}, 10, cfg)
	if !errors.Is(err, dynamo.ErrMaxEvaluations) {
		t.Fatalf("err = %v, want ErrMaxEvaluations", err)
	}
}

func TestDimensionMismatch(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	_, err := p.Propagate(context.Background(), 0, dynamo.State{1, 2}, 1, dynamo.DefaultConfig())
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}

	cfg := dynamo.DefaultConfig()
	cfg.AbsTolVec = []float64{1e-9, 1e-9}
	_, err = p.Propagate(context.Background(), 0, dynamo.State{1}, 1, cfg)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch for tolerance vector", err)
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(models.NewHarmonic(1.0), tableau.DormandPrince54())
	_, err := p.Propagate(ctx, 0, dynamo.State{1, 0}, 100, tightConfig(1e-9))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestZeroSpanReturnsImmediately(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	res, err := p.Propagate(context.Background(), 2, dynamo.State{0.25}, 2, dynamo.DefaultConfig())
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if res.T != 2 || res.Y[0] != 0.25 || res.Stats.Steps != 0 {
		t.Errorf("zero-span result %+v changed the state", res)
	}
}

type lastFlagHandler struct {
	flags []bool
	ends  []float64
}

func (h *lastFlagHandler) HandleStep(step dynamo.DenseOutput, isLast bool) {
	h.flags = append(h.flags, isLast)
	h.ends = append(h.ends, step.T1())
}

func TestLastStepFlag(t *testing.T) {
	h := &lastFlagHandler{}
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddHandler(h)

	if _, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 3.7, tightConfig(1e-8)); err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(h.flags) == 0 {
		t.Fatal("handler never invoked")
	}
	for i, last := range h.flags[:len(h.flags)-1] {
		if last {
			t.Errorf("step %d flagged as last", i)
		}
	}
	if !h.flags[len(h.flags)-1] {
		t.Error("final step not flagged as last")
	}
	if got := h.ends[len(h.ends)-1]; math.Abs(got-3.7) > 1e-12 {
		t.Errorf("final step ends at %v, want 3.7", got)
	}
}

func TestRecorderSampling(t *testing.T) {
	rec := NewRecorder(0.25)
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddHandler(rec)

	if _, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 1, tightConfig(1e-9)); err != nil {
		t.Fatalf("propagate: %v", err)
	}
	want := []float64{0, 0.25, 0.5, 0.75, 1.0}
	if len(rec.Times) != len(want) {
		t.Fatalf("recorded %d samples %v, want %d", len(rec.Times), rec.Times, len(want))
	}
	for i, tw := range want {
		if math.Abs(rec.Times[i]-tw) > 1e-12 {
			t.Errorf("sample %d at %v, want %v", i, rec.Times[i], tw)
		}
		if math.Abs(rec.States[i][0]-math.Exp(-tw)) > 1e-7 {
			t.Errorf("sample %d value %v, want %v", i, rec.States[i][0], math.Exp(-tw))
		}
	}
}

func TestCompositeSegments(t *testing.T) {
	comp := dynamo.NewComposite(models.NewDecay(1.0))
	p := New(comp, tableau.DormandPrince54())
	cfg := tightConfig(1e-9)

	seg1, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 1, cfg)
	if err != nil {
		t.Fatalf("segment 1: %v", err)
	}

	if err := comp.AddBlock("fuel", models.NewMassFlow(0.1)); err != nil {
		t.Fatalf("add block: %v", err)
	}
	y := comp.Extend(seg1.Y, dynamo.State{1})
	seg2, err := p.Propagate(context.Background(), 1, y, 2, cfg)
	if err != nil {
		t.Fatalf("segment 2: %v", err)
	}
	off, err := comp.BlockOffset("fuel")
	if err != nil {
		t.Fatalf("block offset: %v", err)
	}
	if math.Abs(seg2.Y[off]-0.9) > 1e-9 {
		t.Errorf("fuel mass = %v, want 0.9", seg2.Y[off])
	}
	if math.Abs(seg2.Y[0]-math.Exp(-2)) > 1e-7 {
		t.Errorf("primary state = %v, want %v", seg2.Y[0], math.Exp(-2))
	}

	if err := comp.RemoveBlock("fuel"); err != nil {
		t.Fatalf("remove block: %v", err)
	}
	seg3, err := p.Propagate(context.Background(), 2, seg2.Y[:1], 3, cfg)
	if err != nil {
		t.Fatalf("segment 3: %v", err)
	}
	if math.Abs(seg3.Y[0]-math.Exp(-3)) > 1e-7 {
		t.Errorf("primary state = %v, want %v", seg3.Y[0], math.Exp(-3))
	}
}

func TestResetDerivativesContinues(t *testing.T) {
	p := New(models.NewDecay(1.0), tableau.DormandPrince54())
	p.AddDetector(&events.FuncDetector{
		GFunc:   func(_ float64, y dynamo.State) float64 { return y[0] - 0.5 },
		TimeTol: 1e-9,
		OnEvent: func(float64, dynamo.State, bool, bool) events.Action { return events.ResetDerivatives },
	})

	res, err := p.Propagate(context.Background(), 0, dynamo.State{1}, 5, tightConfig(1e-8))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(res.Events) != 1 || res.Events[0].Action != events.ResetDerivatives {
		t.Fatalf("events = %+v, want one ResetDerivatives", res.Events)
	}
	if math.Abs(res.Y[0]-math.Exp(-5)) > 1e-6 {
		t.Errorf("y(5) = %v, want %v", res.Y[0], math.Exp(-5))
	}
}
