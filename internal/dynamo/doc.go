// Package dynamo provides the core vocabulary for adaptive ODE propagation.
//
// The package defines the fundamental interfaces and types shared by the
// propagation engine:
//
//   - [State]: vector being integrated forward or backward in time
//   - [Equations]: right-hand side of the ODE (dy/dt = f(t, y))
//   - [DenseOutput]: continuous reconstruction of one accepted step
//   - [StepHandler]: passive observer invoked once per accepted step
//   - [Config]: tolerance and step-size bounds for one propagation
//
// # Example
//
//	eqs := models.NewDecay(1.0)
//	p := prop.New(eqs, tableau.DormandPrince54())
//	res, _ := p.Propagate(ctx, 0, dynamo.State{1}, 5, dynamo.DefaultConfig())
//
// # Thread Safety
//
// A propagation owns its state vector and per-detector sign history for the
// duration of one Propagate call. Propagator instances are NOT thread-safe;
// concurrent propagations need separate instances.
package dynamo
