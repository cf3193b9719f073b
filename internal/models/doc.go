// Package models provides example right-hand sides for the propagation
// engine: analytically solvable test problems and small flight-dynamics
// systems with their usual event detectors. The engine itself treats all
// of them as opaque derivative suppliers.
package models
