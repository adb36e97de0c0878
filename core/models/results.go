package models

import (
	"encoding/json"
	"fmt"
)

// SimulationResults is a kind-tagged result payload. Exactly one of the
// per-kind fields is set, matching Kind.
type SimulationResults struct {
	Kind       SimulationKind     `json:"kind"`
	DropTest   *DropTestResults   `json:"drop_test,omitempty"`
	StressTest *StressTestResults `json:"stress_test,omitempty"`
	Motion     *MotionResults     `json:"motion,omitempty"`
	Fluid      *FluidResults      `json:"fluid,omitempty"`
}

// DropTestResults holds the metrics of a completed drop test
type DropTestResults struct {
	MaxImpactForce    float64   `json:"max_impact_force"`    // N
	SurvivalRate      float64   `json:"survival_rate"`       // 0-1
	CriticalDrop      int       `json:"critical_drop"`       // 1-based index of first failure, 0 if none
	ImpactForces      []float64 `json:"impact_forces"`       // per drop, N
	DeformationDepth  float64   `json:"deformation_depth"`   // mm
	RecommendedHeight float64   `json:"recommended_height"`  // m
}

// StressTestResults holds the metrics of a completed stress test
type StressTestResults struct {
	YieldForce      float64   `json:"yield_force"`      // N
	BreakingForce   float64   `json:"breaking_force"`   // N
	MaxDeformation  float64   `json:"max_deformation"`  // fraction of original height, 0-1
	StressCurve     []float64 `json:"stress_curve"`     // deformation per force step
	SafetyFactor    float64   `json:"safety_factor"`
	FailureLocation string    `json:"failure_location,omitempty"`
}

// MotionResults holds the metrics of a completed motion study
type MotionResults struct {
	PathLength     float64   `json:"path_length"`     // m
	MaxVelocity    float64   `json:"max_velocity"`    // m/s
	MaxAngle       float64   `json:"max_angle"`       // degrees
	AngleTimeline  []float64 `json:"angle_timeline"`  // sampled rotation angles, degrees
	CollisionCount int       `json:"collision_count"`
}

// FluidResults holds the metrics of a completed fluid simulation
type FluidResults struct {
	FillTime      float64   `json:"fill_time"`      // s
	LeakDetected  bool      `json:"leak_detected"`
	MaxPressure   float64   `json:"max_pressure"`   // Pa
	FillTimeline  []float64 `json:"fill_timeline"`  // fill fraction samples, 0-1
	TrappedAirVol float64   `json:"trapped_air_vol"` // ml
}

// Validate checks the tag/payload correspondence.
func (r *SimulationResults) Validate() error {
	if r == nil {
		return nil
	}
	set := 0
	var want SimulationKind
	if r.DropTest != nil {
		set++
		want = KindDropTest
	}
	if r.StressTest != nil {
		set++
		want = KindStressTest
	}
	if r.Motion != nil {
		set++
		want = KindMotion
	}
	if r.Fluid != nil {
		set++
		want = KindFluid
	}
	if set != 1 {
		return fmt.Errorf("results: expected exactly one payload, got %d", set)
	}
	if r.Kind != want {
		return fmt.Errorf("results: kind %q does not match payload %q", r.Kind, want)
	}
	return nil
}

// UnmarshalJSON decodes and validates the tagged payload in one step so a
// malformed engine response never reaches consumers.
func (r *SimulationResults) UnmarshalJSON(data []byte) error {
	type alias SimulationResults
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = SimulationResults(a)
	return r.Validate()
}
