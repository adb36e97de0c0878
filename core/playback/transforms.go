package playback

import (
	"math"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// transformAt derives the pose for timeline position t in [0, 1].
func transformAt(kind models.SimulationKind, params map[string]interface{}, results *models.SimulationResults, t float64) Transform {
	out := Transform{ScaleY: 1}
	if results == nil {
		return out
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	switch kind {
	case models.KindDropTest:
		out.OffsetY = dropOffset(params, t)
	case models.KindStressTest:
		if results.StressTest != nil {
			// Compress linearly toward the measured maximum deformation.
			out.ScaleY = 1 - t*results.StressTest.MaxDeformation
		}
	case models.KindMotion:
		if results.Motion != nil {
			if len(results.Motion.AngleTimeline) > 1 {
				out.RotationDeg = sampleTimeline(results.Motion.AngleTimeline, t)
			} else {
				out.RotationDeg = t * results.Motion.MaxAngle
			}
		}
	case models.KindFluid:
		if results.Fluid != nil {
			if len(results.Fluid.FillTimeline) > 1 {
				out.FillFraction = sampleTimeline(results.Fluid.FillTimeline, t)
			} else {
				out.FillFraction = t
			}
		}
	}
	return out
}

// dropOffset interpolates the vertical offset of a dropped object: a fall
// from the configured height to zero, followed by bounces whose amplitude
// halves each time.
func dropOffset(params map[string]interface{}, t float64) float64 {
	height := 1.0
	if params != nil {
		if h, ok := params["drop_height"].(float64); ok && h > 0 {
			height = h
		}
	}

	const fallPhase = 0.4 // fraction of the timeline spent on the initial fall
	if t < fallPhase {
		return height * (1 - t/fallPhase)
	}

	// Remaining timeline: three damped bounces.
	bt := (t - fallPhase) / (1 - fallPhase) // 0-1 across the bounce phase
	const bounces = 3
	phase := bt * bounces
	i := math.Floor(phase)
	if i >= bounces {
		return 0
	}
	amplitude := height * 0.5 / math.Pow(2, i)
	// Each bounce is a parabolic arc up and back down.
	local := phase - i
	return amplitude * 4 * local * (1 - local)
}

// sampleTimeline linearly interpolates a sampled series at t in [0, 1].
func sampleTimeline(values []float64, t float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}
	pos := t * float64(len(values)-1)
	i := int(math.Floor(pos))
	if i >= len(values)-1 {
		return values[len(values)-1]
	}
	frac := pos - float64(i)
	return values[i] + (values[i+1]-values[i])*frac
}
