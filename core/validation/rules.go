package validation

import "github.com/dronreef2/3dPot2-sub000/core/models"

// fieldRule defines the accepted range for one numeric parameter
type fieldRule struct {
	Field    string
	Required bool
	Min      float64
	Max      float64
	Integer  bool
	Unit     string
	Message  string
}

// enumRule defines an optional string parameter with a closed value set
type enumRule struct {
	Field   string
	Allowed []string
	Message string
}

// warnRule flags technically-legal values likely to degrade result quality
// or runtime. Suggested is the replacement value Suggest applies; it must be
// a fixed point of the rule (applying it again triggers no warning).
type warnRule struct {
	Field     string
	Check     func(params map[string]interface{}) bool
	Message   string
	Suggested func(params map[string]interface{}) float64
}

var kindRules = map[models.SimulationKind][]fieldRule{
	models.KindDropTest: {
		{Field: "drop_height", Required: true, Min: 0.1, Max: 10.0, Unit: "m",
			Message: "drop height must be between 0.1 and 10.0 meters"},
		{Field: "num_drops", Required: true, Min: 1, Max: 100, Integer: true,
			Message: "number of drops must be an integer between 1 and 100"},
		{Field: "gravity", Min: -20, Max: -0.5, Unit: "m/s^2",
			Message: "gravity must be between -20 and -0.5 m/s^2"},
	},
	models.KindStressTest: {
		{Field: "max_force", Required: true, Min: 1e-9, Max: 10000, Unit: "N",
			Message: "max force must be positive and at most 10000 N"},
		{Field: "force_increment", Required: true, Min: 1e-9, Max: 10000, Unit: "N",
			Message: "force increment must be positive and at most 10000 N"},
	},
	models.KindMotion: {
		{Field: "duration", Required: true, Min: 1e-9, Max: 300, Unit: "s",
			Message: "duration must be positive and at most 300 seconds"},
		{Field: "time_step", Required: true, Min: 1e-9, Max: 300, Unit: "s",
			Message: "time step must be positive and at most 300 seconds"},
	},
	models.KindFluid: {
		{Field: "viscosity", Required: true, Min: 1e-6, Max: 10, Unit: "Pa*s",
			Message: "viscosity must be between 1e-6 and 10 Pa*s"},
		{Field: "density", Required: true, Min: 1e-9, Max: 20000, Unit: "kg/m^3",
			Message: "density must be positive and at most 20000 kg/m^3"},
		{Field: "resolution", Min: 8, Max: 512, Integer: true,
			Message: "resolution must be an integer between 8 and 512"},
	},
}

var kindEnums = map[models.SimulationKind][]enumRule{
	models.KindDropTest: {
		{Field: "surface", Allowed: []string{"concrete", "wood", "carpet", "metal"},
			Message: "surface must be one of concrete, wood, carpet, metal"},
	},
}

var kindWarnings = map[models.SimulationKind][]warnRule{
	models.KindDropTest: {
		{
			Field: "num_drops",
			Check: func(p map[string]interface{}) bool {
				v, ok := numericParam(p, "num_drops")
				return ok && v > 20
			},
			Message:   "more than 20 drops significantly increases simulation time",
			Suggested: func(p map[string]interface{}) float64 { return 20 },
		},
	},
	models.KindStressTest: {
		{
			Field: "force_increment",
			Check: func(p map[string]interface{}) bool {
				maxF, ok1 := numericParam(p, "max_force")
				inc, ok2 := numericParam(p, "force_increment")
				return ok1 && ok2 && maxF > 0 && inc > maxF/10
			},
			Message: "force increment is large relative to max force, results will be coarse",
			Suggested: func(p map[string]interface{}) float64 {
				maxF, _ := numericParam(p, "max_force")
				return maxF / 10
			},
		},
	},
	models.KindMotion: {
		{
			Field: "time_step",
			Check: func(p map[string]interface{}) bool {
				dur, ok1 := numericParam(p, "duration")
				step, ok2 := numericParam(p, "time_step")
				return ok1 && ok2 && dur > 0 && step < dur/10000
			},
			Message: "time step is very fine relative to duration, runtime will be long",
			Suggested: func(p map[string]interface{}) float64 {
				dur, _ := numericParam(p, "duration")
				return dur / 1000
			},
		},
	},
	models.KindFluid: {
		{
			Field: "resolution",
			Check: func(p map[string]interface{}) bool {
				v, ok := numericParam(p, "resolution")
				return ok && v > 128
			},
			Message:   "resolution above 128 rarely improves results and is much slower",
			Suggested: func(p map[string]interface{}) float64 { return 128 },
		},
	},
}
