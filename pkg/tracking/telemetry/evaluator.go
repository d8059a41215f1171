package telemetry

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fleetline/fleetline/pkg/fleetdf"
	"github.com/fleetline/fleetline/pkg/util"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Rule pairs a boolean trigger expression with a string detail expression,
// both evaluated over the telemetry payload fields
type Rule struct {
	Kind   string `yaml:"kind"`
	Level  string `yaml:"level"`
	When   string `yaml:"when"`
	Detail string `yaml:"detail"`
}

var DefaultRules = []Rule{
	{
		Kind:   "low_fuel",
		Level:  fleetdf.AlarmLevelWarning,
		When:   "FuelPct != nil && FuelPct < 15.0",
		Detail: `"fuel level at " + string(FuelPct) + "%"`,
	},
	{
		Kind:   "overheat",
		Level:  fleetdf.AlarmLevelWarning,
		When:   "EngineTemperatureC != nil && EngineTemperatureC > 100.0",
		Detail: `"engine temperature at " + string(EngineTemperatureC) + "C"`,
	},
	{
		Kind:   "low_battery",
		Level:  fleetdf.AlarmLevelWarning,
		When:   "BatteryV != nil && BatteryV < 11.5",
		Detail: `"battery at " + string(BatteryV) + "V"`,
	},
	{
		Kind:   "dtc",
		Level:  fleetdf.AlarmLevelInfo,
		When:   "len(DiagnosticCodes) > 0",
		Detail: `"diagnostic codes: " + join(DiagnosticCodes, ", ")`,
	},
}

type compiledRule struct {
	kind   string
	level  string
	when   *vm.Program
	detail *vm.Program
}

// Evaluator is a stateless mapping from a telemetry payload to alarms
type Evaluator struct {
	rules []compiledRule
}

func NewEvaluator(rules []Rule) (*Evaluator, error) {
	evaluator := &Evaluator{}

	for _, rule := range rules {
		when, err := expr.Compile(rule.When, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("rule %s trigger: %w", rule.Kind, err)
		}

		detail, err := expr.Compile(rule.Detail)
		if err != nil {
			return nil, fmt.Errorf("rule %s detail: %w", rule.Kind, err)
		}

		evaluator.rules = append(evaluator.rules, compiledRule{
			kind:   rule.Kind,
			level:  rule.Level,
			when:   when,
			detail: detail,
		})
	}

	return evaluator, nil
}

// NewDefaultEvaluator loads rules from FLEETLINE_TELEMETRY_RULES when set,
// falling back to the built-in thresholds
func NewDefaultEvaluator() (*Evaluator, error) {
	rulesPath := os.Getenv("FLEETLINE_TELEMETRY_RULES")
	if rulesPath == "" {
		return NewEvaluator(DefaultRules)
	}

	rulesFile, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, err
	}

	var rules []Rule
	if err := yaml.Unmarshal(rulesFile, &rules); err != nil {
		return nil, err
	}

	return NewEvaluator(rules)
}

func (e *Evaluator) Evaluate(telemetry *fleetdf.Telemetry) []fleetdf.TelemetryAlarm {
	env := environment(telemetry)

	var alarms []fleetdf.TelemetryAlarm

	for _, rule := range e.rules {
		triggered, err := expr.Run(rule.when, env)
		if err != nil {
			log.Warn().Err(err).Str("rule", rule.kind).Msg("Telemetry rule evaluation failed")
			continue
		}

		if !triggered.(bool) {
			continue
		}

		detail := ""
		detailValue, err := expr.Run(rule.detail, env)
		if err == nil {
			detail, _ = detailValue.(string)
		}

		alarms = append(alarms, fleetdf.TelemetryAlarm{
			Kind:   rule.kind,
			Level:  rule.level,
			Detail: detail,
		})
	}

	return alarms
}

func environment(telemetry *fleetdf.Telemetry) map[string]any {
	// Devices repeat codes across reports within the same message
	diagnosticCodes := util.RemoveDuplicateStrings(telemetry.DiagnosticCodes, nil)
	if diagnosticCodes == nil {
		diagnosticCodes = []string{}
	}

	env := map[string]any{
		"EngineRpm":          nil,
		"EngineTemperatureC": nil,
		"FuelPct":            nil,
		"BatteryV":           nil,
		"TirePressure":       nil,
		"OilPressure":        nil,
		"Odometer":           nil,
		"DiagnosticCodes":    diagnosticCodes,
	}

	setIfPresent(env, "EngineRpm", telemetry.EngineRpm)
	setIfPresent(env, "EngineTemperatureC", telemetry.EngineTemperatureC)
	setIfPresent(env, "FuelPct", telemetry.FuelPct)
	setIfPresent(env, "BatteryV", telemetry.BatteryV)
	setIfPresent(env, "TirePressure", telemetry.TirePressure)
	setIfPresent(env, "OilPressure", telemetry.OilPressure)
	setIfPresent(env, "Odometer", telemetry.Odometer)

	return env
}

func setIfPresent(env map[string]any, name string, value *float64) {
	if value != nil {
		env[name] = *value
	}
}
