package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// StringParam returns a required string parameter.
func (t *TaskConfig) StringParam(name string) (string, error) {
	v, ok := t.Params[name]
	if !ok {
		return "", fmt.Errorf("missing required parameter '%s'", name)
	}
	if v.Type() != cty.String || v.IsNull() {
		return "", fmt.Errorf("parameter '%s' must be a string", name)
	}
	return v.AsString(), nil
}

// StringParamDefault returns a string parameter, or def when absent.
func (t *TaskConfig) StringParamDefault(name, def string) (string, error) {
	if _, ok := t.Params[name]; !ok {
		return def, nil
	}
	return t.StringParam(name)
}

// NumberParamDefault returns a numeric parameter as float64, or def when absent.
func (t *TaskConfig) NumberParamDefault(name string, def float64) (float64, error) {
	v, ok := t.Params[name]
	if !ok {
		return def, nil
	}
	if !v.Type().Equals(cty.Number) || v.IsNull() {
		return 0, fmt.Errorf("parameter '%s' must be a number", name)
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}
