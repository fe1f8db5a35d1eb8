package join

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/casbin/govaluate"

	"pmcperf/internal/table"
)

// DerivedMetric is a column computed from other columns of the joined table, e.g.,
// Duration=[EndNs]-[BeginNs]. Column names that are not valid identifiers must be bracketed.
type DerivedMetric struct {
	Name       string
	Expression string
	evaluable  *govaluate.EvaluableExpression
}

// ParseDerivedMetric parses a NAME=EXPRESSION definition
func ParseDerivedMetric(definition string) (DerivedMetric, error) {
	name, expression, found := strings.Cut(definition, "=")
	name = strings.TrimSpace(name)
	expression = strings.TrimSpace(expression)
	if !found || name == "" || expression == "" {
		return DerivedMetric{}, fmt.Errorf("metric definition must be NAME=EXPRESSION, got %q", definition)
	}
	evaluable, err := govaluate.NewEvaluableExpressionWithFunctions(expression, evaluatorFunctions())
	if err != nil {
		return DerivedMetric{}, fmt.Errorf("invalid expression for metric %s: %w", name, err)
	}
	return DerivedMetric{Name: name, Expression: expression, evaluable: evaluable}, nil
}

// Apply appends the metric as a new column. Rows where a referenced cell is not numeric, or
// the expression does not produce a finite number, get an empty cell.
func (m DerivedMetric) Apply(t *table.Table) error {
	if m.evaluable == nil {
		return fmt.Errorf("metric %s was not parsed", m.Name)
	}
	variables := m.evaluable.Vars()
	fields := make([]table.Field, len(variables))
	for i, v := range variables {
		f, err := t.GetField(v)
		if err != nil {
			return fmt.Errorf("metric %s references unknown column: %w", m.Name, err)
		}
		fields[i] = f
	}
	values := make([]string, t.NumRows())
	parameters := make(map[string]any, len(variables))
	for row := range values {
		numeric := true
		for i, v := range variables {
			val, ok := table.ParseFloat(fields[i].Values[row])
			if !ok {
				numeric = false
				break
			}
			parameters[v] = val
		}
		if !numeric {
			continue
		}
		result, err := m.evaluable.Evaluate(parameters)
		if err != nil {
			slog.Debug("failed to evaluate metric", slog.String("metric", m.Name), slog.Int("row", row), slog.String("error", err.Error()))
			continue
		}
		if f, ok := result.(float64); ok && !math.IsInf(f, 0) {
			values[row] = table.FormatFloat(f)
		}
	}
	return t.AddField(m.Name, values)
}

// evaluatorFunctions defines functions that can be called in metric expressions
func evaluatorFunctions() (functions map[string]govaluate.ExpressionFunction) {
	functions = make(map[string]govaluate.ExpressionFunction)
	functions["max"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("max expects 2 arguments, got %d", len(args))
		}
		l, lok := args[0].(float64)
		r, rok := args[1].(float64)
		if !lok || !rok {
			return nil, fmt.Errorf("max expects numeric arguments")
		}
		return max(l, r), nil
	}
	functions["min"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("min expects 2 arguments, got %d", len(args))
		}
		l, lok := args[0].(float64)
		r, rok := args[1].(float64)
		if !lok || !rok {
			return nil, fmt.Errorf("min expects numeric arguments")
		}
		return min(l, r), nil
	}
	return
}
