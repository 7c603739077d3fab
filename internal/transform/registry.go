package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// TransformRegistry provides a central registry for all available transforms.
// It enables creation of transforms from string parameters, useful for CLI commands.
type TransformRegistry struct {
	factories map[string]TransformFactory
}

// TransformFactory is a function that creates a transform from parameters.
type TransformFactory func(params map[string]string) (HouseholdTransform, error)

// NewTransformRegistry creates a new registry with all built-in transforms registered.
func NewTransformRegistry() *TransformRegistry {
	registry := &TransformRegistry{
		factories: make(map[string]TransformFactory),
	}

	registry.Register("postpone_retirement", createPostponeRetirement)
	registry.Register("set_retirement_age", createSetRetirementAge)
	registry.Register("set_life_expectancy", createSetLifeExpectancy)
	registry.Register("set_contribution", createSetAnnualContribution)
	registry.Register("set_income", createSetIncome)
	registry.Register("set_retirement_income", createSetRetirementIncome)
	registry.Register("relocate", createRelocateState)
	registry.Register("set_return", createSetExpectedReturn)
	registry.Register("set_withdrawals", createSetWithdrawalStrategy)
	registry.Register("set_spending", createSetAnnualSpending)

	// Roth conversion transforms
	registry.Register("schedule_roth_conversion", createScheduleRothConversions)
	registry.Register("remove_roth_conversion", createRemoveRothConversions)
	registry.Register("set_roth_ladder", createSetRothLadder)

	return registry
}

// Register adds a transform factory to the registry.
func (r *TransformRegistry) Register(name string, factory TransformFactory) {
	r.factories[name] = factory
}

// Create creates a transform by name with the given parameters.
func (r *TransformRegistry) Create(name string, params map[string]string) (HouseholdTransform, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, fmt.Errorf("unknown transform: %s", name)
	}

	return factory(params)
}

// List returns the names of all registered transforms, sorted.
func (r *TransformRegistry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseTransformSpec parses a transform specification string.
// Format: "transform_name:param1=value1,param2=value2"
// Example: "postpone_retirement:years=2"
func (r *TransformRegistry) ParseTransformSpec(spec string) (HouseholdTransform, error) {
	name, paramsStr, _ := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	paramsStr = strings.TrimSpace(paramsStr)

	params := make(map[string]string)
	if paramsStr != "" {
		for _, paramPair := range strings.Split(paramsStr, ",") {
			k, v, ok := strings.Cut(paramPair, "=")
			if !ok {
				return nil, fmt.Errorf("invalid parameter format, expected 'key=value', got: %s", paramPair)
			}
			params[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	return r.Create(name, params)
}

// Parameter helpers

func intParam(transform string, params map[string]string, key string) (int, error) {
	s, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s requires '%s' parameter", transform, key)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return n, nil
}

func moneyParam(transform string, params map[string]string, key string) (money.Money, error) {
	s, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%s requires '%s' parameter", transform, key)
	}
	m, err := money.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return m, nil
}

func rateParam(transform string, params map[string]string, key string) (decimal.Decimal, error) {
	s, ok := params[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s requires '%s' parameter", transform, key)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return d, nil
}

// Factory functions for each transform

func createPostponeRetirement(params map[string]string) (HouseholdTransform, error) {
	years, err := intParam("postpone_retirement", params, "years")
	if err != nil {
		return nil, err
	}
	return &PostponeRetirement{Years: years}, nil
}

func createSetRetirementAge(params map[string]string) (HouseholdTransform, error) {
	age, err := intParam("set_retirement_age", params, "age")
	if err != nil {
		return nil, err
	}
	return &SetRetirementAge{Age: age}, nil
}

func createSetLifeExpectancy(params map[string]string) (HouseholdTransform, error) {
	age, err := intParam("set_life_expectancy", params, "age")
	if err != nil {
		return nil, err
	}
	return &SetLifeExpectancy{Age: age}, nil
}

func createSetAnnualContribution(params map[string]string) (HouseholdTransform, error) {
	amount, err := moneyParam("set_contribution", params, "amount")
	if err != nil {
		return nil, err
	}
	return &SetAnnualContribution{Amount: amount}, nil
}

func createSetIncome(params map[string]string) (HouseholdTransform, error) {
	amount, err := moneyParam("set_income", params, "amount")
	if err != nil {
		return nil, err
	}
	return &SetIncome{Amount: amount}, nil
}

func createSetRetirementIncome(params map[string]string) (HouseholdTransform, error) {
	amount, err := moneyParam("set_retirement_income", params, "amount")
	if err != nil {
		return nil, err
	}
	return &SetRetirementIncome{Amount: amount}, nil
}

func createRelocateState(params map[string]string) (HouseholdTransform, error) {
	state, ok := params["state"]
	if !ok {
		return nil, fmt.Errorf("relocate requires 'state' parameter")
	}
	return &RelocateState{State: strings.ToUpper(state)}, nil
}

func createSetExpectedReturn(params map[string]string) (HouseholdTransform, error) {
	rate, err := rateParam("set_return", params, "rate")
	if err != nil {
		return nil, err
	}
	return &SetExpectedReturn{Rate: rate}, nil
}

func createSetWithdrawalStrategy(params map[string]string) (HouseholdTransform, error) {
	strategy, ok := params["strategy"]
	if !ok {
		return nil, fmt.Errorf("set_withdrawals requires 'strategy' parameter")
	}
	t := &SetWithdrawalStrategy{Strategy: strategy}
	if _, ok := params["bracket"]; ok {
		rate, err := rateParam("set_withdrawals", params, "bracket")
		if err != nil {
			return nil, err
		}
		t.TargetBracketRate = &rate
	}
	return t, nil
}

func createSetAnnualSpending(params map[string]string) (HouseholdTransform, error) {
	amount, err := moneyParam("set_spending", params, "amount")
	if err != nil {
		return nil, err
	}
	return &SetAnnualSpending{Amount: amount}, nil
}

func createScheduleRothConversions(params map[string]string) (HouseholdTransform, error) {
	amount, err := moneyParam("schedule_roth_conversion", params, "amount")
	if err != nil {
		return nil, err
	}
	t := &ScheduleRothConversions{
		FromAccount: params["from"],
		ToAccount:   params["to"],
		Amount:      amount,
		StartYear:   1,
		Years:       1,
	}
	if _, ok := params["start"]; ok {
		if t.StartYear, err = intParam("schedule_roth_conversion", params, "start"); err != nil {
			return nil, err
		}
	}
	if _, ok := params["years"]; ok {
		if t.Years, err = intParam("schedule_roth_conversion", params, "years"); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func createRemoveRothConversions(map[string]string) (HouseholdTransform, error) {
	return &RemoveRothConversions{}, nil
}

func createSetRothLadder(params map[string]string) (HouseholdTransform, error) {
	years, err := intParam("set_roth_ladder", params, "years")
	if err != nil {
		return nil, err
	}
	t := &SetRothLadder{Years: years}
	if _, ok := params["cap"]; ok {
		c, err := moneyParam("set_roth_ladder", params, "cap")
		if err != nil {
			return nil, err
		}
		t.Cap = &c
	}
	return t, nil
}
