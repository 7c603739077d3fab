package breakeven

import (
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// OptimizationTarget defines what parameter to optimize
type OptimizationTarget string

const (
	OptimizeConversionAmount OptimizationTarget = "conversion_amount"
	OptimizeRetirementRate   OptimizationTarget = "retirement_rate"
	OptimizeRetirementAge    OptimizationTarget = "retirement_age"
	OptimizeAll              OptimizationTarget = "all"
)

// OptimizationGoal defines what outcome to achieve
type OptimizationGoal string

const (
	GoalMaximizeSavings   OptimizationGoal = "maximize_savings"    // Maximize lifetime conversion savings
	GoalEarliestBreakEven OptimizationGoal = "earliest_break_even" // Earliest age a conversion pays off
	GoalBreakEven         OptimizationGoal = "break_even"          // Savings equal to the target savings
	GoalMaximizeWealth    OptimizationGoal = "maximize_wealth"     // Maximize final after-tax value
	GoalMinimizeTaxes     OptimizationGoal = "minimize_taxes"      // Minimize lifetime taxes
)

// goalsByTarget lists the goals each target can pursue; the first is the default.
var goalsByTarget = map[OptimizationTarget][]OptimizationGoal{
	OptimizeConversionAmount: {GoalMaximizeSavings, GoalEarliestBreakEven},
	OptimizeRetirementRate:   {GoalBreakEven},
	OptimizeRetirementAge:    {GoalMaximizeWealth, GoalMinimizeTaxes},
}

// DefaultGoal returns the goal a target pursues when none is given.
func DefaultGoal(target OptimizationTarget) (OptimizationGoal, bool) {
	goals, ok := goalsByTarget[target]
	if !ok {
		return "", false
	}
	return goals[0], true
}

// Constraints define bounds for optimization parameters
type Constraints struct {
	// Conversion amount constraints; the maximum is also bounded by the
	// traditional balance
	MinConversion *money.Money `json:"min_conversion,omitempty"`
	MaxConversion *money.Money `json:"max_conversion,omitempty"`

	// Expected retirement tax rate constraints (as decimal, e.g., 0.22 for 22%)
	MinRetirementRate *decimal.Decimal `json:"min_retirement_rate,omitempty"`
	MaxRetirementRate *decimal.Decimal `json:"max_retirement_rate,omitempty"`

	// Retirement age constraints
	MinRetirementAge *int `json:"min_retirement_age,omitempty"`
	MaxRetirementAge *int `json:"max_retirement_age,omitempty"`

	// Savings target for the break_even goal; zero when nil
	TargetSavings *money.Money `json:"target_savings,omitempty"`
}

// DefaultConstraints returns sensible default constraints
func DefaultConstraints() Constraints {
	minRate := decimal.Zero
	maxRate := decimal.NewFromFloat(0.50)
	return Constraints{
		MinRetirementRate: &minRate,
		MaxRetirementRate: &maxRate,
	}
}

// OptimizationRequest defines the parameters for an optimization run
type OptimizationRequest struct {
	Household     *domain.Household  `json:"-"`
	Target        OptimizationTarget `json:"target"`
	Goal          OptimizationGoal   `json:"goal"`
	Constraints   Constraints        `json:"constraints"`
	MaxIterations int                `json:"max_iterations"` // Maximum solver iterations
	Tolerance     decimal.Decimal    `json:"tolerance"`      // Convergence tolerance in dollars
}

// OptimizationResult contains the results of an optimization run
type OptimizationResult struct {
	// Optimization metadata
	Request         OptimizationRequest `json:"request"`
	Success         bool                `json:"success"`
	Iterations      int                 `json:"iterations"`
	ConvergenceInfo string              `json:"convergence_info"`

	// Optimized parameters
	OptimalConversionAmount *money.Money     `json:"optimal_conversion_amount,omitempty"`
	OptimalRetirementRate   *decimal.Decimal `json:"optimal_retirement_rate,omitempty"`
	OptimalRetirementAge    *int             `json:"optimal_retirement_age,omitempty"`

	// Conversion results at optimal parameters
	Conversion         *domain.ConversionScenario `json:"conversion,omitempty"`
	LifetimeTaxSavings money.Money                `json:"lifetime_tax_savings"`
	BreakEvenAge       *int                       `json:"break_even_age"`

	// Projection results at optimal parameters
	FinalAfterTaxValue money.Money `json:"final_after_tax_value"`
	LifetimeTaxes      money.Money `json:"lifetime_taxes"`

	// Comparison to the household as configured
	AfterTaxDiffFromBase money.Money `json:"after_tax_diff_from_base"`
	TaxDiffFromBase      money.Money `json:"tax_diff_from_base"`
}

// MultiDimensionalResult contains results when optimizing multiple parameters
type MultiDimensionalResult struct {
	Results         []OptimizationResult `json:"results"`
	BestBySavings   *OptimizationResult  `json:"best_by_savings,omitempty"`
	BestByWealth    *OptimizationResult  `json:"best_by_wealth,omitempty"`
	BestByTaxes     *OptimizationResult  `json:"best_by_taxes,omitempty"`
	BreakEvenRate   *OptimizationResult  `json:"break_even_rate,omitempty"`
	Failures        []string             `json:"failures,omitempty"`
	Recommendations []string             `json:"recommendations"`
}

// SolverOptions configures the solver algorithm
type SolverOptions struct {
	GridResolution int             // For grid search: points per dimension
	Tolerance      decimal.Decimal // Convergence tolerance in dollars
	MaxIterations  int             // Maximum iterations
	Parallel       bool            // Evaluate grid points concurrently
}

// DefaultSolverOptions returns default solver configuration
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		GridResolution: 21,
		Tolerance:      decimal.NewFromInt(1000), // $1000 tolerance
		MaxIterations:  50,
		Parallel:       true,
	}
}

// Validate checks if constraints are internally consistent
func (c *Constraints) Validate() error {
	if c.MinConversion != nil && c.MinConversion.IsNegative() {
		return &BreakEvenError{
			Operation: "validate_constraints",
			Message:   "min_conversion cannot be negative",
		}
	}
	if c.MinConversion != nil && c.MaxConversion != nil && *c.MinConversion > *c.MaxConversion {
		return &BreakEvenError{
			Operation: "validate_constraints",
			Message:   "min_conversion cannot be greater than max_conversion",
		}
	}

	one := decimal.NewFromInt(1)
	for _, r := range []*decimal.Decimal{c.MinRetirementRate, c.MaxRetirementRate} {
		if r != nil && (r.IsNegative() || r.GreaterThan(one)) {
			return &BreakEvenError{
				Operation: "validate_constraints",
				Message:   "retirement rate must be between 0 and 1",
			}
		}
	}
	if c.MinRetirementRate != nil && c.MaxRetirementRate != nil && c.MinRetirementRate.GreaterThan(*c.MaxRetirementRate) {
		return &BreakEvenError{
			Operation: "validate_constraints",
			Message:   "min_retirement_rate cannot be greater than max_retirement_rate",
		}
	}

	if c.MinRetirementAge != nil && c.MaxRetirementAge != nil && *c.MinRetirementAge > *c.MaxRetirementAge {
		return &BreakEvenError{
			Operation: "validate_constraints",
			Message:   "min_retirement_age cannot be greater than max_retirement_age",
		}
	}

	return nil
}

// BreakEvenError represents errors from break-even solver
type BreakEvenError struct {
	Operation string
	Message   string
	Cause     error
}

func (e *BreakEvenError) Error() string {
	if e.Cause != nil {
		return e.Operation + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Operation + ": " + e.Message
}

func (e *BreakEvenError) Unwrap() error {
	return e.Cause
}
