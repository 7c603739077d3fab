package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/internal/output"
	"github.com/rgehrsitz/rptax/pkg/money"
)

const maxBodyBytes = 1 << 20

// TaxRequest computes either the federal tax on a taxable income or the full
// household tax of a year of income. TaxableIncome takes precedence.
type TaxRequest struct {
	TaxYear          int                   `json:"taxYear"`
	FilingStatus     domain.FilingStatus   `json:"filingStatus,omitempty"`
	TaxableIncome    *money.Money          `json:"taxableIncome,omitempty"`
	Facts            *domain.PersonalFacts `json:"facts,omitempty"`
	Age              *int                  `json:"age,omitempty"`
	Wages            *money.Money          `json:"wages,omitempty"`
	RetirementIncome *money.Money          `json:"retirementIncome,omitempty"`
}

// LimitsRequest resolves the limits of every account, or of one account type
// when no accounts are given.
type LimitsRequest struct {
	TaxYear     int                  `json:"taxYear"`
	Facts       domain.PersonalFacts `json:"facts"`
	Accounts    []domain.Account     `json:"accounts,omitempty"`
	AccountType domain.AccountType   `json:"accountType,omitempty"`
}

// CompareTaxRequest computes federal tax on several taxable incomes.
type CompareTaxRequest struct {
	TaxYear      int                 `json:"taxYear"`
	FilingStatus domain.FilingStatus `json:"filingStatus"`
	Incomes      []money.Money       `json:"incomes"`
}

// TaxComparison is one row of a /v1/compare/tax response.
type TaxComparison struct {
	TaxableIncome money.Money      `json:"taxableIncome"`
	Result        domain.TaxResult `json:"result"`
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, NewBadRequestError("invalid request body", err).WithDetail("cause", err.Error())
	}
	return v, nil
}

// decodeHousehold reads and validates a household document.
func (s *Server) decodeHousehold(w http.ResponseWriter, r *http.Request) (*domain.Household, error) {
	h, err := decode[domain.Household](w, r)
	if err != nil {
		return nil, err
	}
	if err := s.parser.ValidateHousehold(&h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		s.logger.Sugar().Errorw("request failed", "requestId", RequestIDFrom(r.Context()), "error", err)
	}
	writeError(w, r, appErr)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleTaxYears(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, r, map[string]any{
		"taxYears": s.engine.Tables.Years(),
		"version":  s.engine.Tables.Metadata.Version,
	})
}

func (s *Server) handleTax(w http.ResponseWriter, r *http.Request) {
	req, err := decode[TaxRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch {
	case req.TaxableIncome != nil:
		result, err := s.engine.ComputeTax(req.TaxYear, req.FilingStatus, *req.TaxableIncome)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeSuccess(w, r, result)
	case req.Facts != nil:
		facts := *req.Facts
		age := facts.CurrentAge
		if req.Age != nil {
			age = *req.Age
		}
		wages, retirementIncome := facts.IncomeAt(age)
		if req.Wages != nil {
			wages = *req.Wages
		}
		if req.RetirementIncome != nil {
			retirementIncome = *req.RetirementIncome
		}
		result, err := s.engine.HouseholdTax(req.TaxYear, facts, age, wages, retirementIncome)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeSuccess(w, r, result)
	default:
		s.fail(w, r, domain.InvalidInput("taxableIncome", nil, "taxableIncome or facts is required"))
	}
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	req, err := decode[LimitsRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if len(req.Accounts) == 0 {
		if req.AccountType == "" {
			s.fail(w, r, domain.InvalidInput("accounts", nil, "accounts or accountType is required"))
			return
		}
		limits, err := s.engine.ResolveLimits(req.AccountType, req.Facts, req.TaxYear)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeSuccess(w, r, limits)
		return
	}

	limits, err := s.engine.ResolveAll(req.Accounts, req.Facts, req.TaxYear)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, r, limits)
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	h, err := s.decodeHousehold(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.engine.Allocate(h.AllocationRequest())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, r, result)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	h, err := s.decodeHousehold(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	projection, err := s.engine.Project(h.ProjectionRequest())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, r, map[string]any{
		"years": projection.Collect(),
		"final": projection.Final(),
	})
}

func (s *Server) handleRoth(w http.ResponseWriter, r *http.Request) {
	h, err := s.decodeHousehold(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := h.RothRequest()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	scenario, err := s.engine.AnalyzeRoth(req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, r, scenario)
}

func (s *Server) handleAssetLocation(w http.ResponseWriter, r *http.Request) {
	h, err := s.decodeHousehold(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recs, err := s.engine.OptimizeLocation(h.LocationRequest())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, r, output.NewLocationReport(recs))
}

func (s *Server) handleCompareTax(w http.ResponseWriter, r *http.Request) {
	req, err := decode[CompareTaxRequest](w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Incomes) == 0 {
		s.fail(w, r, domain.InvalidInput("incomes", nil, "at least one income is required"))
		return
	}

	results, err := s.engine.CompareTaxScenarios(r.Context(), req.TaxYear, req.FilingStatus, req.Incomes)
	if err != nil {
		s.fail(w, r, fmt.Errorf("compare tax: %w", err))
		return
	}
	rows := make([]TaxComparison, len(results))
	for i, res := range results {
		rows[i] = TaxComparison{TaxableIncome: req.Incomes[i], Result: res}
	}
	writeSuccess(w, r, rows)
}
