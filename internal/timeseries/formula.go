package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"dashboard-query-service/internal/model"
)

const (
	errNoValidBuckets            = "Formula produced no valid buckets"
	errNoValidBucketsDivByZero   = "Formula produced no valid buckets due to division by zero"
	missingOperandsWarningFormat = "Skipped %d bucket(s) with missing values for formula operands"
	divisionByZeroWarningFormat  = "Skipped bucket %s: division by zero"
)

// BuildFormulaResults evaluates every formula over the query results. Each
// formula yields its own result; a broken formula never affects the others.
func BuildFormulaResults(formulas []model.FormulaDraft, queryResults []model.QueryRunResult) []model.QueryRunResult {
	byName := make(map[string]model.QueryRunResult, len(queryResults))
	for _, result := range queryResults {
		if _, ok := byName[result.QueryName]; !ok {
			byName[result.QueryName] = result
		}
	}

	results := make([]model.QueryRunResult, 0, len(formulas))
	for _, formula := range formulas {
		results = append(results, evaluateFormula(formula, byName))
	}
	return results
}

// FormulaLegend is the series key a formula writes its values under.
func FormulaLegend(formula model.FormulaDraft) string {
	if strings.TrimSpace(formula.Legend) != "" {
		return formula.Legend
	}
	if formula.Name != "" {
		return formula.Name
	}
	return formula.ID
}

func evaluateFormula(formula model.FormulaDraft, byName map[string]model.QueryRunResult) model.QueryRunResult {
	result := model.QueryRunResult{
		QueryID:   formula.ID,
		QueryName: formula.Name,
		Source:    model.SourceFormula,
		Status:    model.StatusSuccess,
		Warnings:  []string{},
		Data:      []model.BucketRow{},
	}
	fail := func(msg string) model.QueryRunResult {
		result.Status = model.StatusError
		result.Error = model.StringPtr(msg)
		result.Data = []model.BucketRow{}
		return result
	}

	if strings.TrimSpace(formula.Expression) == "" {
		return fail("Formula expression is empty")
	}
	expr, refs, err := parseExpression(formula.Expression)
	if err != nil {
		return fail(fmt.Sprintf("Invalid formula expression: %v", err))
	}

	operands := make(map[string]map[string]float64, len(refs))
	bucketSet := map[string]struct{}{}
	for _, ref := range refs {
		query, ok := byName[ref]
		if !ok {
			return fail(fmt.Sprintf("Formula references unknown query %q", ref))
		}
		values := map[string]float64{}
		for _, row := range query.Data {
			key := ToISOBucket(row.Bucket)
			bucketSet[key] = struct{}{}
			switch len(row.Series) {
			case 0:
			case 1:
				for _, v := range row.Series {
					values[key] = v
				}
			default:
				return fail(fmt.Sprintf("Formula operand %q must reference a query without group by", ref))
			}
		}
		operands[ref] = values
	}

	buckets := make([]string, 0, len(bucketSet))
	for b := range bucketSet {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)

	legend := FormulaLegend(formula)
	missing, divByZero := 0, 0
	env := make(map[string]float64, len(refs))
	for _, bucket := range buckets {
		complete := true
		for _, ref := range refs {
			v, ok := operands[ref][bucket]
			if !ok {
				complete = false
				break
			}
			env[ref] = v
		}
		if !complete {
			missing++
			continue
		}

		value, err := expr.eval(env)
		if errors.Is(err, errDivisionByZero) {
			divByZero++
			result.Warnings = append(result.Warnings, fmt.Sprintf(divisionByZeroWarningFormat, bucket))
			continue
		}
		if err != nil {
			return fail(fmt.Sprintf("Formula evaluation failed: %v", err))
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Skipped bucket %s: non-finite value", bucket))
			continue
		}
		result.Data = append(result.Data, model.BucketRow{
			Bucket: bucket,
			Series: map[string]float64{legend: value},
		})
	}

	if missing > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(missingOperandsWarningFormat, missing))
	}

	if len(result.Data) > 0 {
		return result
	}
	if divByZero == 0 {
		return fail(errNoValidBuckets)
	}
	return fail(errNoValidBucketsDivByZero)
}
