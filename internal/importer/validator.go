package importer

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/hirepurchase/hpadmin/internal/sheets"
)

var validate = validator.New()

// validationOrder is the order in which sheets are checked and reported.
var validationOrder = []string{
	sheets.Branches,
	sheets.Customers,
	sheets.Installments,
	sheets.Payments,
	sheets.Checkers,
	sheets.Products,
	sheets.Collections,
}

// requiredSheets must contain at least one data row.
var requiredSheets = []string{sheets.Installments, sheets.Customers}

// Validate applies the business rules to every row of the batch and returns
// all violations. It never stops at the first problem.
func Validate(batch Batch) ValidationErrors {
	var errs ValidationErrors
	for _, name := range requiredSheets {
		if len(batch.Records(name)) == 0 {
			errs = append(errs, fmt.Sprintf("%s sheet must contain at least one row", name))
		}
	}
	for _, name := range validationOrder {
		errs = append(errs, validateSheet(sheets.MustLookup(name), batch.Records(name))...)
	}
	return errs
}

func validateSheet(def sheets.Sheet, records []Record) []string {
	var errs []string
	seen := make(map[string]map[string]int)
	for _, col := range def.Columns {
		if col.Unique {
			seen[col.Name] = make(map[string]int)
		}
	}
	for _, rec := range records {
		for _, col := range def.Columns {
			value := rec.Get(col.Name)
			if value == "" {
				if col.Required {
					errs = append(errs, fmt.Sprintf("%s row %d: %s is required", def.Name, rec.Row, col.Name))
				}
				continue
			}
			if msg := checkValue(col, value); msg != "" {
				errs = append(errs, fmt.Sprintf("%s row %d: %s", def.Name, rec.Row, msg))
				continue
			}
			if !col.Unique {
				continue
			}
			if first, dup := seen[col.Name][value]; dup {
				errs = append(errs, fmt.Sprintf("%s row %d: %s %q duplicates row %d", def.Name, rec.Row, col.Name, value, first))
				continue
			}
			seen[col.Name][value] = rec.Row
		}
	}
	return errs
}

// checkValue returns a message for a non-empty value that breaks its column
// rule, or "".
func checkValue(col sheets.Column, value string) string {
	switch col.Kind {
	case sheets.KindNumber:
		d, err := parseNumber(value)
		if err != nil {
			return fmt.Sprintf("%s must be a number", col.Name)
		}
		if d.IsNegative() {
			return fmt.Sprintf("%s must not be negative", col.Name)
		}
	case sheets.KindInteger:
		d, err := parseNumber(value)
		if err != nil || !d.IsInteger() || d.IsNegative() {
			return fmt.Sprintf("%s must be a whole number", col.Name)
		}
	case sheets.KindDate:
		if !datePattern.MatchString(value) || validate.Var(value, "datetime="+sheets.DateLayout) != nil {
			return fmt.Sprintf("%s must be a valid YYYY-MM-DD date", col.Name)
		}
	case sheets.KindEmail:
		if validate.Var(value, "email") != nil {
			return fmt.Sprintf("%s must be a valid email address", col.Name)
		}
	case sheets.KindEnum:
		if validate.Var(value, "oneof="+strings.Join(col.Options, " ")) != nil {
			return fmt.Sprintf("%s must be one of %s", col.Name, strings.Join(col.Options, ", "))
		}
	}
	if col.Length > 0 && validate.Var(value, fmt.Sprintf("len=%d", col.Length)) != nil {
		return fmt.Sprintf("%s must be exactly %d characters", col.Name, col.Length)
	}
	return ""
}

// parseNumber accepts plain decimals with optional thousands separators.
func parseNumber(value string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
}
