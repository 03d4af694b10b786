package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/domain"
)

// GermanTarget is the label column of the curated German credit data.
const GermanTarget = "CreditRisk"

// GermanColumns are the attributes of the UCI German credit file, in
// file order.
var GermanColumns = []string{
	"Status", "Duration", "CreditHistory", "Purpose", "CreditAmount",
	"Savings", "Employment", "InstallmentRate", "SexAndStatus",
	"OtherDebtors", "ResidenceSince", "Property", "Age",
	"OtherInstallmentPlans", "Housing", "ExistingCredits",
	"Job", "PeopleLiable", "Telephone", "ForeignWorker", GermanTarget,
}

// germanCodes decodes the qualitative attributes by column.
var germanCodes = map[string]map[string]string{
	"Status": {
		"A11": "< 0 DM",
		"A12": "0 <= balance < 200 DM",
		"A13": ">= 200 DM",
		"A14": "no checking account",
	},
	"CreditHistory": {
		"A30": "no credits taken",
		"A31": "all credits paid back duly",
		"A32": "existing credits paid duly till now",
		"A33": "delay in paying off in the past",
		"A34": "critical account/other credits existing",
	},
	"Purpose": {
		"A40":  "car (new)",
		"A41":  "car (used)",
		"A42":  "furniture/equipment",
		"A43":  "radio/TV",
		"A44":  "domestic appliances",
		"A45":  "repairs",
		"A46":  "education",
		"A47":  "vacation",
		"A48":  "retraining",
		"A49":  "business",
		"A410": "others",
	},
	"Savings": {
		"A61": "< 100 DM",
		"A62": "100 <= ... < 500 DM",
		"A63": "500 <= ... < 1000 DM",
		"A64": ">= 1000 DM",
		"A65": "unknown/none",
	},
	"Employment": {
		"A71": "unemployed",
		"A72": "< 1 year",
		"A73": "1 <= ... < 4 years",
		"A74": "4 <= ... < 7 years",
		"A75": ">= 7 years",
	},
	"SexAndStatus": {
		"A91": "male : divorced/separated",
		"A92": "female : divorced/separated/married",
		"A93": "male : single",
		"A94": "male : married/widowed",
		"A95": "female : single",
	},
	"OtherDebtors": {
		"A101": "none",
		"A102": "co-applicant",
		"A103": "guarantor",
	},
	"Property": {
		"A121": "real estate",
		"A122": "building society savings/life insurance",
		"A123": "car or other",
		"A124": "unknown/none",
	},
	"OtherInstallmentPlans": {
		"A141": "bank",
		"A142": "stores",
		"A143": "none",
	},
	"Housing": {
		"A151": "rent",
		"A152": "own",
		"A153": "for free",
	},
	"Job": {
		"A171": "unemployed/unskilled - non-resident",
		"A172": "unskilled - resident",
		"A173": "skilled employee/official",
		"A174": "management/self-employed/highly qualified",
	},
	"Telephone": {
		"A191": "none",
		"A192": "yes, registered under customer's name",
	},
	"ForeignWorker": {
		"A201": "yes",
		"A202": "no",
	},
}

// CurateGerman converts the whitespace-separated UCI german.data file
// into a labelled dataset with decoded categories. The target is recoded
// from 1 (good) / 2 (bad) to 0 / 1. Codes outside the documented set
// become missing values.
func CurateGerman(r io.Reader) (*domain.Dataset, error) {
	ds := &domain.Dataset{Columns: GermanColumns, Target: GermanTarget}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(GermanColumns) {
			return nil, fmt.Errorf("german: line %d has %d fields, expected %d", line, len(fields), len(GermanColumns))
		}

		row := make([]string, len(fields))
		for i, col := range GermanColumns {
			v := fields[i]
			switch {
			case col == GermanTarget:
				switch v {
				case "1":
					row[i] = "0"
				case "2":
					row[i] = "1"
				default:
					return nil, fmt.Errorf("german: line %d: invalid risk class %q", line, v)
				}
			case germanCodes[col] != nil:
				row[i] = germanCodes[col][v]
			default:
				row[i] = v
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("german: read: %w", err)
	}
	if len(ds.Rows) == 0 {
		return nil, fmt.Errorf("german: no records")
	}
	return ds, nil
}

// GermanFeatureGroups is the feature configuration for curated German
// credit data.
func GermanFeatureGroups() domain.FeatureGroups {
	return domain.FeatureGroups{
		Numeric: []string{"Duration", "CreditAmount", "Age"},
		Categorical: []string{
			"Status", "CreditHistory", "Savings", "Employment", "SexAndStatus",
			"OtherDebtors", "Property", "OtherInstallmentPlans", "Housing",
			"Job", "Telephone", "ForeignWorker",
		},
		HighCardinality: []string{"Purpose"},
		Passthrough:     []string{"InstallmentRate", "ResidenceSince", "ExistingCredits", "PeopleLiable"},
	}
}
