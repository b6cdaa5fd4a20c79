package source

import (
	"sort"
	"strings"

	"github.com/macroscope-data/macroscope/internal/model"
)

// countryInfo maps an ISO3 code to the identifiers each upstream API uses
type countryInfo struct {
	Name string
	FRED string
	WB   string
	OECD string
}

// Target countries: USA, India, European Union, China. The OECD publishes
// Euro Area aggregates under EA20 rather than EUU.
var countries = map[string]countryInfo{
	"USA": {Name: "United States", FRED: "USA", WB: "USA", OECD: "USA"},
	"IND": {Name: "India", FRED: "IND", WB: "IND", OECD: "IND"},
	"EUU": {Name: "European Union", FRED: "EUU", WB: "EUU", OECD: "EA20"},
	"CHN": {Name: "China", FRED: "CHN", WB: "CHN", OECD: "CHN"},
}

// CountryName returns the display name for an ISO3 code
func CountryName(code string) string {
	if info, ok := countries[code]; ok {
		return info.Name
	}
	return code
}

// KnownCountry reports whether the ISO3 code is in the supported set
func KnownCountry(code string) bool {
	_, ok := countries[code]
	return ok
}

// CountryCodes returns the supported ISO3 codes in sorted order
func CountryCodes() []string {
	codes := make([]string, 0, len(countries))
	for code := range countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// fredSeries holds per-country FRED series IDs plus a template fallback
type fredSeries struct {
	byCountry map[string]string
	template  string // "{country}" placeholder
}

var fredMappings = map[model.Metric]fredSeries{
	model.MetricGDPGrowth: {
		byCountry: map[string]string{
			"USA": "A191RL1Q225SBEA",    // US Real GDP Growth Rate
			"IND": "INDGDPRQPSMEI",      // India GDP Growth
			"EUU": "CLVMNACSCAB1GQEA19", // Euro Area GDP
			"CHN": "CHNGDPRQPSMEI",      // China GDP Growth
		},
		template: "CLVMNACSCAB1GQ{country}",
	},
	model.MetricInflation: {
		byCountry: map[string]string{
			"USA": "CPIAUCSL",           // US CPI
			"IND": "INDCPIALLMINMEI",    // India CPI
			"EUU": "CP0000EZ19M086NEST", // Euro Area HICP
			"CHN": "CHNCPIALLMINMEI",    // China CPI
		},
		template: "CPALTT01{country}M659N",
	},
	model.MetricUnemployment: {
		byCountry: map[string]string{
			"USA": "UNRATE",           // US Unemployment Rate
			"IND": "LMUNRRTTINQ156S",  // India Unemployment Rate
			"EUU": "LRHUTTTTEZM156S",  // Euro Area Unemployment
			"CHN": "LMUNRRTTCNM156S",  // China Unemployment Rate
		},
		template: "LRUN64TT{country}Q156S",
	},
	model.MetricInterestRate: {
		byCountry: map[string]string{
			"USA": "FEDFUNDS",        // US Federal Funds Rate
			"IND": "INDIRLTLT01STM",  // India Interest Rate
			"EUU": "ECBMRRFR",        // ECB Main Refinancing Rate
			"CHN": "INTDSRCNM193N",   // China Interest Rate
		},
		template: "IR3TIB01{country}M156N",
	},
}

// fredSeriesID resolves the FRED series for a metric and country
func fredSeriesID(metric model.Metric, country string) (string, bool) {
	series, ok := fredMappings[metric]
	if !ok {
		return "", false
	}
	if id, ok := series.byCountry[country]; ok {
		return id, true
	}
	if series.template == "" {
		return "", false
	}
	return strings.ReplaceAll(series.template, "{country}", country), true
}

// World Bank indicator codes, valid for every country the API covers
var worldBankIndicators = map[model.Metric]string{
	model.MetricGDPGrowth:    "NY.GDP.MKTP.KD.ZG", // GDP growth (annual %)
	model.MetricInflation:    "FP.CPI.TOTL.ZG",    // Inflation, consumer prices (annual %)
	model.MetricUnemployment: "SL.UEM.TOTL.ZS",    // Unemployment, total (% of labor force)
	model.MetricInterestRate: "FR.INR.RINR",       // Real interest rate (%)
}

// OECD SDMX data paths, "{country}" replaced with the OECD country code
var oecdPaths = map[model.Metric]string{
	model.MetricGDPGrowth:    "QNA/B1_GE.{country}.VOBARSA.Q",
	model.MetricInflation:    "PRICES_CPI/CPALTT01.{country}.GP.A",
	model.MetricUnemployment: "LFS_SEXAGE_I_R/{country}.MW.Y15T64.UR.A",
	model.MetricInterestRate: "MEI_FIN/{country}.IRSTCI.ST.M",
}
