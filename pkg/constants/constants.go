// Package constants provides shared constants for the controller-toolbox application.
package constants

// Derived column names appended by the KPI engine.
const (
	// ColumnContributionMargin holds revenue minus cost.
	ColumnContributionMargin = "DB1"

	// ColumnMargin holds the contribution margin as percent of revenue.
	ColumnMargin = "Marge"

	// ColumnCostRatio holds cost as percent of revenue.
	ColumnCostRatio = "Kostenquote"

	// ColumnRevenueGrowth holds the period-over-period revenue change in percent.
	ColumnRevenueGrowth = "Umsatzwachstum"

	// ColumnCostGrowth holds the period-over-period cost change in percent.
	ColumnCostGrowth = "Kostenwachstum"

	// ColumnMarginGrowth holds the period-over-period contribution margin change in percent.
	ColumnMarginGrowth = "DB_Wachstum"
)

// Suffixes used by the variance engine.
const (
	SuffixActual          = "_ist"
	SuffixPlan            = "_plan"
	SuffixVariance        = "_var"
	SuffixVariancePercent = "_var_pct"
)

// Default column names used when a job leaves them empty.
const (
	DefaultRevenueColumn = "Umsatz"
	DefaultCostColumn    = "Kosten"
)

// Session result key suffixes.
const (
	AnalysisKPI      = "kpi"
	AnalysisVariance = "variance"
)

// Numeric constants
const (
	// DecimalPrecision is the precision for percent rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration and storage constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DataDirName is the per-user directory below the home directory.
	DataDirName = ".controller_toolbox"

	// RegistryFileName is the SQLite file holding settings and datasets.
	RegistryFileName = "controller_data.db"

	// DefaultLocale drives number formatting in pretty output.
	DefaultLocale = "de"

	// DefaultPreviewRows limits pretty output.
	DefaultPreviewRows = 20
)

// Report constants
const (
	// ReportFilePrefix starts generated report file names.
	ReportFilePrefix = "Bericht_"

	// ReportTimestampLayout is appended to ReportFilePrefix.
	ReportTimestampLayout = "20060102_150405"

	// ReportExtension is the extension of generated reports.
	ReportExtension = ".xlsx"

	// DefaultSheetName is used when a single table is written without a name.
	DefaultSheetName = "Report"

	// MaxSheetNameLength is the Excel limit for sheet names.
	MaxSheetNameLength = 31
)
