package schema

import "golang.org/x/text/encoding/charmap"

// Descriptors for the five MAUDE record types, post-2000 layout. Column
// sets follow the FDA file documentation; casing is the casing the files
// actually ship with, not a normalization.

var masterSchema = (&RecordSchema{
	Kind:       Master,
	Table:      "master",
	FilePrefix: "mdrfoi",
	Delimiter:  '|',
	Casing:     UpperCase,
	Fallback:   charmap.ISO8859_1,
	Cumulative: true,
	YearField:    "DATE_RECEIVED",
	YearFormat:   FormatDateSlash,
	IndexColumns: []string{"MDR_REPORT_KEY", "DATE_RECEIVED"},
	Columns: []string{
		"MDR_REPORT_KEY",
		"EVENT_KEY",
		"REPORT_NUMBER",
		"REPORT_SOURCE_CODE",
		"MANUFACTURER_LINK_FLAG_",
		"NUMBER_DEVICES_IN_EVENT",
		"NUMBER_PATIENTS_IN_EVENT",
		"DATE_RECEIVED",
		"ADVERSE_EVENT_FLAG",
		"PRODUCT_PROBLEM_FLAG",
		"DATE_REPORT",
		"DATE_OF_EVENT",
		"REPORTER_OCCUPATION_CODE",
		"HEALTH_PROFESSIONAL",
		"INITIAL_REPORT_TO_FDA",
		"DATE_FACILITY_AWARE",
		"REPORT_DATE",
		"REPORT_TO_FDA",
		"DATE_REPORT_TO_FDA",
		"EVENT_LOCATION",
		"DATE_REPORT_TO_MANUFACTURER",
		"MANUFACTURER_NAME",
		"MANUFACTURER_ADDRESS_1",
		"MANUFACTURER_ADDRESS_2",
		"MANUFACTURER_CITY",
		"MANUFACTURER_STATE_CODE",
		"MANUFACTURER_ZIP_CODE",
		"MANUFACTURER_ZIP_CODE_EXT",
		"MANUFACTURER_COUNTRY_CODE",
		"MANUFACTURER_POSTAL_CODE",
		"DATE_MANUFACTURER_RECEIVED",
		"DEVICE_DATE_OF_MANUFACTURE",
		"SINGLE_USE_FLAG",
		"REMEDIAL_ACTION",
		"PREVIOUS_USE_CODE",
		"REMOVAL_CORRECTION_NUMBER",
		"EVENT_TYPE",
		"DISTRIBUTOR_NAME",
		"DISTRIBUTOR_ADDRESS_1",
		"DISTRIBUTOR_ADDRESS_2",
		"DISTRIBUTOR_CITY",
		"DISTRIBUTOR_STATE_CODE",
		"DISTRIBUTOR_ZIP_CODE",
		"DISTRIBUTOR_ZIP_CODE_EXT",
		"REPORT_TO_MANUFACTURER",
		"TYPE_OF_REPORT",
		"SOURCE_TYPE",
		"DATE_ADDED",
		"DATE_CHANGED",
		"REPORTER_COUNTRY_CODE",
		"PMA_PMN_NUM",
		"EXEMPTION_NUMBER",
		"SUMMARY_REPORT",
	},
}).index()

var deviceSchema = (&RecordSchema{
	Kind:       Device,
	Table:      "device",
	FilePrefix: "foidev",
	Delimiter:  '|',
	Casing:     UpperCase,
	Fallback:     charmap.ISO8859_1,
	IndexColumns: []string{"MDR_REPORT_KEY", "DEVICE_REPORT_PRODUCT_CODE"},
	Columns: []string{
		"MDR_REPORT_KEY",
		"DEVICE_EVENT_KEY",
		"IMPLANT_FLAG",
		"DATE_REMOVED_FLAG",
		"DEVICE_SEQUENCE_NO",
		"DATE_RECEIVED",
		"BRAND_NAME",
		"GENERIC_NAME",
		"MANUFACTURER_D_NAME",
		"MANUFACTURER_D_ADDRESS_1",
		"MANUFACTURER_D_ADDRESS_2",
		"MANUFACTURER_D_CITY",
		"MANUFACTURER_D_STATE_CODE",
		"MANUFACTURER_D_ZIP_CODE",
		"MANUFACTURER_D_ZIP_CODE_EXT",
		"MANUFACTURER_D_COUNTRY_CODE",
		"MANUFACTURER_D_POSTAL_CODE",
		"DEVICE_OPERATOR",
		"EXPIRATION_DATE_OF_DEVICE",
		"MODEL_NUMBER",
		"CATALOG_NUMBER",
		"LOT_NUMBER",
		"OTHER_ID_NUMBER",
		"DEVICE_AVAILABILITY",
		"DATE_RETURNED_TO_MANUFACTURER",
		"DEVICE_REPORT_PRODUCT_CODE",
		"DEVICE_AGE_TEXT",
		"DEVICE_EVALUATED_BY_MANUFACTUR",
		"COMBINATION_PRODUCT_FLAG",
		"UDI_DI",
		"UDI_PUBLIC",
	},
}).index()

var textSchema = (&RecordSchema{
	Kind:       Text,
	Table:      "text",
	FilePrefix: "foitext",
	Delimiter:  '|',
	Casing:     UpperCase,
	Fallback:     charmap.ISO8859_1,
	IndexColumns: []string{"MDR_REPORT_KEY"},
	Columns: []string{
		"MDR_REPORT_KEY",
		"MDR_TEXT_KEY",
		"TEXT_TYPE_CODE",
		"PATIENT_SEQUENCE_NUMBER",
		"DATE_REPORT",
		"FOI_TEXT",
	},
}).index()

// The patient file is the one kind the FDA ships with lowercase headers.
var patientSchema = (&RecordSchema{
	Kind:       Patient,
	Table:      "patient",
	FilePrefix: "patient",
	Delimiter:  '|',
	Casing:     LowerCase,
	Fallback:   charmap.ISO8859_1,
	Cumulative: true,
	YearField:    "date_received",
	YearFormat:   FormatDateSlash,
	IndexColumns: []string{"mdr_report_key"},
	Columns: []string{
		"mdr_report_key",
		"patient_sequence_number",
		"date_received",
		"sequence_number_treatment",
		"sequence_number_outcome",
	},
}).index()

// Device-problem rows carry no date; the year of a row is the year of the
// source file it came from.
var deviceProblemSchema = (&RecordSchema{
	Kind:       DeviceProblem,
	Table:      "problems",
	FilePrefix: "foidevproblem",
	Delimiter:  '|',
	Casing:     UpperCase,
	Fallback:     charmap.ISO8859_1,
	IndexColumns: []string{"MDR_REPORT_KEY"},
	Columns: []string{
		"MDR_REPORT_KEY",
		"DEVICE_PROBLEM_CODE",
	},
}).index()

var byKind = map[TableKind]*RecordSchema{
	Master:        masterSchema,
	Device:        deviceSchema,
	Text:          textSchema,
	Patient:       patientSchema,
	DeviceProblem: deviceProblemSchema,
}
