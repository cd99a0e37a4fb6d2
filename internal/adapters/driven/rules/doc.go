// Package rules loads validation rules from spreadsheet, YAML and JSON files.
//
// Every loader returns rules in file order, drops rules without validation
// criteria, and generates ids of the form <GROUP>_<NNN> for rules that
// carry none. GROUP is the check group upper-cased, reduced to letters,
// digits and underscores, and cut to ten characters. NNN is the 1-based
// row number among the data rows.
package rules
