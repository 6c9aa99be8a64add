// Package efile parses and writes efile documents: plain-text files holding
// any number of independent, named tables.
//
// # Format
//
// A document is a sequence of sections. Each section is delimited by an
// opening and a closing marker and contains a header line and data lines
// introduced by the tokens of a [FormatSpec]:
//
//	<units>
//	// comment lines are ignored
//	@ voltage peak valley
//	# kV yuan/kWh yuan/kWh
//	</units>
//
// The tokens themselves come from a properties file (see package
// properties) with the keys AttributeNameStarter, AttributeBreaker,
// DataLineStarter and DataBreaker. Use [LoadFormatSpec] to read them.
//
// # Parsing
//
// A [Parser] runs three steps over the lines of a document:
//
//  1. [Scan] finds the named section boundaries with a two-state machine
//     (outside a section / inside one). Sections never nest; a second
//     opening marker silently replaces an unclosed one.
//  2. [BuildTable] tokenizes the lines of each section into a [Table],
//     inferring a type per column: a column is numeric only when every
//     cell in it parses as a number.
//  3. Tables are merged into a [Result] by section name. Later sections
//     replace earlier ones with the same name.
//
// Sections without a header or without rows produce no table. That is not an
// error: the only failures are unreadable inputs ([FileReadError], and
// properties.LoadError for the format file) and missing tokens
// ([MissingFormatKeyError]). Everything else unusual about a document is
// reported as an [Anomaly] to the parser's logger and optional handler.
//
// # Writing
//
// [Encoder] writes tables back in the same grammar so that parsing the
// output yields the original tables.
package efile
