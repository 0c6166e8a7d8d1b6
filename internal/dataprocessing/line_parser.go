package dataprocessing

import "strings"

// ParseLine tokenizes one CSV line into fields.
//
// Quoting follows RFC 4180 loosely: a field wrapped in double quotes may
// contain commas, and a doubled quote inside a quoted field is a literal
// quote. Malformed quoting is absorbed into the field content rather than
// rejected, which matches how real-world spreadsheet exports behave.
func ParseLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		switch {
		case ch == '"' && inQuotes:
			if i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else {
				inQuotes = false
			}
		case ch == '"':
			inQuotes = true
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}

	fields = append(fields, current.String())
	return fields
}
