// Package parser turns raw model output into a domain.ParsedResponse.
//
// Parsing never fails. Output that matches no known shape degrades to a
// plain message so that the conversation can always continue.
package parser
