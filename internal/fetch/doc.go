// Package fetch retrieves and parses web pages for analysis.
package fetch
