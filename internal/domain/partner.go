package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FilterPartners returns the partners whose name, specialty, coverage, or
// languages contain query. Matching is case-insensitive and treats full-width
// and half-width forms alike. A blank query returns every partner.
func FilterPartners(partners []Partner, query string) []Partner {
	needle := foldText(strings.TrimSpace(query))
	if needle == "" {
		return partners
	}

	matched := make([]Partner, 0, len(partners))
	for _, p := range partners {
		if strings.Contains(foldText(partnerHaystack(p)), needle) {
			matched = append(matched, p)
		}
	}
	return matched
}

func partnerHaystack(p Partner) string {
	fields := make([]string, 0, 3+len(p.Languages))
	fields = append(fields, p.Name, p.Specialty, p.Coverage)
	fields = append(fields, p.Languages...)
	return strings.Join(fields, " ")
}

func foldText(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}
