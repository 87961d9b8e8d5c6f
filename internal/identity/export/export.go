// Package export renders the human-readable listing derived from the
// identity snapshot. The listing is a pure projection: rendering the same
// set of identities always yields the same bytes, so it can be regenerated
// at any time from the committed snapshot.
package export

import (
	"sort"
	"strings"

	"employee-access-service/internal/identity/domain"
)

const (
	header    = "EMPLOYEE ACCESS CODES"
	rule      = "=================================================="
	separator = "------------------------------"
)

// Render returns the export listing: a fixed header followed by one block
// per identity in display-name order (phone breaks ties), each block being
// the name line, the code line, and a separator line.
func Render(identities []*domain.Identity) string {
	sorted := make([]*domain.Identity, len(identities))
	copy(sorted, identities)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DisplayName != sorted[j].DisplayName {
			return sorted[i].DisplayName < sorted[j].DisplayName
		}
		return sorted[i].Phone < sorted[j].Phone
	})

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString(header + "\n")
	b.WriteString(rule + "\n\n")
	for _, id := range sorted {
		b.WriteString(id.DisplayName + "\n")
		b.WriteString(id.Code + "\n")
		b.WriteString(separator + "\n")
	}
	return b.String()
}
