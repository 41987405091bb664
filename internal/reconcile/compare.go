package reconcile

import (
	"sort"
	"strings"

	"github.com/protera/launchsync/internal/models"
)

// Comparison rules for the launch-profile field kinds. Enum fields compare
// case-insensitively, security groups compare as sets, and the private IP
// list compares as an ordered structure because the first entry is primary.

func enumEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// normalizeSet trims each entry and returns a sorted copy. The input slice
// is never modified.
func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	sort.Strings(out)
	return out
}

// setEqual compares two group lists ignoring order. Callers pass the
// desired side already normalized; the current side is normalized here.
func setEqual(current, normalizedDesired []string) bool {
	if len(current) != len(normalizedDesired) {
		return false
	}
	sorted := normalizeSet(current)
	for i := range sorted {
		if sorted[i] != normalizedDesired[i] {
			return false
		}
	}
	return true
}

// buildPrivateIPs converts an ordered address list into the template's
// private IP structure: entries are trimmed and the first one is primary.
func buildPrivateIPs(addrs []string) []models.PrivateIPSpec {
	specs := make([]models.PrivateIPSpec, 0, len(addrs))
	for i, addr := range addrs {
		specs = append(specs, models.PrivateIPSpec{
			Primary: i == 0,
			Address: strings.TrimSpace(addr),
		})
	}
	return specs
}

func privateIPsEqual(a, b []models.PrivateIPSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
