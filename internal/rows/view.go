// Computes read-only projections over a row snapshot.

package rows

import "strings"

// AllSectionsLabel is the selector value clients use for "any section".
const AllSectionsLabel = "All"

// SectionSelector matches either any section or exactly one named section.
type SectionSelector struct {
	name  string
	exact bool
}

// AnySection matches every row.
func AnySection() SectionSelector {
	return SectionSelector{}
}

// InSection matches rows whose section equals name exactly.
func InSection(name string) SectionSelector {
	return SectionSelector{name: name, exact: true}
}

// ParseSection maps a client-supplied selector to a SectionSelector.
//
// The empty string and AllSectionsLabel select any section.
func ParseSection(s string) SectionSelector {
	if s == "" || s == AllSectionsLabel {
		return AnySection()
	}
	return InSection(s)
}

// Name returns the selected section and whether one is selected.
func (s SectionSelector) Name() (string, bool) {
	return s.name, s.exact
}

func (s SectionSelector) match(r *Row) bool {
	return !s.exact || r.Section == s.name
}

// Criteria selects the visible subset of rows.
type Criteria struct {
	Section SectionSelector
	// Search is matched case-insensitively as a substring of key, value and
	// source span concatenated. Surrounding whitespace is ignored.
	Search string
	// Where is an optional additional condition.
	Where *Predicate
}

// Filter returns the rows matching all of c's conditions, in input order.
//
// rows is not modified.
func Filter(rows []Row, c Criteria) []Row {
	needle := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]Row, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		if !c.Section.match(r) {
			continue
		}
		if needle != "" && !strings.Contains(searchText(r), needle) {
			continue
		}
		if c.Where != nil && !c.Where.Match(r) {
			continue
		}
		out = append(out, *r)
	}
	return out
}

func searchText(r *Row) string {
	return strings.ToLower(r.Key + r.Value + r.Span())
}

// DistinctSections returns each section label once, in order of first appearance.
func DistinctSections(rows []Row) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range rows {
		s := rows[i].Section
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
