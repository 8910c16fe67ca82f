package parser

import "strings"

// Role is the structural role of one receipt line
type Role int

const (
	RoleNoise Role = iota
	RoleHeader
	RoleSectionHeader
	RoleProductLine
	RoleContinuationLine
	RoleMetadata
)

func (r Role) String() string {
	switch r {
	case RoleHeader:
		return "header"
	case RoleSectionHeader:
		return "section_header"
	case RoleProductLine:
		return "product_line"
	case RoleContinuationLine:
		return "continuation_line"
	case RoleMetadata:
		return "metadata"
	default:
		return "noise"
	}
}

// lineContext is the assembler state the classifier depends on
type lineContext struct {
	first   bool // no header line consumed yet
	body    bool // the article body has started
	pending bool // a product line is waiting for its continuation
	section string
}

// classified is one line with its role. For section headers text is the
// department label; for metadata rule and groups describe the field.
type classified struct {
	role   Role
	text   string
	rule   *metaRule
	groups map[string]string
}

// classify assigns a role to line. Checks run in a fixed order: blank,
// header, department, product, continuation, metadata, noise.
func classify(g *grammar, ctx lineContext, line string) classified {
	text := strings.TrimSpace(line)
	if text == "" {
		return classified{role: RoleNoise}
	}

	if ctx.first {
		return classified{role: RoleHeader, text: collapseSpaces(text)}
	}

	if g.isDepartment(text) || (ctx.body && g.sectionLike(text)) {
		label := strings.TrimSpace(strings.TrimSuffix(text, ":"))
		return classified{role: RoleSectionHeader, text: collapseSpaces(label)}
	}

	if g.itemMarker.MatchString(text) || discountPattern.MatchString(text) {
		return classified{role: RoleProductLine, text: text}
	}

	if ctx.pending && g.continuation != nil && g.continuation.MatchString(text) {
		return classified{role: RoleContinuationLine, text: text}
	}

	for i := range g.meta {
		rule := &g.meta[i]
		if groups := namedGroups(rule.pattern, text); groups != nil {
			return classified{role: RoleMetadata, text: text, rule: rule, groups: groups}
		}
	}

	return classified{role: RoleNoise, text: text}
}
