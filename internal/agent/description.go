package agent

import (
	"fmt"
	"strings"
)

// Description is the briefing handed to the agent together with the tool.
func (t *Tool) Description() string {
	lines := []string{
		"List records from an available entity in the database.",
		"Use this tool when the user asks for data, records, lists, counts, or aggregations.",
		"",
		"## Guardrails",
		"- You MUST use only entities listed below.",
		`- The "model" must match an entity in the registry; unknown entities are rejected.`,
		"- Only the listed properties and relations may appear in where, orderBy and select.",
		"- Raw expressions ($expr) are rejected.",
		"",
		"## Features",
		"- where: filters (AND/OR/NOT + common operators like equals/in/gt/contains/etc).",
		"- orderBy: sorting (supports nested relations).",
		"- select: projection (supports nested relation selects).",
		"- skip/take: pagination.",
		"- _count/_sum/_avg/_min/_max: aggregates returned under meta.aggregate.",
		"- aggregates use the full where filter (ignore skip/take), so they may differ from data.",
	}
	if t.caseInsensitive {
		lines = append(lines, `- contains/startsWith/endsWith accept mode: "insensitive" for case-insensitive matching.`)
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Limits: take is 1..%d. Default take is %d.", t.maxTake, t.defaultTake),
		"",
		t.describeEntities(),
	)
	return strings.Join(lines, "\n")
}

func (t *Tool) describeEntities() string {
	lines := []string{"# Entities"}
	for _, name := range t.registry.Names() {
		e, err := t.registry.Entity(name, t.locale)
		if err != nil {
			continue
		}
		lines = append(lines, "", fmt.Sprintf("## %s (%s)", e.Name, e.Label))
		if e.AIDescription != "" {
			lines = append(lines, "", strings.TrimSpace(e.AIDescription))
		}

		own := e.OwnPropertyKeys()
		if len(own) > 0 {
			lines = append(lines, "", "#### Properties")
		}
		for _, key := range own {
			p, _ := e.Property(key)
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", key, p.Label, p.Type))
		}

		if len(e.Relations) > 0 {
			lines = append(lines, "", "### Relations")
		}
		for _, r := range e.Relations {
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", r.Name, r.Entity, r.Kind))
		}
	}
	return strings.Join(lines, "\n")
}
