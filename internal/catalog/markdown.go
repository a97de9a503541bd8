package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// AsMarkdown renders the catalog deterministically: grouped by type in the
// fixed order (character, creature, place, item, object), entities
// alphabetized by name within each group, regardless of insertion order.
func (c *Catalog) AsMarkdown() string {
	var b strings.Builder
	b.WriteString("# Elements\n\n")

	for _, t := range typeOrder {
		entities := c.ByType(t)
		if len(entities) == 0 {
			continue
		}
		sort.Slice(entities, func(i, j int) bool {
			return strings.ToLower(entities[i].Name) < strings.ToLower(entities[j].Name)
		})

		b.WriteString(fmt.Sprintf("## %s\n\n", title(t)))
		for _, e := range entities {
			writeEntity(&b, e)
		}
	}

	return b.String()
}

func writeEntity(b *strings.Builder, e *Entity) {
	fmt.Fprintf(b, "### %s\n\n", e.Name)
	if e.Description != "" {
		fmt.Fprintf(b, "%s\n\n", e.Description)
	}
	if len(e.Aliases) > 1 {
		fmt.Fprintf(b, "*Also known as: %s*\n\n", strings.Join(otherAliases(e), ", "))
	}
	if len(e.Quotes) > 0 {
		b.WriteString("Quotes:\n\n")
		for _, q := range e.Quotes {
			fmt.Fprintf(b, "> %s (p. %s)\n\n", q.Text, q.PageRef)
		}
	}
}

func otherAliases(e *Entity) []string {
	primary := foldName(e.Name)
	out := make([]string, 0, len(e.Aliases))
	for _, a := range e.Aliases {
		if a != primary {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}

func title(t EntityType) string {
	switch t {
	case TypeCharacter:
		return "Characters"
	case TypeCreature:
		return "Creatures"
	case TypePlace:
		return "Places"
	case TypeItem:
		return "Items"
	case TypeObject:
		return "Objects"
	default:
		return string(t)
	}
}
