package entities

// DefaultGazetteer returns the built-in sports gazetteer: teams and leagues
// with their common short names, recurring events and host cities. It is
// the fallback when no gazetteer file is configured.
func DefaultGazetteer() *Gazetteer {
	return NewGazetteer(defaultEntries())
}

func defaultEntries() []GazetteerEntry {
	var out []GazetteerEntry
	add := func(label string, name string, variants ...string) {
		out = append(out, GazetteerEntry{Name: name, Label: label, Variants: variants})
	}

	// teams
	add("ORG", "los angeles lakers", "lakers", "la lakers")
	add("ORG", "boston celtics", "celtics")
	add("ORG", "golden state warriors", "warriors", "dubs")
	add("ORG", "new york knicks", "knicks")
	add("ORG", "kansas city chiefs", "chiefs")
	add("ORG", "philadelphia eagles", "eagles")
	add("ORG", "dallas cowboys", "cowboys")
	add("ORG", "buffalo bills", "bills")
	add("ORG", "green bay packers", "packers")
	add("ORG", "los angeles dodgers", "dodgers")
	add("ORG", "new york yankees", "yankees")
	add("ORG", "toronto blue jays", "blue jays", "jays")
	add("ORG", "arsenal", "arsenal fc", "gunners")
	add("ORG", "real madrid", "madrid")
	add("ORG", "fc barcelona", "barcelona", "barca")
	add("ORG", "manchester united", "man united", "man utd")
	add("ORG", "manchester city", "man city")
	add("ORG", "chelsea fc", "chelsea")
	add("ORG", "liverpool fc", "liverpool")
	add("ORG", "inter miami", "inter miami cf")
	add("ORG", "edmonton oilers", "oilers")
	add("ORG", "toronto maple leafs", "maple leafs", "leafs")
	add("ORG", "florida panthers", "panthers")

	// events
	add("EVENT", "world series")
	add("EVENT", "super bowl")
	add("EVENT", "stanley cup", "stanley cup final")
	add("EVENT", "nba finals")
	add("EVENT", "champions league", "ucl")
	add("EVENT", "world cup", "fifa world cup")
	add("EVENT", "march madness")

	// locations
	add("GPE", "los angeles")
	add("GPE", "new york", "nyc")
	add("GPE", "boston")
	add("GPE", "philadelphia", "philly")
	add("GPE", "toronto")
	add("GPE", "las vegas", "vegas")
	add("GPE", "london")
	add("GPE", "manchester")
	add("GPE", "miami")
	add("GPE", "kansas city")
	add("GPE", "chicago")
	add("GPE", "texas")
	add("GPE", "florida")
	add("GPE", "canada")
	add("GPE", "mexico")
	add("GPE", "america", "usa", "united states")

	return out
}
