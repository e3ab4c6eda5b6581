package search

// DomainSynonyms maps marketplace terms to variant phrases customers
// actually type. Keys are matched as substrings of the lowercased
// query; each synonym yields one expanded variant.
var DomainSynonyms = map[string][]string{
	"fade":      {"skin fade", "high fade", "taper fade"},
	"haircut":   {"cut", "trim", "hair styling"},
	"trim":      {"touch up", "cleanup"},
	"beard":     {"beard trim", "beard sculpting", "facial hair"},
	"shave":     {"hot towel shave", "straight razor shave"},
	"color":     {"hair color", "dye", "highlights"},
	"braids":    {"braiding", "cornrows", "box braids"},
	"kids":      {"children", "kids cut"},
	"perm":      {"permanent wave", "texture treatment"},
	"lineup":    {"line up", "edge up", "shape up"},
	"dreads":    {"dreadlocks", "locs", "loc retwist"},
	"wedding":   {"special event", "groom styling"},
	"mullet":    {"modern mullet", "shag"},
	"buzz":      {"buzz cut", "clipper cut"},
	"pompadour": {"pomp", "quiff"},
}

// suggestionPhrases is the static autocomplete vocabulary. Kept short
// and curated; suggestions never touch the index.
var suggestionPhrases = []string{
	"beard trim",
	"buzz cut",
	"classic haircut",
	"deluxe shave",
	"hair color",
	"high fade",
	"hot towel shave",
	"kids cut",
	"line up",
	"loc retwist",
	"low fade",
	"mens haircut",
	"pompadour",
	"skin fade",
	"taper fade",
	"wedding groom package",
}
