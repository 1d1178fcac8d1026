package search

// LegalSynonyms maps normalized Swiss-legal query terms to their
// multilingual and doctrinal variants, grounded verbatim in
// original_source/mcp_server.py's LEGAL_QUERY_EXPANSIONS table. Keys and
// values are already in the normalized token form TokenizeLegalText
// would produce (lowercase, diacritics folded), so expansion results can
// be fed straight back into the FTS query builder or the rank-term
// coverage scorer in signals.go.
var LegalSynonyms = map[string][]string{
	"asyl":           {"asile", "asilo", "schutz", "refugee"},
	"asile":          {"asyl", "asilo", "protection"},
	"asilo":          {"asyl", "asile", "protezione"},
	"wegweisung":     {"renvoi", "allontanamento", "ausweisung"},
	"renvoi":         {"wegweisung", "expulsion", "allontanamento"},
	"allontanamento": {"wegweisung", "renvoi", "espulsione"},
	"ausweisung":     {"expulsion", "renvoi", "wegweisung"},
	"kuendigung":     {"resiliation", "disdetta", "termination"},
	"kundigung":      {"resiliation", "disdetta", "termination"},
	"resiliation":    {"kuendigung", "kundigung", "termination"},
	"disdetta":       {"kuendigung", "resiliation", "termination"},
	"mietrecht":      {"mietzins", "kuendigung", "mietvertrag", "bail", "locazione"},
	"mietvertrag":    {"bail", "locazione", "mietrecht"},
	"permis":         {"baubewilligung", "baugesuch", "autorizzazione"},
	"construire":     {"baubewilligung", "bauen", "construction"},
	"construction":   {"baubewilligung", "baugesuch", "construire"},
	"baubewilligung": {"baugesuch", "autorizzazione"},
	"baugesuch":      {"baubewilligung", "autorizzazione"},
	"eolien":         {"windpark", "windenergie", "eolienne"},
	"eolienne":       {"windpark", "windenergie", "eolien"},
	"windpark":       {"eolien", "eolienne", "parc"},
	"immissionen":    {"nuisances", "immissioni", "laerm"},
	"laerm":          {"laermschutz", "immissionen"},
	"beschleunigt":   {"verkurzt", "schnellverfahren", "accelerato"},
	"beschleunigtes": {"verkurzte", "schnellverfahren", "accelerato"},
	"verkurzt":       {"beschleunigt", "beschleunigtes"},
	"verkurzte":      {"beschleunigtes", "beschleunigt"},
	"steuer":         {"impot", "tax", "imposta"},
	"impot":          {"steuer", "tax", "imposta"},
	"imposta":        {"steuer", "impot", "tax"},
	"unfallversicherung":     {"accident", "assicurazione", "assurance"},
	"kausalzusammenhang":     {"causalite", "causalita", "causale"},
	"verjaehrung":            {"prescription", "prescrizione"},
	"verfassung":             {"constitution", "costituzione", "bv"},
	"datenschutz":            {"protection", "privacy", "donnees"},
	"persoenlichkeitsschutz": {"privacy", "protection", "personalita"},
	"diskriminierung":        {"gleichbehandlung", "rechtsgleichheit", "discrimination"},
	"gleichbehandlung":       {"diskriminierung", "rechtsgleichheit", "egalite"},
	"rechtsgleichheit":       {"gleichbehandlung", "diskriminierung", "egalite"},
	"willkuer":               {"arbitraire", "arbitrio", "willkuerverbot"},
	"willkuerverbot":         {"willkuer", "arbitraire", "arbitrio"},
	"arbitraire":             {"willkuer", "willkuerverbot", "arbitrio"},
	"grundrechte":            {"droits", "fondamentaux", "diritti", "fondamentali"},
	"verhaeltnismaessigkeit": {"proportionnalite", "proporzionalita"},
	"proportionnalite":       {"verhaeltnismaessigkeit", "proporzionalita"},
	"haftung":                {"responsabilite", "responsabilita", "liability"},
	"responsabilite":         {"haftung", "responsabilita", "liability"},
	"schadenersatz":          {"dommages", "risarcimento", "indemnite"},
	"dommages":               {"schadenersatz", "risarcimento", "indemnite"},
	"vertrag":                {"contrat", "contratto", "contract"},
	"contrat":                {"vertrag", "contratto", "contract"},
	"beschwerde":             {"recours", "ricorso", "appel"},
	"recours":                {"beschwerde", "ricorso", "appel"},
	"vorsorgliche":           {"provisoire", "cautelare", "superprovisorisch"},
	"rechtskraft":            {"autorite", "giudicato", "chose"},
	"freiheitsstrafe":        {"peine", "privative", "liberte"},
	"betrug":                 {"escroquerie", "truffa", "fraud"},
	"diebstahl":              {"vol", "furto", "theft"},
	"scheidung":              {"divorce", "divorzio", "ehescheidung"},
	"unterhalt":              {"entretien", "alimenti", "pension"},
	"sorgerecht":             {"garde", "custodia", "autorite", "parentale"},
	"fristlos":               {"immediat", "immediato", "fristlose"},
	"fristlose":              {"fristlos", "immediat", "immediato"},
	"arbeitsvertrag":         {"contrat", "travail", "contratto", "lavoro"},
	"treuepflicht":           {"fidelite", "fedelta", "loyaute"},
	"kartell":                {"cartel", "cartello", "wettbewerb"},
	"wettbewerb":             {"concurrence", "concorrenza", "competition"},
	"hundebiss":              {"tierhalterhaftung", "haftpflicht"},
	"tierhalterhaftung":      {"hundebiss", "haftpflicht"},
	"autounfall":             {"haftpflicht", "kausalzusammenhang"},
	"verkehrsunfall":         {"haftpflicht", "kausalzusammenhang"},
	"erbschaft":              {"erbrecht", "pflichtteil"},
	"erbe":                   {"erbrecht", "pflichtteil"},
	"pflichtteil":            {"erbschaft", "erbe"},
	"geschaeftsfuehrer":      {"organverantwortlichkeit", "sorgfaltspflicht"},
	"organverantwortlichkeit": {"sorgfaltspflicht", "aktienrecht"},
	"steuerbetrug":            {"steuerhinterziehung", "steuerpflicht"},
	"steuerhinterziehung":     {"steuerbetrug", "steuerpflicht"},
	"entlassung":              {"fristlos", "kuendigung"},
	"mobbing":                 {"persoenlichkeitsschutz", "arbeitsrecht"},
	"nachbarrecht":            {"immissionen", "grundeigentum"},
	"laermschutz":             {"immissionen", "laerm"},
	"eigentuemer":             {"grundeigentum", "sachenrecht"},
}

// MaxExpansionsPerTerm caps how many synonym expansions a single query
// term contributes, matching original_source's MAX_EXPANSIONS_PER_TERM.
const MaxExpansionsPerTerm = 2

// LegalAnchorPairs are two-term combinations whose joint presence in a
// query strongly signals a specific legal topic, used to build focused
// AND/phrase strategies (see strategies.go, grounded on
// original_source's LEGAL_ANCHOR_PAIRS/_pick_anchor_pairs).
var LegalAnchorPairs = [][2]string{
	{"asyl", "wegweisung"},
	{"asile", "renvoi"},
	{"asilo", "allontanamento"},
	{"parc", "eolien"},
	{"permis", "construire"},
	{"baubewilligung", "windpark"},
	{"fristlos", "kuendigung"},
	{"fristlose", "entlassung"},
	{"schadenersatz", "haftung"},
	{"scheidung", "unterhalt"},
	{"diskriminierung", "gleichbehandlung"},
}

// GetSynonyms returns the synonym expansions for a normalized term.
func GetSynonyms(term string) []string {
	return LegalSynonyms[term]
}
