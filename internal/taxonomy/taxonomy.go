// Package taxonomy classifies parliamentary prints against a fixed topic
// table by keyword matching. It backs up the language-model classifier and
// keeps topic assignment deterministic when no model is reachable.
package taxonomy

import (
	"sort"
	"strings"
)

// Topic is one entry of the classification taxonomy. Keywords are stored
// pre-normalized (lowercase, diacritics stripped).
type Topic struct {
	ID       string
	LabelCS  string
	LabelEN  string
	Keywords []string
}

// Match pairs a topic with the number of its keywords found in a text.
type Match struct {
	Topic Topic
	Hits  int
}

// Taxonomy lists every known topic. Slice order matters: it breaks ties
// between topics with equal keyword hits.
var Taxonomy = []Topic{
	{
		ID:      "finance",
		LabelCS: "Finance a rozpočet",
		LabelEN: "Finance & Budget",
		Keywords: []string{
			"rozpocet", "dan", "dane", "danovy", "financni", "statni rozpocet",
			"dph", "schodek", "deficit", "ucetnictvi", "bankovni", "banka",
			"poplatek", "uver", "dluhopis", "cel", "celni", "penzijni",
		},
	},
	{
		ID:      "healthcare",
		LabelCS: "Zdravotnictví",
		LabelEN: "Healthcare",
		Keywords: []string{
			"zdravotni", "nemocnice", "lekar", "pacient", "pojisten",
			"zdravotnictvi", "lecba", "lecivo", "lek", "farmaceut", "epidemi",
			"pandemi", "ockovani", "hygiena", "zdravi",
		},
	},
	{
		ID:      "education",
		LabelCS: "Školství a vzdělávání",
		LabelEN: "Education",
		Keywords: []string{
			"skolstvi", "skola", "vzdelavani", "ucitel", "student",
			"vysoka skola", "univerzit", "maturity", "ucebni", "stipend",
			"vyzkum", "veda", "akadem",
		},
	},
	{
		ID:      "defense",
		LabelCS: "Obrana a bezpečnost",
		LabelEN: "Defense & Security",
		Keywords: []string{
			"obrana", "armada", "vojensk", "nato", "bezpecnost", "policie",
			"hasic", "krizov", "terorism", "zpravodajsk", "zbran", "vojak",
			"brannost",
		},
	},
	{
		ID:      "justice",
		LabelCS: "Spravedlnost a právo",
		LabelEN: "Justice & Law",
		Keywords: []string{
			"soud", "soudni", "trestni", "zakon", "pravni", "ustavni",
			"advokatn", "exekuc", "insolvenc", "notarsk", "vezenstv",
			"kriminal", "pravo", "spravni rad",
		},
	},
	{
		ID:      "environment",
		LabelCS: "Životní prostředí",
		LabelEN: "Environment",
		Keywords: []string{
			"zivotni prostredi", "ekolog", "emis", "klima", "odpad", "voda",
			"ovzdusi", "priroda", "ochrana prirody", "les", "narodni park",
			"krajin", "rekulti", "sucho", "povoden",
		},
	},
	{
		ID:      "transport",
		LabelCS: "Doprava",
		LabelEN: "Transport",
		Keywords: []string{
			"doprav", "silnic", "dalnic", "zeleznic", "leteck", "autobus",
			"mhd", "ridic", "vozidl", "silnice", "most", "tunel",
			"infrastruktur",
		},
	},
	{
		ID:      "social",
		LabelCS: "Sociální politika",
		LabelEN: "Social Policy",
		Keywords: []string{
			"socialn", "duchod", "duchodov", "invalidn", "sirotc", "davk",
			"hmotna nouze", "chudoba", "rodina", "dite", "detsk", "matersk",
			"rodicovsk", "opatrovnictv",
		},
	},
	{
		ID:      "labor",
		LabelCS: "Práce a zaměstnanost",
		LabelEN: "Labor & Employment",
		Keywords: []string{
			"zamestnan", "prace", "pracovni", "mzda", "plat", "odbor",
			"nezamestnanost", "bezpecnost prace", "urad prace", "podnikani",
			"zivnostensk",
		},
	},
	{
		ID:      "eu",
		LabelCS: "Evropská unie",
		LabelEN: "European Union",
		Keywords: []string{
			"evropsk", "eu", "unie", "smernice", "narizeni eu", "schengen",
			"eurozony", "fondy eu", "predsednictv",
		},
	},
	{
		ID:      "foreign",
		LabelCS: "Zahraniční politika",
		LabelEN: "Foreign Policy",
		Keywords: []string{
			"zahranicn", "mezinarodn", "smlouva", "diplomat", "ambasad",
			"migrac", "azyl", "uprchl", "viza", "konzularn",
		},
	},
	{
		ID:      "housing",
		LabelCS: "Bydlení a stavebnictví",
		LabelEN: "Housing & Construction",
		Keywords: []string{
			"bydlen", "staveb", "stavba", "nemovitost", "byt", "najem",
			"hypote", "katastr", "uzemni plan", "stavebn", "bytov",
		},
	},
	{
		ID:      "agriculture",
		LabelCS: "Zemědělství",
		LabelEN: "Agriculture",
		Keywords: []string{
			"zemedelstv", "zemedelec", "farmaf", "potravin", "veterinar",
			"rostlin", "dotace", "hospodarstv", "rybarstvi", "zvire", "chov",
		},
	},
	{
		ID:      "digital",
		LabelCS: "Digitalizace a IT",
		LabelEN: "Digital & IT",
		Keywords: []string{
			"digit", "elektronick", "kybernetick", "internet", "informacn",
			"datov", "egovernment", "egov", "telekomunikac", "sit",
		},
	},
	{
		ID:      "constitutional",
		LabelCS: "Ústavní a procesní",
		LabelEN: "Constitutional & Procedural",
		Keywords: []string{
			"ustav", "ustavni", "referendum", "voleb", "volebni", "mandatov",
			"imunit", "jednaci rad", "poslanec", "senat", "prezident",
		},
	},
	{
		ID:      "procedural",
		LabelCS: "Procedurální",
		LabelEN: "Procedural",
		Keywords: []string{
			"proceduraln", "jednaci", "hlasovani o", "schvaleni programu",
			"preruseni", "zahajeni schuze", "ukonceni", "bod poradu",
		},
	},
}

// Rank scores title+text against every topic and returns matches sorted by
// hit count descending. Topics with zero hits are excluded; ties keep
// taxonomy order.
func Rank(title, text string) []Match {
	normalized := Normalize(title + " " + text)

	var matches []Match
	for _, topic := range Taxonomy {
		hits := 0
		for _, keyword := range topic.Keywords {
			if strings.Contains(normalized, keyword) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, Match{Topic: topic, Hits: hits})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Hits > matches[j].Hits
	})
	return matches
}
