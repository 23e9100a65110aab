package llm

import (
	"fmt"
	"regexp"
	"strings"

	"TiskyPipeline/internal/domain"
)

// promptSet holds the task templates for one output language. User templates
// are fmt strings; see the builders below for the argument order.
type promptSet struct {
	noTitle string

	classifySystem string
	classifyUser   string

	summarySystem string
	summaryUser   string

	consolidateSystem string
	consolidateUser   string

	compareSystem string
	compareUser   string
}

var promptsCS = promptSet{
	noTitle: "(bez názvu)",

	classifySystem: "Jsi analytik ceskeho parlamentu. Analyzujes parlamentni tisky a priradujes jim tematicke stitky. " +
		"Odpovez POUZE ve formatu 'TOPICS: tema1, tema2, tema3' kde temata jsou 1-3 kratke ceske nazvy " +
		"tematickych oblasti (napr. 'Dane a poplatky', 'Socialni pojisteni', 'Trestni pravo'). " +
		"Pouzivej strucne a konkretni nazvy temat. Zadny dalsi text.",
	classifyUser: "Urc 1-3 hlavni temata nasledujiciho parlamentniho tisku. " +
		"Pouzij kratke ceske nazvy temat (2-4 slova). " +
		"Bud konkretni - napr. misto 'Pravo' napis 'Trestni pravo' nebo 'Obcanske pravo'.\n\n" +
		"Nazev tisku: %s\n\n" +
		"Text tisku:\n%s\n\n" +
		"Odpovez POUZE: TOPICS: tema1, tema2, tema3 /no_think",

	summarySystem: "Jsi kriticko-analyticky komentator ceskeho parlamentu. Pises ostre, vecne a bez prikraslovani. " +
		"Odhalujes skryte dopady zakonu, rizika zneuziti, a kdo z novely skutecne profituje. " +
		"Neboj se pojmenovat problemy primo — napr. oslabeni nezavislosti uredniku, rozsireni pravomoci " +
		"bez kontroly, skryte privatizace, nebo omeze obcanskych prav. 3-4 vety.",
	summaryUser: "Analyzuj nasledujici parlamentni tisk KRITICKY. Nestaci rict 'co meni' — vysvetli:\n" +
		"1. Co KONKRETNE se meni (zadne vague formulace)\n" +
		"2. Komu to prospiva a komu skodi\n" +
		"3. Jake je RIZIKO zneuziti nebo nezamysleny dusledek\n" +
		"Bud primy a kriticko-analyticky. Pokud zakon oslabuje kontrolu, nezavislost nebo prava, rekni to jasne.\n" +
		"3-4 vety v cestine.\n\n" +
		"Nazev: %s\n\n" +
		"Text:\n%s /no_think",

	consolidateSystem: "Jsi analytik ceskeho parlamentu. Dostanes seznam tematickych stitku. " +
		"Sjednot podobna/prekryvajici se temata pod jeden kanonicky nazev.",
	consolidateUser: "Zde je seznam %d temat z parlamentnich tisku. Sjednot podobna a prekryvajici se temata.\n" +
		"Pro kazde tema napis mapovani ve formatu: stare_tema -> kanonicky_nazev\n" +
		"Pokud je tema uz dobre, mapuj ho samo na sebe.\n\n" +
		"Temata:\n%s\n\n" +
		"Odpovez POUZE mapovanim, jeden radek na tema. /no_think",

	compareSystem: "Jsi analyticko-pravni expert na ceskou legislativu. Srovnavas verze parlamentnich tisku " +
		"a identifikujes KONKRETNI zmeny mezi nimi — cisla paragrafu, co bylo pridano, odebrano ci zmeneno.",
	compareUser: "Porovnej nasledujici dve verze parlamentniho tisku a popis KONKRETNI rozdily:\n" +
		"1. Ktere paragrafy/clanky se zmenily a jak\n" +
		"2. Co bylo pridano nebo odebrano\n" +
		"3. Jaky je celkovy charakter zmen (zprisneni/zmireni/technicka uprava)\n" +
		"3-4 vety v cestine. Bud konkretni — cituj cisla paragrafu.\n\n" +
		"VERZE %d (%s):\n%s\n\n" +
		"VERZE %d (%s):\n%s /no_think",
}

var promptsEN = promptSet{
	noTitle: "(no title)",

	classifySystem: "You are an analyst of the Czech Parliament. You analyze parliamentary prints and assign thematic labels. " +
		"Respond ONLY in the format 'TOPICS: topic1, topic2, topic3' where topics are 1-3 short English names " +
		"of thematic areas (e.g. 'Taxes and fees', 'Social insurance', 'Criminal law'). " +
		"Use concise and specific topic names. No other text.",
	classifyUser: "Identify 1-3 main topics of the following parliamentary print. " +
		"Use short English topic names (2-4 words). " +
		"Be specific - e.g. instead of 'Law' write 'Criminal law' or 'Civil law'.\n\n" +
		"Print title: %s\n\n" +
		"Print text:\n%s\n\n" +
		"Respond ONLY: TOPICS: topic1, topic2, topic3 /no_think",

	summarySystem: "You are a critical analyst of the Czech Parliament. You write sharp, factual assessments " +
		"without embellishment. You expose hidden impacts of laws, risks of abuse, and who truly " +
		"benefits from amendments. Don't hesitate to name problems directly — e.g. weakening of " +
		"official independence, expanding powers without oversight, hidden privatizations, or " +
		"restrictions on civil rights. 3-4 sentences.",
	summaryUser: "Analyze the following Czech parliamentary bill CRITICALLY. Don't just say 'what it changes' — explain:\n" +
		"1. What SPECIFICALLY changes (no vague formulations)\n" +
		"2. Who benefits and who is harmed\n" +
		"3. What is the RISK of abuse or unintended consequence\n" +
		"Be direct and critical. If the law weakens oversight, independence, or rights, say it clearly.\n" +
		"3-4 sentences in English.\n\n" +
		"Title: %s\n\n" +
		"Text:\n%s /no_think",

	consolidateSystem: "You are an analyst of the Czech Parliament. You receive a list of thematic labels. " +
		"Merge similar/overlapping topics under one canonical name.",
	consolidateUser: "Here is a list of %d topics from parliamentary prints. Merge similar and overlapping topics.\n" +
		"For each topic write a mapping in the format: old_topic -> canonical_name\n" +
		"If a topic is already good, map it to itself.\n\n" +
		"Topics:\n%s\n\n" +
		"Respond ONLY with the mapping, one line per topic. /no_think",

	compareSystem: "You are a legal expert on Czech legislation. You compare versions of parliamentary bills " +
		"and identify SPECIFIC changes between them — paragraph numbers, what was added, removed, or modified.",
	compareUser: "Compare the following two versions of a Czech parliamentary bill and describe SPECIFIC differences:\n" +
		"1. Which paragraphs/articles changed and how\n" +
		"2. What was added or removed\n" +
		"3. What is the overall character of changes (tightening/loosening/technical adjustment)\n" +
		"3-4 sentences in English. Be specific — cite paragraph numbers.\n\n" +
		"VERSION %d (%s):\n%s\n\n" +
		"VERSION %d (%s):\n%s /no_think",
}

var (
	thinkExpr  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	topicsExpr = regexp.MustCompile(`(?i)TOPICS?:\s*(.+)`)
)

// StripThink removes <think> blocks emitted by reasoning models and trims the
// result.
func StripThink(text string) string {
	return strings.TrimSpace(thinkExpr.ReplaceAllString(text, ""))
}

// ParseTopics extracts at most three labels from a "TOPICS: a, b, c" response.
// Returns nil when the response carries no usable labels.
func ParseTopics(response string) []string {
	match := topicsExpr.FindStringSubmatch(StripThink(response))
	if match == nil {
		return nil
	}

	var topics []string
	for _, part := range strings.Split(match[1], ",") {
		topic := strings.Trim(strings.TrimSpace(part), ".,;:-–")
		if topic == "" || strings.EqualFold(topic, "none") {
			continue
		}
		topics = append(topics, topic)
		if len(topics) == 3 {
			break
		}
	}
	return topics
}

// ParseMapping reads "old -> canonical" lines from a consolidation response.
// Labels absent from the response map to themselves, so a garbled or empty
// response degrades to the identity mapping.
func ParseMapping(response string, labels []string) map[string]string {
	mapping := make(map[string]string, len(labels))
	for _, line := range strings.Split(StripThink(response), "\n") {
		before, after, ok := strings.Cut(strings.TrimSpace(line), " -> ")
		if !ok {
			continue
		}
		old := strings.Trim(strings.TrimSpace(before), "- ")
		canonical := strings.TrimSpace(after)
		if old != "" && canonical != "" {
			mapping[old] = canonical
		}
	}
	for _, label := range labels {
		if _, ok := mapping[label]; !ok {
			mapping[label] = label
		}
	}
	return mapping
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

func bulletList(labels []string) string {
	items := make([]string, len(labels))
	for i, label := range labels {
		items[i] = "- " + label
	}
	return strings.Join(items, "\n")
}

func versionLabel(v domain.VersionText) string {
	if v.Label != "" {
		return v.Label
	}
	return fmt.Sprintf("CT1=%d", v.Ordinal)
}
