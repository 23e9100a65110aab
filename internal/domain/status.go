package domain

import "strings"

// Stage type identifiers used across the legislative process.
const (
	StageChamber      = "ps"
	StageOrganizing   = "organizacni"
	StageFirstReading = "1_cteni"
	StageCommittee    = "vybor"
	StageSecondRead   = "2_cteni"
	StageGuarantor    = "garant"
	StageThirdReading = "3_cteni"
	StageSenate       = "senat"
	StagePresident    = "prezident"
	StagePublication  = "sbirka"
)

// Derived print statuses. The raw pages never spell these out; they are
// computed from the stage list and page text.
const (
	StatusPromulgated     = "promulgated"
	StatusRejected        = "rejected"
	StatusWithdrawn       = "withdrawn"
	StatusSigned          = "signed"
	StatusPassedByChamber = "passed by chamber"
	StatusInProgress      = "in progress"
)

// StageFromMark resolves a raw page marker (PS, O, 1, V, 2, G, 3, S, P, VL)
// to its stage type and human label. Unknown markers yield ok=false.
func StageFromMark(mark string) (stageType, label string, ok bool) {
	m, ok := stageMarks[mark]
	if !ok {
		return "", "", false
	}
	return m.stageType, m.label, true
}

type stageMark struct {
	stageType string
	label     string
}

var stageMarks = map[string]stageMark{
	"PS": {StageChamber, "Poslanecká sněmovna"},
	"O":  {StageOrganizing, "Organizační výbor"},
	"1":  {StageFirstReading, "1. čtení"},
	"V":  {StageCommittee, "Výbor"},
	"2":  {StageSecondRead, "2. čtení"},
	"G":  {StageGuarantor, "Garanční výbor"},
	"3":  {StageThirdReading, "3. čtení"},
	"S":  {StageSenate, "Senát"},
	"P":  {StagePresident, "Prezident"},
	"VL": {StagePublication, "Sbírka zákonů"},
}

// Outcome phrases in match priority order; the first phrase found in the
// lowercased stage text wins.
var outcomePatterns = []struct {
	phrase string
	label  string
}{
	{"schválen", "schválen"},
	{"zamítnut", "zamítnut"},
	{"přikázán", "přikázán výborům"},
	{"doporučuje schválit", "doporučuje schválit"},
	{"nedoporučuje", "nedoporučuje schválit"},
	{"podepsal", "podepsal"},
	{"vrátil", "vrátil"},
	{"přerušuje", "přerušeno"},
	{"stažen", "stažen"},
	{"vzat zpět", "vzat zpět"},
	{"vyhlášen", "vyhlášen"},
}

// ExtractOutcome matches known outcome phrases in stage text. Returns ""
// when nothing matches.
func ExtractOutcome(text string) string {
	lower := strings.ToLower(text)
	for _, p := range outcomePatterns {
		if strings.Contains(lower, p.phrase) {
			return p.label
		}
	}
	return ""
}

// DeriveStatus computes the overall print status from its stages and the
// full page text. Evaluated as a priority cascade, first hit wins.
func DeriveStatus(stages []HistoryStage, fullText string) string {
	lower := strings.ToLower(fullText)

	for _, s := range stages {
		if s.StageType == StagePublication {
			return StatusPromulgated
		}
	}
	if strings.Contains(lower, "zamítnut") {
		return StatusRejected
	}
	if strings.Contains(lower, "stažen") || strings.Contains(lower, "vzat zpět") {
		return StatusWithdrawn
	}

	for i := len(stages) - 1; i >= 0; i-- {
		s := stages[i]
		if s.Outcome == "" {
			continue
		}
		if strings.Contains(s.Outcome, "schválen") {
			if s.StageType == StagePresident {
				return StatusSigned
			}
			if s.StageType == StageThirdReading {
				return StatusPassedByChamber
			}
		}
		if strings.Contains(s.Outcome, "zamítnut") {
			return StatusRejected
		}
	}

	return StatusInProgress
}
