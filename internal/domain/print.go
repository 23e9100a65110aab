package domain

// HistoryStage is one recorded step of the legislative process for a print.
type HistoryStage struct {
	StageType     string `json:"stage_type"`
	Label         string `json:"label"`
	Date          string `json:"date,omitempty"`
	SessionNumber int    `json:"session_number,omitempty"`
	VoteNumber    int    `json:"vote_number,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Details       string `json:"details"`
}

// PrintHistory is the full legislative history scraped for a parliamentary print.
type PrintHistory struct {
	CT                int            `json:"ct"`
	Period            int            `json:"period"`
	Submitter         string         `json:"submitter"`
	SubmitterDate     string         `json:"submitter_date,omitempty"`
	GovernmentOpinion string         `json:"government_opinion,omitempty"`
	Stages            []HistoryStage `json:"stages"`
	CurrentStatus     string         `json:"current_status"`
	LawNumber         string         `json:"law_number,omitempty"`
	ScrapedAt         string         `json:"scraped_at"`
}

// Document is a single downloadable document listed for a print.
type Document struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Format      string `json:"format"`
	IsComplete  bool   `json:"is_complete"`
}

// SubVersion is one ordinal revision of a print: ct1=0 is the original text,
// ct1=1 is typically the government opinion, higher ordinals are amendments.
type SubVersion struct {
	Period        int    `json:"period"`
	CT            int    `json:"ct"`
	CT1           int    `json:"ct1"`
	DocumentID    int    `json:"document_id,omitempty"`
	Description   string `json:"description"`
	HasPDF        bool   `json:"has_pdf"`
	HasText       bool   `json:"has_text"`
	DiffSummaryCS string `json:"diff_summary_cs,omitempty"`
	DiffSummaryEN string `json:"diff_summary_en,omitempty"`
}

// ProposedLawChange is one existing law a print proposes to amend.
type ProposedLawChange struct {
	Citation         string `json:"citation"`
	ChangeKind       string `json:"change_kind,omitempty"`
	TargetLaw        string `json:"target_law_description,omitempty"`
	OriginSubVersion int    `json:"origin_sub_version,omitempty"`
	RelatedID        int    `json:"related_id,omitempty"`
}

// RelatedBill is another print touching the same law, found via the
// related-bills page.
type RelatedBill struct {
	DisplayNumber string `json:"display_number"`
	ShortTitle    string `json:"short_title"`
	PrintType     string `json:"print_type,omitempty"`
	Status        string `json:"status,omitempty"`
	Period        int    `json:"period,omitempty"`
	CT            int    `json:"ct,omitempty"`
	URL           string `json:"url,omitempty"`
}

// ClassificationRecord holds the AI/keyword topic assignment for one print.
type ClassificationRecord struct {
	CT        int      `json:"ct"`
	TopicsCS  []string `json:"topics_cs"`
	TopicsEN  []string `json:"topics_en"`
	SummaryCS string   `json:"summary_cs"`
	SummaryEN string   `json:"summary_en"`
	Source    string   `json:"source"`
}

// SourceKeyword tags records produced by the deterministic fallback classifier.
const SourceKeyword = "keyword"

// Bilingual pairs a Czech text with its English counterpart.
type Bilingual struct {
	CS string
	EN string
}

// VersionText is one extracted text revision handed to the diff analyzer.
type VersionText struct {
	Ordinal int
	Label   string
	Text    string
}

// PeriodResult aggregates everything a completed period run produced.
type PeriodResult struct {
	Period         int
	Histories      map[int]*PrintHistory
	PDFKeys        map[int]string
	TextKeys       map[int]string
	Topics         map[int][]string
	TopicsEN       map[int][]string
	Summaries      map[int]string
	SummariesEN    map[int]string
	LawChanges     map[int][]ProposedLawChange
	SubVersions    map[int][]SubVersion
	VersionDiffs   map[string]string
	VersionDiffsEN map[string]string
}
