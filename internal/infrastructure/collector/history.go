package collector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TiskyPipeline/internal/domain"
)

// maxDetailRunes caps how much raw stage text is kept per stage.
const maxDetailRunes = 500

var (
	dateExpr    = regexp.MustCompile(`(\d{1,2})\.\s*(\d{1,2})\.\s*(\d{4})`)
	sessionExpr = regexp.MustCompile(`(\d+)\.\s*sch[ůu]zi`)
	voteExpr    = regexp.MustCompile(`hlasov[áa]n[ií]\s*[čc]\.\s*(\d+)`)

	lawNumberExpr    = regexp.MustCompile(`(?:pod\s+)?[čc][ií]slem\s+(\d+/\d+\s*Sb\.)`)
	lawNumberAltExpr = regexp.MustCompile(`(\d+/\d+\s*Sb\.)`)

	submitterExpr = regexp.MustCompile(`(?i)([\p{L}\p{N}_\s]+?)\s+předlož[\p{L}\p{N}_]+\s+.*?(\d{1,2}\.\s*\d{1,2}\.\s*\d{4})`)
)

// FetchHistory scrapes the legislative history page of one print. The page
// lists process stages as div.section blocks with li.document-log-item
// entries, each carrying a span.mark (PS, O, 1, V, 2, G, 3, S, P, VL).
func (c *Client) FetchHistory(ctx context.Context, period, ct int) (*domain.PrintHistory, error) {
	pageURL := fmt.Sprintf("%s/sqw/historie.sqw?o=%d&t=%d", c.baseURL, period, ct)
	doc, _, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch history %d/%d: %w", period, ct, err)
	}

	fullText := joinedText(doc.Selection)
	stages := parseStages(doc)
	submitter, submitterDate := extractSubmitter(doc, fullText)

	return &domain.PrintHistory{
		CT:                ct,
		Period:            period,
		Submitter:         submitter,
		SubmitterDate:     submitterDate,
		GovernmentOpinion: extractGovernmentOpinion(fullText),
		Stages:            stages,
		CurrentStatus:     domain.DeriveStatus(stages, fullText),
		LawNumber:         extractLawNumber(fullText),
		ScrapedAt:         time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func parseStages(doc *goquery.Document) []domain.HistoryStage {
	var stages []domain.HistoryStage

	doc.Find("div.section").Each(func(_ int, section *goquery.Selection) {
		content := section.Find("div.section-content").First()
		if content.Length() == 0 {
			return
		}

		items := content.Find("li.document-log-item")
		if items.Length() > 0 {
			items.Each(func(_ int, item *goquery.Selection) {
				mark := strings.TrimSpace(item.Find("span.mark").First().Text())
				if mark == "" {
					return
				}
				// Committee stages may nest a list instead of a paragraph.
				text := joinedText(item)
				if p := item.Find("p").First(); p.Length() > 0 {
					text = joinedText(p)
				}
				if stage, ok := buildStage(mark, text); ok {
					stages = append(stages, stage)
				}
			})
			return
		}

		// Sections without log items (president, publication) carry the
		// mark directly in the content.
		mark := strings.TrimSpace(content.Find("span.mark").First().Text())
		if mark == "" {
			return
		}
		if stage, ok := buildStage(mark, joinedText(content)); ok {
			stages = append(stages, stage)
		}
	})

	return stages
}

func buildStage(mark, text string) (domain.HistoryStage, bool) {
	stageType, label, ok := domain.StageFromMark(mark)
	if !ok {
		return domain.HistoryStage{}, false
	}

	stage := domain.HistoryStage{
		StageType: stageType,
		Label:     label,
		Date:      extractFirstDate(text),
		Outcome:   domain.ExtractOutcome(text),
		Details:   truncateRunes(strings.TrimSpace(text), maxDetailRunes),
	}
	if m := sessionExpr.FindStringSubmatch(text); m != nil {
		stage.SessionNumber, _ = strconv.Atoi(m[1])
	}
	if m := voteExpr.FindStringSubmatch(text); m != nil {
		stage.VoteNumber, _ = strconv.Atoi(m[1])
	}
	return stage, true
}

// extractFirstDate renders the first Czech-format date in text as
// "D. M. YYYY", or "" when none appears.
func extractFirstDate(text string) string {
	m := dateExpr.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("%s. %s. %s", m[1], m[2], m[3])
}

// extractSubmitter reads the Předkladatel section; when the page carries no
// such section, it falls back to a whole-page pattern.
func extractSubmitter(doc *goquery.Document, fullText string) (string, string) {
	var submitter, date string
	found := false

	doc.Find("div.section").EachWithBreak(func(_ int, section *goquery.Selection) bool {
		heading := section.Find("h2, h3, h4, strong, b").First()
		if heading.Length() == 0 || !strings.Contains(heading.Text(), "Předkladatel") {
			return true
		}
		content := section.Find("div.section-content").First()
		if content.Length() == 0 {
			return true
		}

		text := joinedText(content)
		date = extractFirstDate(text)
		if idx := strings.Index(strings.ToLower(text), "předlož"); idx >= 0 {
			submitter = strings.TrimSpace(text[:idx])
		} else {
			submitter = truncateRunes(text, 80)
		}
		found = true
		return false
	})
	if found {
		return submitter, date
	}

	if m := submitterExpr.FindStringSubmatch(fullText); m != nil {
		return strings.TrimSpace(m[1]), extractFirstDate(m[2])
	}
	return "", ""
}

// extractGovernmentOpinion scans the whole page for the government's stance.
func extractGovernmentOpinion(fullText string) string {
	lower := strings.ToLower(fullText)
	switch {
	case strings.Contains(lower, "nesouhlas"):
		return "nesouhlas"
	case strings.Contains(lower, "souhlas"):
		return "souhlas"
	case strings.Contains(lower, "neutrální"):
		return "neutrální"
	}
	return ""
}

// extractLawNumber finds a promulgated law number like "246/2022 Sb."
// anywhere in the page text.
func extractLawNumber(fullText string) string {
	if m := lawNumberExpr.FindStringSubmatch(fullText); m != nil {
		return m[1]
	}
	if m := lawNumberAltExpr.FindStringSubmatch(fullText); m != nil {
		return m[1]
	}
	return ""
}
