package collector

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"TiskyPipeline/internal/domain"
)

// minPageRunes separates real listings from the near-empty pages the site
// serves with status 200 for unknown prints.
const minPageRunes = 50

var iddExpr = regexp.MustCompile(`orig2\.sqw\?idd=(\d+)`)

// FetchDocuments scrapes the document listing of one print version. It
// reports found=false when the page is absent: HTTP 404, a near-empty body,
// or the site's "nebyl nalezen" message. A present page with no document
// links yields found=true and an empty slice.
func (c *Client) FetchDocuments(ctx context.Context, period, ct, ct1 int) ([]domain.Document, bool, error) {
	pageURL := fmt.Sprintf("%s/sqw/text/tiskt.sqw?o=%d&ct=%d&ct1=%d", c.baseURL, period, ct, ct1)
	doc, status, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch documents %d/%d ct1=%d: %w", period, ct, ct1, err)
	}

	body := strings.TrimSpace(joinedText(doc.Selection))
	if utf8.RuneCountInString(body) < minPageRunes || strings.Contains(strings.ToLower(body), "nebyl nalezen") {
		return nil, false, nil
	}

	return parseDocuments(doc), true, nil
}

func parseDocuments(doc *goquery.Document) []domain.Document {
	var documents []domain.Document

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := iddExpr.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id, _ := strconv.Atoi(m[1])

		desc := strings.TrimSpace(link.Text())
		parentText := desc
		if parent := link.Parent(); parent.Length() > 0 {
			parentText = strings.TrimSpace(parent.Text())
		}

		format := "unknown"
		if strings.Contains(strings.ToUpper(parentText), "PDF") || strings.HasSuffix(href, ".pdf") {
			format = "PDF"
		}
		lowerDesc := strings.ToLower(desc)

		documents = append(documents, domain.Document{
			ID:          id,
			Description: desc,
			Format:      format,
			IsComplete:  strings.Contains(lowerDesc, "cel") || strings.Contains(lowerDesc, "úplné znění"),
		})
	})

	return documents
}

// BestDocument picks the preferred document from a listing: the first
// complete print when one exists, otherwise the first document.
func BestDocument(docs []domain.Document) (domain.Document, bool) {
	if len(docs) == 0 {
		return domain.Document{}, false
	}
	for _, doc := range docs {
		if doc.IsComplete {
			return doc, true
		}
	}
	return docs[0], true
}

// EnumerateSubVersions walks ct1=0..maxVersions collecting print versions.
// Enumeration stops at the first absent page past ct1=0; an absent base page
// still yields the ct1=0 entry so lineage always has an origin.
func (c *Client) EnumerateSubVersions(ctx context.Context, period, ct, maxVersions int) ([]domain.SubVersion, error) {
	var versions []domain.SubVersion

	for ct1 := 0; ct1 <= maxVersions; ct1++ {
		docs, found, err := c.FetchDocuments(ctx, period, ct, ct1)
		if err != nil {
			return nil, fmt.Errorf("enumerate versions %d/%d: %w", period, ct, err)
		}
		if !found && ct1 > 0 {
			break
		}

		best, ok := BestDocument(docs)
		desc := ""
		if ok {
			desc = best.Description
		}
		if desc == "" {
			switch ct1 {
			case 0:
				desc = "Původní znění (original)"
			case 1:
				desc = "Stanovisko vlády (government opinion)"
			}
		}

		version := domain.SubVersion{
			Period:      period,
			CT:          ct,
			CT1:         ct1,
			Description: desc,
			HasPDF:      ok,
		}
		if ok {
			version.DocumentID = best.ID
		}
		versions = append(versions, version)

		if !found && ct1 == 0 {
			break
		}
	}

	c.log.Debug("enumerated sub-versions", "period", period, "ct", ct, "count", len(versions))
	return versions, nil
}
