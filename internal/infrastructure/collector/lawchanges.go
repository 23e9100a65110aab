package collector

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"TiskyPipeline/internal/domain"
)

var (
	idsbExpr         = regexp.MustCompile(`(?i)idsb=(\d+)`)
	historieLinkExpr = regexp.MustCompile(`(?i)historie\.sqw\?o=(\d+)&t=(\d+)`)
)

// FetchLawChanges parses the law-changes table of a print (the history page
// with snzp=1). When no recognizable table exists, it falls back to
// harvesting idsb links from the whole page.
func (c *Client) FetchLawChanges(ctx context.Context, period, ct int) ([]domain.ProposedLawChange, error) {
	pageURL := fmt.Sprintf("%s/sqw/historie.sqw?o=%d&t=%d&snzp=1", c.baseURL, period, ct)
	doc, _, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch law changes %d/%d: %w", period, ct, err)
	}

	var changes []domain.ProposedLawChange
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		changes = append(changes, parseLawChangesTable(table)...)
	})
	if len(changes) == 0 {
		changes = fallbackLawChanges(doc)
	}

	c.log.Debug("scraped law changes", "period", period, "ct", ct, "count", len(changes))
	return changes, nil
}

func parseLawChangesTable(table *goquery.Selection) []domain.ProposedLawChange {
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	header := strings.ToLower(cellText(rows.First()))
	if !strings.Contains(header, "předpis") && !strings.Contains(header, "citace") &&
		!strings.Contains(header, "zákon") {
		return nil
	}

	var changes []domain.ProposedLawChange
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		change := domain.ProposedLawChange{
			Citation:   cellText(cells.Eq(0)),
			ChangeKind: cellText(cells.Eq(1)),
		}
		if cells.Length() >= 3 {
			change.TargetLaw = cellText(cells.Eq(2))
		}
		if id, ok := findIDSB(row); ok {
			change.RelatedID = id
		}

		if change.Citation == "" && change.TargetLaw == "" {
			return
		}
		changes = append(changes, change)
	})
	return changes
}

func fallbackLawChanges(doc *goquery.Document) []domain.ProposedLawChange {
	var changes []domain.ProposedLawChange
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := idsbExpr.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id, _ := strconv.Atoi(m[1])
		citation := strings.TrimSpace(link.Text())
		if citation == "" {
			citation = cellText(link.Parent())
		}
		changes = append(changes, domain.ProposedLawChange{Citation: citation, RelatedID: id})
	})
	return changes
}

func findIDSB(row *goquery.Selection) (int, bool) {
	id, found := 0, false
	row.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if m := idsbExpr.FindStringSubmatch(href); m != nil {
			id, _ = strconv.Atoi(m[1])
			found = true
			return false
		}
		return true
	})
	return id, found
}

// FetchRelatedBills parses the related-bills listing for one law id: every
// other print that proposes changes to the same law.
func (c *Client) FetchRelatedBills(ctx context.Context, idsb int) ([]domain.RelatedBill, error) {
	pageURL := fmt.Sprintf("%s/sqw/tisky.sqw?idsb=%d", c.baseURL, idsb)
	doc, _, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch related bills idsb=%d: %w", idsb, err)
	}

	var bills []domain.RelatedBill
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		bills = append(bills, c.parseRelatedBillsTable(table)...)
	})

	c.log.Debug("scraped related bills", "idsb", idsb, "count", len(bills))
	return bills, nil
}

func (c *Client) parseRelatedBillsTable(table *goquery.Selection) []domain.RelatedBill {
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	var bills []domain.RelatedBill
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}

		bill := domain.RelatedBill{DisplayNumber: cellText(cells.Eq(0))}
		if cells.Length() >= 2 {
			bill.ShortTitle = cellText(cells.Eq(1))
		}
		if cells.Length() >= 3 {
			bill.PrintType = cellText(cells.Eq(2))
		}
		if cells.Length() >= 4 {
			bill.Status = cellText(cells.Eq(3))
		}

		row.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			m := historieLinkExpr.FindStringSubmatch(href)
			if m == nil {
				return true
			}
			bill.Period, _ = strconv.Atoi(m[1])
			bill.CT, _ = strconv.Atoi(m[2])
			bill.URL = fmt.Sprintf("%s/sqw/%s", c.baseURL, href)
			return false
		})

		if bill.DisplayNumber == "" && bill.ShortTitle == "" {
			return
		}
		bills = append(bills, bill)
	})
	return bills
}
