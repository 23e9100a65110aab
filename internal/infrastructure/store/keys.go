package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Artifact keys use forward slashes on every backend. The fs backend maps
// them onto the data directory; the sqlite backend keeps them opaque.

// PDFKey locates the main document of a print.
func PDFKey(period, ct int) string {
	return fmt.Sprintf("tisky_pdf/%d/%d.pdf", period, ct)
}

// SubVersionPDFKey locates the document of one sub-version of a print.
func SubVersionPDFKey(period, ct, ct1 int) string {
	return fmt.Sprintf("tisky_pdf/%d/%d_%d.pdf", period, ct, ct1)
}

// TextKey locates the extracted text of a print.
func TextKey(period, ct int) string {
	return fmt.Sprintf("tisky_text/%d/%d.txt", period, ct)
}

// SubVersionTextKey locates the extracted text of one sub-version.
func SubVersionTextKey(period, ct, ct1 int) string {
	return fmt.Sprintf("tisky_text/%d/%d_%d.txt", period, ct, ct1)
}

// TextPrefix lists every extracted text of a period.
func TextPrefix(period int) string {
	return fmt.Sprintf("tisky_text/%d/", period)
}

// HistoryKey locates the scraped legislative history of a print.
func HistoryKey(period, ct int) string {
	return fmt.Sprintf("tisky_meta/%d/tisky_historie/%d.json", period, ct)
}

// HistoryPrefix lists every scraped history of a period.
func HistoryPrefix(period int) string {
	return fmt.Sprintf("tisky_meta/%d/tisky_historie/", period)
}

// LawChangesKey locates the proposed law changes of a print.
func LawChangesKey(period, ct int) string {
	return fmt.Sprintf("tisky_meta/%d/tisky_law_changes/%d.json", period, ct)
}

// SubVersionsKey locates the sub-version metadata of a print.
func SubVersionsKey(period, ct int) string {
	return fmt.Sprintf("tisky_meta/%d/subtisk_versions/%d.json", period, ct)
}

// VersionDiffKey locates the Czech diff summary of one version pair.
func VersionDiffKey(period, ct, ct1 int) string {
	return fmt.Sprintf("tisky_meta/%d/version_diffs/%d_%d.txt", period, ct, ct1)
}

// VersionDiffENKey locates the English diff summary of one version pair.
func VersionDiffENKey(period, ct, ct1 int) string {
	return fmt.Sprintf("tisky_meta/%d/version_diffs/%d_%d_en.txt", period, ct, ct1)
}

// VersionDiffPrefix lists every diff summary of a period.
func VersionDiffPrefix(period int) string {
	return fmt.Sprintf("tisky_meta/%d/version_diffs/", period)
}

// TopicsKey locates the classification table of a period.
func TopicsKey(period int) string {
	return fmt.Sprintf("tisky_meta/%d/topics.csv", period)
}

// ConsolidationMarkerKey locates the marker written once a period's topic
// vocabulary has been consolidated.
func ConsolidationMarkerKey(period int) string {
	return fmt.Sprintf("tisky_meta/%d/topics_consolidated.done", period)
}

// RelatedBillsKey locates cached related bills for one law id.
func RelatedBillsKey(idsb int) string {
	return fmt.Sprintf("tisky_meta/related_bills/%d.json", idsb)
}

// SplitSubVersionStem parses a "{ct}_{ct1}" file stem. ok is false for base
// texts ("{ct}") and anything else.
func SplitSubVersionStem(stem string) (ct, ct1 int, ok bool) {
	parts := strings.Split(stem, "_")
	if len(parts) != 2 {
		return 0, 0, false
	}
	ct, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	ct1, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return ct, ct1, true
}
