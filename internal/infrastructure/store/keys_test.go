package store

import "testing"

func TestKeyLayout(t *testing.T) {
	t.Parallel()

	cases := []struct {
		got  string
		want string
	}{
		{PDFKey(9, 123), "tisky_pdf/9/123.pdf"},
		{SubVersionPDFKey(9, 123, 2), "tisky_pdf/9/123_2.pdf"},
		{TextKey(9, 123), "tisky_text/9/123.txt"},
		{SubVersionTextKey(9, 123, 2), "tisky_text/9/123_2.txt"},
		{HistoryKey(9, 123), "tisky_meta/9/tisky_historie/123.json"},
		{LawChangesKey(9, 123), "tisky_meta/9/tisky_law_changes/123.json"},
		{SubVersionsKey(9, 123), "tisky_meta/9/subtisk_versions/123.json"},
		{VersionDiffKey(9, 123, 2), "tisky_meta/9/version_diffs/123_2.txt"},
		{VersionDiffENKey(9, 123, 2), "tisky_meta/9/version_diffs/123_2_en.txt"},
		{TopicsKey(9), "tisky_meta/9/topics.csv"},
		{ConsolidationMarkerKey(9), "tisky_meta/9/topics_consolidated.done"},
		{RelatedBillsKey(8810), "tisky_meta/related_bills/8810.json"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("key = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestSplitSubVersionStem(t *testing.T) {
	t.Parallel()

	cases := []struct {
		stem   string
		ct     int
		ct1    int
		wantOK bool
	}{
		{"123_2", 123, 2, true},
		{"123", 0, 0, false},
		{"123_2_en", 0, 0, false},
		{"abc_2", 0, 0, false},
		{"123_x", 0, 0, false},
	}
	for _, tc := range cases {
		ct, ct1, ok := SplitSubVersionStem(tc.stem)
		if ok != tc.wantOK || ct != tc.ct || ct1 != tc.ct1 {
			t.Fatalf("SplitSubVersionStem(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tc.stem, ct, ct1, ok, tc.ct, tc.ct1, tc.wantOK)
		}
	}
}
