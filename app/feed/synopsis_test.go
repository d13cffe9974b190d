package feed

import "testing"

func TestSynopsisBetweenAuthorAndMetadata(t *testing.T) {
	got := Synopsis(sampleSummary)
	expected := "Two rivals, one & only cabin.\n\nSnowed in."

	if got != expected {
		t.Errorf("Expected synopsis %q, got %q", expected, got)
	}
}

func TestSynopsisWithoutAuthorParagraph(t *testing.T) {
	fragment := `<p>First &lt;para&gt;.</p><p>Second.</p><p>Words: 10</p>`

	got := Synopsis(fragment)
	if got != "First <para>.\n\nSecond." {
		t.Errorf("Unexpected synopsis %q", got)
	}
}

func TestSynopsisStopsAtListWithoutWords(t *testing.T) {
	fragment := `<p>by <a href="https://archiveofourown.org/users/a">a</a></p><p>Only text.</p><ul><li>Warnings: <a href="#">x</a></li></ul>`

	got := Synopsis(fragment)
	if got != "Only text." {
		t.Errorf("Expected 'Only text.', got %q", got)
	}
}

func TestSynopsisWholeFragment(t *testing.T) {
	cases := map[string]string{
		"":                                "",
		"just words":                      "just words",
		"<p>one</p>\n<p>  </p><p>two</p>": "one\n\ntwo",
	}

	for input, expected := range cases {
		if got := Synopsis(input); got != expected {
			t.Errorf("Synopsis(%q): expected %q, got %q", input, expected, got)
		}
	}
}
