package feed

import (
	"reflect"
	"strings"
	"testing"
)

const sampleSummary = `<p>by <a href="https://archiveofourown.org/users/quill/pseuds/quill">quill</a></p>
<p>Two rivals, one &amp; only cabin.</p>
<p>Snowed <em>in</em>.</p>
<p>Words: 12,345, Chapters: 3/?, Language: English</p>
<ul>
<li>Fandoms: <a class="tag" href="https://archiveofourown.org/tags/Original%20Work">Original Work</a></li>
<li>Rating: <a class="tag" href="https://archiveofourown.org/tags/Teen%20And%20Up%20Audiences">Teen And Up Audiences</a></li>
<li>Warnings: <a class="tag" href="https://archiveofourown.org/tags/No%20Archive%20Warnings%20Apply">No Archive Warnings Apply</a></li>
<li>Categories: <a class="tag" href="https://archiveofourown.org/tags/F*s*M">F/M</a></li>
<li>Characters: <a class="tag" href="https://archiveofourown.org/tags/Ava">Ava</a>, <a class="tag" href="https://archiveofourown.org/tags/Ben">Ben</a>, <a class="tag" href="https://archiveofourown.org/tags/Ava">Ava</a></li>
<li>Relationships: <a class="tag" href="https://archiveofourown.org/tags/Ava*s*Ben">Ava/Ben</a></li>
<li>Additional Tags: <a class="tag" href="https://archiveofourown.org/tags/Fluff">Fluff</a>, <a class="tag" href="https://archiveofourown.org/tags/Enemies%20to%20Lovers">Enemies to Lovers</a></li>
<li>Series: Part 2 of <a href="https://archiveofourown.org/series/99">Cabin Days</a></li>
</ul>`

func TestExtractorFullSummary(t *testing.T) {
	extractor := NewExtractor(DefaultSiteURL)
	md := extractor.Run(sampleSummary)

	if md.Words == nil || *md.Words != 12345 {
		t.Errorf("Expected words 12345, got %v", md.Words)
	}
	if md.Chapters != "3/?" {
		t.Errorf("Expected chapters '3/?', got '%s'", md.Chapters)
	}
	if md.Language != "English" {
		t.Errorf("Expected language 'English', got '%s'", md.Language)
	}
	if md.Rating != "Teen And Up Audiences" {
		t.Errorf("Expected rating 'Teen And Up Audiences', got '%s'", md.Rating)
	}

	checks := []struct {
		name     string
		got      []string
		expected []string
	}{
		{"warnings", md.Warnings, []string{"No Archive Warnings Apply"}},
		{"categories", md.Categories, []string{"F/M"}},
		{"characters", md.Characters, []string{"Ava", "Ben", "Ava"}},
		{"relationships", md.Relationships, []string{"Ava/Ben"}},
		{"additional tags", md.AdditionalTags, []string{"Fluff", "Enemies to Lovers"}},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.expected) {
			t.Errorf("Expected %s %v, got %v", c.name, c.expected, c.got)
		}
	}

	if md.Series == nil {
		t.Fatal("Expected series to be extracted")
	}
	if md.Series.Name != "Cabin Days" || md.Series.Link != "https://archiveofourown.org/series/99" {
		t.Errorf("Unexpected series: %+v", *md.Series)
	}
}

func TestExtractorMissingWarnings(t *testing.T) {
	fragment := strings.Replace(sampleSummary,
		`<li>Warnings: <a class="tag" href="https://archiveofourown.org/tags/No%20Archive%20Warnings%20Apply">No Archive Warnings Apply</a></li>`,
		"", 1)

	md := NewExtractor(DefaultSiteURL).Run(fragment)

	if md.Warnings == nil || len(md.Warnings) != 0 {
		t.Errorf("Expected empty warnings, got %#v", md.Warnings)
	}
	if !reflect.DeepEqual(md.Categories, []string{"F/M"}) {
		t.Errorf("Expected categories [F/M], got %v", md.Categories)
	}
	if !reflect.DeepEqual(md.Characters, []string{"Ava", "Ben", "Ava"}) {
		t.Errorf("Expected characters [Ava Ben Ava], got %v", md.Characters)
	}
	if !reflect.DeepEqual(md.Relationships, []string{"Ava/Ben"}) {
		t.Errorf("Expected relationships [Ava/Ben], got %v", md.Relationships)
	}
	if !reflect.DeepEqual(md.AdditionalTags, []string{"Fluff", "Enemies to Lovers"}) {
		t.Errorf("Expected additional tags [Fluff Enemies to Lovers], got %v", md.AdditionalTags)
	}
	if md.Words == nil || *md.Words != 12345 {
		t.Errorf("Expected words 12345, got %v", md.Words)
	}
	if md.Rating != "Teen And Up Audiences" {
		t.Errorf("Expected rating to survive, got '%s'", md.Rating)
	}
}

func TestExtractorTagNamesOutsideSections(t *testing.T) {
	md := NewExtractor(DefaultSiteURL).Run(sampleSummary)

	for _, name := range []string{"Original Work", "Teen And Up Audiences", "Enemies to Lovers", "F*s*M", "Ava*s*Ben"} {
		if _, ok := md.TagNames[name]; !ok {
			t.Errorf("Expected tag name %q in %v", name, md.TagNames)
		}
	}
	if len(md.TagNames) != 9 {
		t.Errorf("Expected 9 distinct tag names, got %d: %v", len(md.TagNames), md.TagNames)
	}
	if _, ok := md.TagNames["original work"]; ok {
		t.Error("Tag names should preserve case")
	}
	if !md.TagNames.ContainsAny([]string{"original work"}) {
		t.Error("ContainsAny should match case-insensitively")
	}
}

func TestExtractorTagNamesHonourSiteURL(t *testing.T) {
	fragment := `<p>Fandom: <a href="http://archiveofourown.org/tags/Caf%C3%A9%20AU/works">Café AU</a>
<a href="https://example.com/tags/Elsewhere">Elsewhere</a>
<a href='https://archiveofourown.org/tags/Single%20Quoted'>x</a></p>`

	names := NewExtractor("https://archiveofourown.org/").TagNames(fragment)

	if _, ok := names["Café AU"]; !ok {
		t.Errorf("Expected percent-decoded 'Café AU', got %v", names)
	}
	if _, ok := names["Single Quoted"]; !ok {
		t.Errorf("Expected single-quoted href to match, got %v", names)
	}
	if _, ok := names["Elsewhere"]; ok {
		t.Error("Links to other hosts must not be collected")
	}
}

func TestExtractorCaseInsensitiveLabels(t *testing.T) {
	fragment := `<p>WORDS: 42, chapters: 1/1, LANGUAGE: Deutsch</p>
<ul><li>rating: General Audiences</li>
<li>additional tags: <a href="https://archiveofourown.org/tags/Angst">Angst</a></li></ul>`

	md := NewExtractor(DefaultSiteURL).Run(fragment)

	if md.Words == nil || *md.Words != 42 {
		t.Errorf("Expected words 42, got %v", md.Words)
	}
	if md.Chapters != "1/1" {
		t.Errorf("Expected chapters '1/1', got '%s'", md.Chapters)
	}
	if md.Language != "Deutsch" {
		t.Errorf("Expected language 'Deutsch', got '%s'", md.Language)
	}
	if md.Rating != "General Audiences" {
		t.Errorf("Expected plain-text rating, got '%s'", md.Rating)
	}
	if !reflect.DeepEqual(md.AdditionalTags, []string{"Angst"}) {
		t.Errorf("Expected additional tags [Angst], got %v", md.AdditionalTags)
	}
}

func TestExtractorSectionStopsAtListEnd(t *testing.T) {
	fragment := `<ul><li>Additional Tags: <a href="https://archiveofourown.org/tags/Fluff">Fluff</a></li></ul>
<p><a href="https://archiveofourown.org/tags/Trailing">Trailing</a></p>`

	md := NewExtractor(DefaultSiteURL).Run(fragment)

	if !reflect.DeepEqual(md.AdditionalTags, []string{"Fluff"}) {
		t.Errorf("Expected additional tags [Fluff], got %v", md.AdditionalTags)
	}
	if !md.TagNames.ContainsAny([]string{"Trailing"}) {
		t.Error("Tag names should still include links after the list")
	}
}

func TestExtractorEmptyAndMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"plain text with no markup",
		"Words:",
		"Words: many",
		"Chapters: 3",
		"Chapters: /5",
		"Rating: <a",
		`<a href="https://archiveofourown.org/tags/`,
		"<<<>>> Warnings: <a>unterminated",
		"Warnings: Categories: Characters: Relationships: Additional Tags:",
	}

	extractor := NewExtractor(DefaultSiteURL)
	for _, input := range inputs {
		md := extractor.Run(input)

		if md.TagNames == nil {
			t.Errorf("Expected non-nil tag names for %q", input)
		}
		if md.Chapters != "" {
			t.Errorf("Expected no chapters for %q, got '%s'", input, md.Chapters)
		}
		if md.Words != nil {
			t.Errorf("Expected no word count for %q, got %d", input, *md.Words)
		}
		if len(md.Warnings)+len(md.Categories)+len(md.Characters)+len(md.Relationships)+len(md.AdditionalTags) != 0 {
			t.Errorf("Expected empty sections for %q, got %+v", input, md)
		}
	}
}

func TestExtractorWordsFormats(t *testing.T) {
	cases := map[string]int{
		"Words: 0":               0,
		"Words:7":                7,
		"Words: 1,234,567 words": 1234567,
		"Words: 12, Chapters":    12,
		"Words: 12,34":           12,
	}

	extractor := NewExtractor(DefaultSiteURL)
	for input, expected := range cases {
		md := extractor.Run(input)
		if md.Words == nil || *md.Words != expected {
			t.Errorf("Expected %d for %q, got %v", expected, input, md.Words)
		}
	}
}

func TestExtractorAttributeContainingAngleBracket(t *testing.T) {
	fragment := `<ul><li>Additional Tags: <a title="a>b" href="https://archiveofourown.org/tags/Fluff">Fluff</a></li></ul>`

	extractor := NewExtractor(DefaultSiteURL)
	md := extractor.Run(fragment)

	if !reflect.DeepEqual(md.AdditionalTags, []string{"Fluff"}) {
		t.Errorf("Expected additional tags [Fluff], got %q", md.AdditionalTags)
	}
	if _, ok := md.TagNames["Fluff"]; !ok {
		t.Errorf("Expected tag name 'Fluff', got %v", md.TagNames)
	}

	entries := []Entry{{ID: "1", Metadata: md}}
	if kept := NewFilterer().Run(entries, []string{"fluff"}); len(kept) != 0 {
		t.Errorf("Entry tagged Fluff should be excluded, got %d entries", len(kept))
	}
}

func TestExtractorIgnoresLabelsInFreeText(t *testing.T) {
	fragment := strings.Replace(sampleSummary,
		"<p>Snowed <em>in</em>.</p>",
		"<p>Warnings: see tags. Characters: mostly OCs. Words: a few.</p>", 1)

	md := NewExtractor(DefaultSiteURL).Run(fragment)

	if !reflect.DeepEqual(md.Warnings, []string{"No Archive Warnings Apply"}) {
		t.Errorf("Expected warnings [No Archive Warnings Apply], got %v", md.Warnings)
	}
	if !reflect.DeepEqual(md.Characters, []string{"Ava", "Ben", "Ava"}) {
		t.Errorf("Expected characters [Ava Ben Ava], got %v", md.Characters)
	}
	if md.Words == nil || *md.Words != 12345 {
		t.Errorf("Expected words 12345, got %v", md.Words)
	}

	expected := "Two rivals, one & only cabin.\n\nWarnings: see tags. Characters: mostly OCs. Words: a few."
	if got := Synopsis(fragment); got != expected {
		t.Errorf("Expected synopsis %q, got %q", expected, got)
	}
}
