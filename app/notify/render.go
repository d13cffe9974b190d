package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/ao3-courier/app/feed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	maxDescriptionLength = 2000
	maxFieldLength       = 1024

	maxListedRelationships = 5
	maxListedCharacters    = 5
	maxListedTags          = 10

	embedColor = 0x3498db
	footerText = "Archive of Our Own"
)

var printer = message.NewPrinter(language.English)

// Render turns an entry into a Message. It is shared by every notifier so the
// log and webhook outputs stay identical.
func Render(entry feed.Entry) Message {
	msg := Message{
		Title:       truncate(entry.Title, 256),
		URL:         entry.Link,
		Description: truncate(entry.Synopsis, maxDescriptionLength),
		Color:       embedColor,
		Author: Author{
			Name: entry.Author,
			URL:  entry.AuthorLink,
		},
		Footer: Footer{Text: footerText},
	}

	if msg.Description == "" {
		msg.Description = "No summary"
	}
	if msg.Author.Name == "" {
		msg.Author.Name = "Unknown"
	}

	if ts := timestamp(entry); ts != nil {
		msg.Timestamp = ts.UTC().Format(time.RFC3339)
	}

	if entry.Words != nil {
		msg.Fields = append(msg.Fields, Field{Name: "Words", Value: printer.Sprintf("%d", *entry.Words), Inline: true})
	}
	if entry.Chapters != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Chapters", Value: entry.Chapters, Inline: true})
	}
	if entry.Rating != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Rating", Value: entry.Rating, Inline: true})
	}
	if entry.Language != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Language", Value: entry.Language, Inline: true})
	}
	if entry.Series != nil && entry.Series.Name != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Series", Value: truncate(entry.Series.Name, maxFieldLength), Inline: true})
	}

	if len(entry.Relationships) > 0 {
		msg.Fields = append(msg.Fields, Field{Name: "Relationships", Value: joinLimited(entry.Relationships, maxListedRelationships)})
	}
	if len(entry.Characters) > 0 {
		msg.Fields = append(msg.Fields, Field{Name: "Characters", Value: joinLimited(entry.Characters, maxListedCharacters)})
	}
	if len(entry.AdditionalTags) > 0 {
		msg.Fields = append(msg.Fields, Field{Name: "Tags", Value: joinLimited(entry.AdditionalTags, maxListedTags)})
	}
	if len(entry.Warnings) > 0 {
		msg.Fields = append(msg.Fields, Field{Name: "Warnings", Value: joinLimited(entry.Warnings, len(entry.Warnings))})
	}

	return msg
}

func timestamp(entry feed.Entry) *time.Time {
	if entry.UpdatedAt != nil {
		return entry.UpdatedAt
	}
	return entry.PublishedAt
}

// joinLimited lists at most limit values and notes how many were left out.
func joinLimited(values []string, limit int) string {
	if len(values) <= limit {
		return truncate(strings.Join(values, ", "), maxFieldLength)
	}
	joined := strings.Join(values[:limit], ", ") + fmt.Sprintf(" (+%d more)", len(values)-limit)
	return truncate(joined, maxFieldLength)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
