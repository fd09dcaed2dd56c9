package prisjagt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Price fragments: digits next to a currency marker ("4.999 kr.", "4 999,-", "DKK 4999")
var (
	pricePattern = regexp.MustCompile(
		`(?i)\d[\d. \x{00a0}]*(?:,\d{2})?\s*(?:kr\.?|dkk|,-)|(?:kr\.?|dkk)\s*\d[\d. \x{00a0}]*(?:,\d{2})?`)
	letterPattern = regexp.MustCompile(`\pL`)
)

// Card is one parsed search-result card
type Card struct {
	CardTitle string `json:"title"`
	CardPrice string `json:"price_text"`
	// TitleRule names the extraction rule that produced the title
	TitleRule string `json:"title_rule,omitempty"`
}

// Title returns the product title shown on the card
func (c Card) Title() string { return c.CardTitle }

// PriceText returns the raw price fragment shown on the card
func (c Card) PriceText() string { return c.CardPrice }

// cardView is what the extraction rules work from
type cardView struct {
	sel   *goquery.Selection
	lines []string
}

type extractRule struct {
	name    string
	extract func(v cardView) string
}

// titleRules are tried in order until one yields a non-empty title
var titleRules = []extractRule{
	{name: "heading", extract: headingTitle},
	{name: "class-hint", extract: classHintTitle},
	{name: "link-label", extract: linkLabelTitle},
	{name: "longest-line", extract: longestLineTitle},
}

// priceRules are tried in order until one yields a fragment with digits
var priceRules = []extractRule{
	{name: "price-component", extract: priceComponent},
	{name: "text-component", extract: textComponentPrice},
	{name: "visible-text", extract: visibleTextPrice},
}

// ParseCard extracts title and price fragment from a card's outer HTML and its
// rendered text. visibleText may be empty, in which case the HTML text is used.
// The bool is false when either part could not be found.
func ParseCard(html, visibleText string) (Card, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Card{}, false
	}
	return parseSelection(doc.Selection, visibleText)
}

// ParseResultsPage parses every card matching selector in a full results page.
// Cards that yield no title or no price are left out.
func ParseResultsPage(html, selector string) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var cards []Card
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if c, ok := parseSelection(s, ""); ok {
			cards = append(cards, c)
		}
	})
	return cards, nil
}

func parseSelection(sel *goquery.Selection, visibleText string) (Card, bool) {
	if strings.TrimSpace(visibleText) == "" {
		visibleText = blockText(sel)
	}
	v := cardView{sel: sel, lines: splitLines(visibleText)}

	title, rule := firstMatch(titleRules, v)
	price, _ := firstMatch(priceRules, v)
	if title == "" || price == "" {
		return Card{}, false
	}
	return Card{CardTitle: title, CardPrice: price, TitleRule: rule}, true
}

func firstMatch(rules []extractRule, v cardView) (string, string) {
	for _, rule := range rules {
		if out := rule.extract(v); out != "" {
			return out, rule.name
		}
	}
	return "", ""
}

func headingTitle(v cardView) string {
	return firstText(v.sel.Find("h1, h2, h3, h4"))
}

func classHintTitle(v cardView) string {
	return firstText(v.sel.Find(`[data-test*="Title"], [data-test*="Name"], [class*="title"], [class*="Title"], [class*="name"], [class*="Name"]`))
}

func linkLabelTitle(v cardView) string {
	var title string
	v.sel.Find("a[aria-label], a[title]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		for _, attr := range []string{"aria-label", "title"} {
			if val, ok := a.Attr(attr); ok {
				if val = collapse(val); val != "" {
					title = val
					return false
				}
			}
		}
		return true
	})
	return title
}

// longestLineTitle picks the longest visible line that is not a price and has letters
func longestLineTitle(v cardView) string {
	var best string
	for _, line := range v.lines {
		if pricePattern.MatchString(line) || !letterPattern.MatchString(line) {
			continue
		}
		if len([]rune(line)) > len([]rune(best)) {
			best = line
		}
	}
	return best
}

func priceComponent(v cardView) string {
	return priceIn(v.sel.Find(`[data-sentry-element="Component"][data-sentry-component="Text"].font-heaviest`))
}

func textComponentPrice(v cardView) string {
	return priceIn(v.sel.Find(`[data-sentry-component="Text"]`))
}

func visibleTextPrice(v cardView) string {
	for _, line := range v.lines {
		if m := pricePattern.FindString(line); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// priceIn returns the first price fragment among the selected elements
func priceIn(sel *goquery.Selection) string {
	var price string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := collapse(s.Text())
		if m := pricePattern.FindString(text); m != "" {
			price = strings.TrimSpace(m)
			return false
		}
		return true
	})
	return price
}

func firstText(sel *goquery.Selection) string {
	var text string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = collapse(s.Text())
		return text == ""
	})
	return text
}

// blockText approximates rendered text: one line per leaf text node
func blockText(sel *goquery.Selection) string {
	var lines []string
	sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		if t := collapse(s.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	if len(lines) == 0 {
		return sel.Text()
	}
	return strings.Join(lines, "\n")
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = collapse(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
