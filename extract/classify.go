package extract

import "strings"

// contentTypeRules maps labels to trigger terms. First matching label in
// slice order wins, so the most specific story shapes come first and
// `general` is the implicit fallback.
var contentTypeRules = []struct {
	Label string
	Terms []string
}{
	{"game_recap", []string{
		"final score", "defeated", "beat the", "win over", "recap",
		"highlights", "held off", "blowout", "walk off win",
	}},
	{"breaking_news", []string{
		"breaking", "just in", "officially announced", "confirmed",
		"report:", "sources say",
	}},
	{"analysis", []string{
		"analysis", "takeaways", "what it means", "film study",
		"breakdown", "deep dive", "by the numbers",
	}},
	{"trade", []string{
		"trade", "traded", "acquire", "acquired", "in exchange for",
		"trade deadline", "dealt to",
	}},
	{"injury", []string{
		"injury", "injured", "out for the season", "questionable",
		"day to day", "acl", "hamstring", "concussion", "surgery",
	}},
	{"roster", []string{
		"signs", "signing", "signed", "roster", "waived", "released",
		"contract extension", "drafted", "free agent", "call up",
	}},
	{"interview", []string{
		"interview", "q&a", "exclusive:", "sits down with", "one on one",
	}},
}

// ClassifyContentType labels an article by scanning title first, then
// body, against the prioritised rule table. Keywords already matched (for
// example "trade deadline") count as body evidence. Unmatched articles
// are "general".
func ClassifyContentType(title, text string, keywords []string) string {
	lowTitle := strings.ToLower(title)
	lowText := strings.ToLower(text)
	kw := " " + strings.ToLower(strings.Join(keywords, " ")) + " "

	for _, rule := range contentTypeRules {
		for _, term := range rule.Terms {
			if strings.Contains(lowTitle, term) {
				return rule.Label
			}
		}
	}
	for _, rule := range contentTypeRules {
		for _, term := range rule.Terms {
			if strings.Contains(lowText, term) || strings.Contains(kw, " "+term+" ") {
				return rule.Label
			}
		}
	}
	return "general"
}
