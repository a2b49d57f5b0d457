package extract

import (
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// markdownRenderer sanitises the winning HTML fragment and renders it to
// CommonMark. Sanitisation runs first so scripts or event handlers from a
// hostile page never reach storage.
type markdownRenderer struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// render converts fragment to markdown. domain lets the converter resolve
// relative links against the page origin.
func (r *markdownRenderer) render(fragment, domain string) (string, error) {
	if fragment == "" {
		return "", nil
	}
	safe := r.policy.Sanitize(fragment)
	md, err := r.conv.ConvertString(safe, converter.WithDomain(domain))
	if err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return md, nil
}
