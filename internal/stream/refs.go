package stream

import (
	"regexp"
	"strconv"
	"strings"
)

// The backend cites sources in three shapes:
//
//	**[3]** Some title (https://example.com/page)
//	[3]: https://example.com/page
//	3. https://example.com/page
var (
	refBoldRe = regexp.MustCompile(`\*\*\[(\d+)\]\*\*[^\n()]*\((https?://[^\s)]+)\)`)
	refDefRe  = regexp.MustCompile(`(?m)^\s*\[(\d+)\]:\s*(https?://\S+)`)
	refListRe = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s*(https?://\S+)\s*$`)
)

// ExtractReferenceURLs builds a citation-number → URL map used to
// resolve anchor links like #ref3 at render time. The text is not
// modified. The first URL seen for a number wins.
func ExtractReferenceURLs(text string) map[int]string {
	refs := make(map[int]string)
	for _, re := range []*regexp.Regexp{refBoldRe, refDefRe, refListRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if _, ok := refs[n]; !ok {
				refs[n] = strings.TrimRight(m[2], ".,;")
			}
		}
	}
	return refs
}
