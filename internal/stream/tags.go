package stream

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Tag blocks are stripped from finalized or cached content only, not
// from the live token filter. A tag straddling a chunk boundary can
// flash briefly during streaming before finalization cleans it up.

var (
	thinkRe  = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	imagesRe = regexp.MustCompile(`(?s)<images>(.*?)</images>`)
	filesRe  = regexp.MustCompile(`(?s)<files>(.*?)</files>`)
)

// ExtractThink removes <think> blocks and returns their concatenated
// interior.
func ExtractThink(text string) (string, string) {
	var parts []string
	clean := thinkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := thinkRe.FindStringSubmatch(m)
		if t := strings.TrimSpace(sub[1]); t != "" {
			parts = append(parts, t)
		}
		return ""
	})
	return clean, strings.Join(parts, "\n")
}

// ExtractImages removes <images> blocks and returns the
// comma-separated URLs they carried.
func ExtractImages(text string) (string, []string) {
	var urls []string
	clean := imagesRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := imagesRe.FindStringSubmatch(m)
		for _, u := range strings.Split(sub[1], ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		return ""
	})
	return clean, urls
}

// ExtractFiles removes <files> blocks and returns the parsed file
// references.
func ExtractFiles(text string) (string, []ParsedFile) {
	var files []ParsedFile
	clean := filesRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := filesRe.FindStringSubmatch(m)
		files = append(files, parseFileList(sub[1])...)
		return ""
	})
	return clean, files
}

// parseFileList accepts either a JSON array of file objects or a plain
// comma-separated URL list.
func parseFileList(body string) []ParsedFile {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}
	var files []ParsedFile
	if err := json.Unmarshal([]byte(body), &files); err == nil {
		return files
	}
	var out []ParsedFile
	for _, u := range strings.Split(body, ",") {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		name := u
		if k := strings.LastIndexByte(u, '/'); k >= 0 && k+1 < len(u) {
			name = u[k+1:]
		}
		out = append(out, ParsedFile{Name: name, URL: u})
	}
	return out
}
