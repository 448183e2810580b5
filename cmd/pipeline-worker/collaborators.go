// Copyright 2025 James Ross
// collaborators.go stands in for the two external services §1 treats
// as out of scope ("HTML cleaner" and "ingredient grammar parser"),
// plus the category/image fetchers SPEC_FULL.md's pipelines depend on
// but does not itself define. A production deployment swaps these for
// the real implementations behind the same pipelines.* contracts.
package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/awehrman/peas-sub008/internal/repository"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)
var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// naiveHTMLCleaner strips tags with a regexp and unescapes entities.
func naiveHTMLCleaner(rawHTML string) (string, string, error) {
	title := ""
	if m := titlePattern.FindStringSubmatch(rawHTML); len(m) == 2 {
		title = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	cleaned := html.UnescapeString(tagPattern.ReplaceAllString(rawHTML, "\n"))
	lines := make([]string, 0)
	for _, l := range strings.Split(cleaned, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n"), title, nil
}

// naiveIngredientLineParser treats each whitespace-separated token as
// its own segment, classified by a crude shape check — enough to
// exercise the pattern tracker's ordered-ruleId identity without
// depending on the real grammar.
func naiveIngredientLineParser(rawLine string) ([]repository.IngredientSegment, []string, error) {
	fields := strings.Fields(rawLine)
	if len(fields) == 0 {
		return nil, nil, fmt.Errorf("empty ingredient line")
	}
	segments := make([]repository.IngredientSegment, 0, len(fields))
	ruleIDs := make([]string, 0, len(fields))
	for _, f := range fields {
		ruleID := classifyToken(f)
		segments = append(segments, repository.IngredientSegment{RuleID: ruleID, Text: f})
		ruleIDs = append(ruleIDs, ruleID)
	}
	return segments, ruleIDs, nil
}

func classifyToken(token string) string {
	switch {
	case isNumeric(token):
		return "QUANTITY"
	case len(token) <= 3:
		return "UNIT"
	default:
		return "WORD"
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '/' {
			return false
		}
	}
	return true
}

// naiveCategoryDeterminer picks the note's first non-empty Evernote tag
// as its category, falling back to "uncategorized".
func naiveCategoryDeterminer(_ context.Context, note *repository.Note) (string, error) {
	if note != nil {
		for _, t := range note.EvernoteTags {
			if strings.TrimSpace(t) != "" {
				return t, nil
			}
		}
	}
	return "uncategorized", nil
}

const maxImageFetchBytes = 20 * 1024 * 1024

// defaultImageFetcher downloads source image bytes over HTTP with a
// bounded response size, for the supplemented Image pipeline.
func defaultImageFetcher(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxImageFetchBytes {
		return nil, fmt.Errorf("fetch image: response exceeds %d bytes", maxImageFetchBytes)
	}
	return data, nil
}
