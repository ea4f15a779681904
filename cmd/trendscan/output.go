package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/trendscan/pkg/trendscan"
	"github.com/cognicore/trendscan/pkg/trendscan/rank"
)

const maxClusterTerms = 12

func renderResult(res *trendscan.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s, %s, %s)\n", res.RunID, res.Platform, res.Window, res.Mode)
	fmt.Fprintf(&b, "%s posts, %s documents", humanize.Comma(int64(res.Posts)), humanize.Comma(int64(res.Documents)))
	if res.Sentences > 0 {
		fmt.Fprintf(&b, ", %s sentences", humanize.Comma(int64(res.Sentences)))
	}
	fmt.Fprintf(&b, " in %s\n\n", res.Elapsed.Round(time.Millisecond))

	for _, section := range []struct {
		title string
		rows  []rank.Result
	}{
		{"Athletes", res.Athletes},
		{"Teams", res.Teams},
		{"Events", res.Events},
		{"Locations", res.Locations},
		{"Top words", res.Words},
		{"Mentions", res.Mentions},
	} {
		if section.rows == nil {
			continue
		}
		b.WriteString(renderRanked(section.title, section.rows, formatCount))
		b.WriteString("\n\n")
	}

	if res.Topics != nil {
		format := formatCount
		if res.Mode == trendscan.ModeTopics {
			format = formatShare
		}
		b.WriteString(renderRanked("Topics", res.Topics, format))
		b.WriteString("\n\n")
	}

	if len(res.Clusters) > 0 {
		rows := make([][]string, 0, len(res.Clusters))
		for _, cl := range res.Clusters {
			terms := cl.Terms
			more := ""
			if len(terms) > maxClusterTerms {
				more = fmt.Sprintf(" (+%d)", len(terms)-maxClusterTerms)
				terms = terms[:maxClusterTerms]
			}
			rows = append(rows, []string{cl.Label, strconv.Itoa(len(cl.Terms)), strings.Join(terms, ", ") + more})
		}
		b.WriteString(renderTable("Clusters", []string{"Topic", "Terms", "Related"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft}))
		b.WriteString("\n\n")
	}

	if len(res.Prevalence) > 0 {
		rows := make([][]string, 0, len(res.Prevalence))
		for _, t := range res.Prevalence {
			rows = append(rows, []string{t.Label, formatShare(t.Prevalence), strings.Join(t.Words, ", ")})
		}
		b.WriteString(renderTable("Prevalence", []string{"Topic", "Share", "Top words"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft}))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRanked(title string, results []rank.Result, format func(float64) string) string {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Label, format(r.Score)})
	}
	return renderTable(title, []string{"#", "Label", "Score"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight})
}

func formatCount(v float64) string {
	return humanize.Comma(int64(v))
}

func formatShare(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}
