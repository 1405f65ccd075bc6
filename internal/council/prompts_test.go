package council

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/alanyoungcy/oracles/internal/domain"
	"github.com/alanyoungcy/oracles/internal/llm"
)

func TestBuildResearchPrompt(t *testing.T) {
	convey.Convey("Given a market with a resolution date and described options", t, func() {
		res := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)
		m := domain.Market{
			ID:             "m1",
			Title:          "Who wins?",
			Description:    "Resolves on certified results.",
			Category:       "politics",
			ResolutionDate: &res,
			Options: []domain.MarketOption{
				{ID: "a", Name: "Alice", Description: "incumbent"},
				{ID: "b", Name: "Bob"},
			},
		}

		p := BuildResearchPrompt(m)

		convey.Convey("Then the prompt lists the market fields and options", func() {
			convey.So(p, convey.ShouldContainSubstring, "**Title:** Who wins?")
			convey.So(p, convey.ShouldContainSubstring, "**Category:** politics")
			convey.So(p, convey.ShouldContainSubstring, "**Resolution Date:** 2026-11-03")
			convey.So(p, convey.ShouldContainSubstring, "- a: Alice (incumbent)")
			convey.So(p, convey.ShouldContainSubstring, "- b: Bob\n")
			convey.So(p, convey.ShouldContainSubstring, "## Instructions")
		})

		convey.Convey("Then an empty source is omitted", func() {
			convey.So(p, convey.ShouldNotContainSubstring, "**Source:**")
		})
	})
}

func TestBuildPredictPrompt(t *testing.T) {
	convey.Convey("Given option ids and research notes", t, func() {
		p := BuildPredictPrompt([]string{"yes", "no"}, "notes")

		convey.Convey("Then the ids are listed and the research ends the prompt", func() {
			convey.So(p, convey.ShouldContainSubstring, "The option IDs are: yes, no")
			convey.So(p, convey.ShouldEndWith, "Research:\nnotes")
		})
	})
}

func TestResearchText(t *testing.T) {
	convey.Convey("Given research steps with text and tool results", t, func() {
		res := llm.TextResult{Steps: []llm.Step{
			{Text: "thinking", ToolResults: []llm.ToolResult{{Output: map[string]int{"n": 1}}}},
			{Text: ""},
			{Text: "summary"},
		}}

		convey.Convey("Then text comes first and raw results follow a divider", func() {
			convey.So(researchText(res), convey.ShouldEqual, "thinking\n\nsummary\n\n---\nRaw search results:\n{\"n\":1}")
		})
	})

	convey.Convey("Given research without tool results", t, func() {
		got := researchText(llm.TextResult{Steps: []llm.Step{{Text: "only"}}})

		convey.Convey("Then no divider is added", func() {
			convey.So(got, convey.ShouldEqual, "only")
		})
	})
}
