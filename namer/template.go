package namer

import (
	"context"
	"fmt"
	"strings"

	"shorts-bot/video"
)

// fallback title templates, filled with a per-candidate number.
var templates = []string{
	"Mind-Blowing Moment #%d",
	"Epic Discovery #%d",
	"Incredible Find #%d",
	"Amazing Revelation #%d",
	"Unbelievable Fact #%d",
	"Wild Discovery #%d",
	"Hidden Secret #%d",
}

// TemplateGenerator produces deterministic fallback titles when the AI
// generator is unavailable. The template choice and number derive from
// the candidate ID, so the same candidate always gets the same raw
// title (the uniqueness wrapper handles collisions).
type TemplateGenerator struct{}

// NewTemplateGenerator creates the fallback generator.
func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

// Generate builds a templated title and a hashtag description.
func (t *TemplateGenerator) Generate(_ context.Context, cand video.Candidate) (string, string, error) {
	seed := idSeed(cand.ID)
	template := templates[seed%uint32(len(templates))]
	title := fmt.Sprintf(template, seed%10000)

	description := fmt.Sprintf("Incredible content you have to see!\n\nFrom: %s\n\n%s",
		cand.Channel, Hashtags(cand))
	return title, description, nil
}

func idSeed(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return h
}

// Hashtags builds the tag block appended to descriptions: base tags,
// category tags, and a view-tier tag.
func Hashtags(cand video.Candidate) string {
	tags := []string{"#shorts", "#viral", "#trending"}

	switch cand.Category {
	case video.CategoryTech:
		tags = append(tags, "#technology", "#innovation", "#gadgets")
	case video.CategoryEntertainment:
		tags = append(tags, "#entertainment", "#fun", "#amazing")
	default:
		tags = append(tags, "#content", "#discover")
	}

	switch {
	case cand.ViewCount >= 10_000_000:
		tags = append(tags, "#megaviral")
	case cand.ViewCount >= 5_000_000:
		tags = append(tags, "#superviral")
	default:
		tags = append(tags, "#millionviews")
	}

	return strings.Join(tags, " ")
}
