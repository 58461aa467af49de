// Package policy decides whether a trending candidate is safe to
// reprocess. The gates are heuristic copyright filters, not semantic
// moderation: they trade recall for a very low false-accept rate.
package policy

import (
	"strings"
	"unicode"

	"shorts-bot/video"
)

// Gate names reported in rejection verdicts.
const (
	GateDuration = "duration"
	GateViews    = "views"
	GateKeyword  = "keyword"
	GateChannel  = "channel"
	GateToken    = "token"
)

// Config holds the evaluation thresholds and keyword sets, flattened
// from the themed configuration and treated as immutable.
type Config struct {
	MinViews             int64
	MinDurationSecs      int
	MaxDurationSecs      int
	MinChannelNameLength int
	ForbiddenKeywords    []string
	ChannelBlacklist     []string
	SuspiciousTokens     map[string]bool
}

// New builds an evaluation config from themed keyword sets. All
// keyword matching is case-insensitive, so everything is lowercased
// once here.
func New(minViews int64, minDuration, maxDuration, minChannelLen int, keywordThemes map[string][]string, channelBlacklist, suspiciousTokens []string) *Config {
	cfg := &Config{
		MinViews:             minViews,
		MinDurationSecs:      minDuration,
		MaxDurationSecs:      maxDuration,
		MinChannelNameLength: minChannelLen,
		SuspiciousTokens:     make(map[string]bool, len(suspiciousTokens)),
	}
	for _, words := range keywordThemes {
		for _, w := range words {
			cfg.ForbiddenKeywords = append(cfg.ForbiddenKeywords, strings.ToLower(w))
		}
	}
	for _, c := range channelBlacklist {
		cfg.ChannelBlacklist = append(cfg.ChannelBlacklist, strings.ToLower(c))
	}
	for _, t := range suspiciousTokens {
		cfg.SuspiciousTokens[strings.ToLower(t)] = true
	}
	return cfg
}

// Verdict is the result of evaluating a single candidate.
type Verdict struct {
	Accepted bool
	Gate     string
	Reason   string
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(gate, reason string) Verdict {
	return Verdict{Gate: gate, Reason: reason}
}

// Evaluate runs all gates in order and short-circuits on the first
// failure. It is a pure function over the candidate and the config.
func (c *Config) Evaluate(cand video.Candidate) Verdict {
	if v := c.CheckDuration(cand); !v.Accepted {
		return v
	}
	if v := c.CheckViews(cand); !v.Accepted {
		return v
	}
	if v := c.CheckKeywords(cand); !v.Accepted {
		return v
	}
	if v := c.CheckChannel(cand); !v.Accepted {
		return v
	}
	return c.CheckTokens(cand)
}

// CheckDuration rejects candidates outside the configured duration bounds.
func (c *Config) CheckDuration(cand video.Candidate) Verdict {
	if cand.DurationSeconds < c.MinDurationSecs || cand.DurationSeconds > c.MaxDurationSecs {
		return reject(GateDuration, "duration out of bounds")
	}
	return accept()
}

// CheckViews rejects candidates below the view floor. The floor is a
// coarse popularity proxy, nothing more.
func (c *Config) CheckViews(cand video.Candidate) Verdict {
	if cand.ViewCount < c.MinViews {
		return reject(GateViews, "view count below minimum")
	}
	return accept()
}

// CheckKeywords rejects candidates whose title or channel contains a
// forbidden substring.
func (c *Config) CheckKeywords(cand video.Candidate) Verdict {
	text := strings.ToLower(cand.Title + " " + cand.Channel)
	for _, kw := range c.ForbiddenKeywords {
		if strings.Contains(text, kw) {
			return reject(GateKeyword, "forbidden keyword: "+kw)
		}
	}
	return accept()
}

// CheckChannel applies the channel-name heuristics: minimum length, no
// digits, no blacklisted substrings.
func (c *Config) CheckChannel(cand video.Candidate) Verdict {
	if len(cand.Channel) < c.MinChannelNameLength {
		return reject(GateChannel, "channel name too short")
	}
	for _, r := range cand.Channel {
		if unicode.IsDigit(r) {
			return reject(GateChannel, "channel name contains digits")
		}
	}
	channel := strings.ToLower(cand.Channel)
	for _, blocked := range c.ChannelBlacklist {
		if strings.Contains(channel, blocked) {
			return reject(GateChannel, "blacklisted channel substring: "+blocked)
		}
	}
	return accept()
}

// CheckTokens rejects candidates whose title contains a suspicious
// token as an exact whitespace-delimited word. Distinct from the
// keyword gate, which is substring-based.
func (c *Config) CheckTokens(cand video.Candidate) Verdict {
	for _, tok := range strings.Fields(strings.ToLower(cand.Title)) {
		if c.SuspiciousTokens[tok] {
			return reject(GateToken, "suspicious token: "+tok)
		}
	}
	return accept()
}
