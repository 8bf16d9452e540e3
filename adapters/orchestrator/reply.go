package orchestrator

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

// DefaultReplyRules are tried in order; the first non-empty string wins
var DefaultReplyRules = []string{
	"$.reply.reply_text",
	"$.reply_text",
	"$.response.text",
	"$.text",
}

// ReplyExtractor evaluates JSONPath rules against the raw orchestrator payload
type ReplyExtractor struct {
	paths []*json.Path
}

var _ repositories.ReplyExtractor = (*ReplyExtractor)(nil)

// NewReplyExtractor compiles the given rules
func NewReplyExtractor(rules ...string) (*ReplyExtractor, error) {
	if len(rules) == 0 {
		rules = DefaultReplyRules
	}

	paths := make([]*json.Path, 0, len(rules))
	for _, rule := range rules {
		path, err := json.CreatePath(rule)
		if err != nil {
			return nil, fmt.Errorf("invalid reply rule %q: %w", rule, err)
		}
		paths = append(paths, path)
	}

	return &ReplyExtractor{paths: paths}, nil
}

// ExtractReplyText returns the first rule match that is a non-empty string
func (e *ReplyExtractor) ExtractReplyText(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}

	for _, path := range e.paths {
		matches, err := path.Extract(raw)
		if err != nil {
			continue
		}
		for _, match := range matches {
			var text string
			if json.Unmarshal(match, &text) != nil {
				continue
			}
			if strings.TrimSpace(text) != "" {
				return text, true
			}
		}
	}

	return "", false
}
