// Package parser turns raw model replies into analysis results.
//
// Parsing is split into two independent stages: Extract finds a JSON object
// inside noisy text, Decode strictly decodes it. Parse chains them with the
// schema check and degrades to analysis.Fallback on any failure.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
	"github.com/bryanwahyu/unitecon/internal/logging"
)

// MaxDepth is the deepest object/array nesting Decode accepts.
const MaxDepth = 512

var (
	// fence markers on their own line; backticks inside values are left alone
	fenceRe = regexp.MustCompile("(?m)^[ \\t]*```[a-zA-Z]*[ \\t]*$")
	// greedy first-"{" to last-"}" match, used when braces never balance
	greedyRe = regexp.MustCompile(`(?s)\{.*\}`)

	errNoObject = errors.New("no json object found")
	errTooDeep  = fmt.Errorf("json nesting exceeds %d", MaxDepth)
)

// Extract strips code fences and returns the first balanced {...} substring.
func Extract(raw string) (string, bool) {
	text := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
	if obj, ok := firstBalancedObject(text); ok {
		return obj, true
	}
	if m := greedyRe.FindString(text); m != "" {
		return m, true
	}
	return "", false
}

// firstBalancedObject scans from the first '{' and returns the object that
// closes it, ignoring braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// nestingDepth returns the maximum object/array depth of s, skipping strings.
func nestingDepth(s string) int {
	depth, deepest := 0, 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > deepest {
				deepest = depth
			}
		case '}', ']':
			depth--
		}
	}
	return deepest
}

// Decode strictly decodes a single JSON object. Numbers are kept as
// json.Number so values round-trip unchanged.
func Decode(s string) (map[string]any, error) {
	if nestingDepth(s) > MaxDepth {
		return nil, errTooDeep
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	if obj == nil {
		return nil, errNoObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decoding json: trailing data after object")
	}
	return obj, nil
}

// DecodeResult decodes a stored payload, e.g. a cache entry.
func DecodeResult(b []byte) (analysis.Result, error) {
	obj, err := Decode(string(bytes.TrimSpace(b)))
	if err != nil {
		return nil, err
	}
	return analysis.Result(obj), nil
}

// Parser implements analysis.ResponseParser.
type Parser struct {
	Log *zap.Logger
}

func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{Log: log}
}

func (p *Parser) Parse(raw string) analysis.Result {
	candidate, ok := Extract(raw)
	if !ok {
		p.degraded(raw, errNoObject, nil)
		return analysis.Fallback()
	}
	obj, err := Decode(candidate)
	if err != nil {
		p.degraded(raw, err, nil)
		return analysis.Fallback()
	}
	result := analysis.Result(obj)
	if problems := analysis.Violations(result); len(problems) > 0 {
		p.degraded(raw, errors.New("schema validation failed"), problems)
		return analysis.Fallback()
	}
	return result
}

func (p *Parser) degraded(raw string, cause error, missing []string) {
	p.Log.Warn("model response degraded to fallback",
		zap.Error(cause),
		zap.Strings("missing_fields", missing),
		zap.Int("response_len", len(raw)),
		zap.String("response_preview", logging.Preview(raw)),
	)
}
