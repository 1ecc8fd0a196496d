package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"

	domain "github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

// allowedText is the character allow-list for every text field.
var allowedText = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s.,!?()\-:"'%$€₽+/]*$`)

// FieldRule declares the checks applied to one request field. Lengths are
// counted in runes after trimming.
type FieldRule struct {
	Name     string
	Required bool
	Min      int
	Max      int
}

// RequestRules are the per-field rules for an analysis request.
var RequestRules = []FieldRule{
	{Name: "startup_idea", Required: true, Min: 10, Max: 1000},
	{Name: "description", Required: true, Min: 50, Max: 2000},
	{Name: "additional_info", Max: 500},
}

// CheckSize rejects raw bodies larger than domain.MaxBodyBytes.
func CheckSize(n int) error {
	if n > domain.MaxBodyBytes {
		return fmt.Errorf("%w: %d bytes", domain.ErrRequestTooLarge, n)
	}
	return nil
}

// DecodeRaw parses the body into its top-level fields. Anything other than
// a single JSON object is ErrMalformedRequest.
func DecodeRaw(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body is not an object", domain.ErrMalformedRequest)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", domain.ErrMalformedRequest)
	}
	return raw, nil
}

// Validate applies RequestRules to raw and returns the normalized request,
// or a *domain.ValidationError with messages in lang.
func Validate(raw map[string]any, lang language.Tag) (domain.Request, error) {
	p := printer(lang)
	fields := map[string][]string{}
	values := map[string]string{}

	for _, rule := range RequestRules {
		v, present := raw[rule.Name]
		if v == nil {
			present = false
		}
		s, isString := v.(string)
		if present && !isString {
			fields[rule.Name] = append(fields[rule.Name], p.Sprintf(msgNotString, rule.Name))
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			if rule.Required {
				fields[rule.Name] = append(fields[rule.Name], p.Sprintf(msgRequired, rule.Name))
			}
			continue
		}

		n := utf8.RuneCountInString(s)
		if rule.Min > 0 && n < rule.Min {
			fields[rule.Name] = append(fields[rule.Name], p.Sprintf(msgTooShort, rule.Name, rule.Min))
		}
		if rule.Max > 0 && n > rule.Max {
			fields[rule.Name] = append(fields[rule.Name], p.Sprintf(msgTooLong, rule.Name, rule.Max))
		}
		if !allowedText.MatchString(s) {
			fields[rule.Name] = append(fields[rule.Name], p.Sprintf(msgCharset, rule.Name))
		}
		values[rule.Name] = s
	}

	if len(fields) > 0 {
		return domain.Request{}, &domain.ValidationError{
			Message: p.Sprintf(msgValidationFailed),
			Fields:  fields,
		}
	}
	return domain.Request{
		StartupIdea:    values["startup_idea"],
		Description:    values["description"],
		AdditionalInfo: values["additional_info"],
	}, nil
}
