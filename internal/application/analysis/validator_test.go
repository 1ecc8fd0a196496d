package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	domain "github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

const (
	okIdea        = "Subscription meal kits for students"
	okDescription = "Weekly boxes of affordable groceries with recipes, delivered to dorms in large cities."
)

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	return ve.Fields
}

func TestValidate_OK(t *testing.T) {
	req, err := Validate(map[string]any{
		"startup_idea":    "  " + okIdea + "  ",
		"description":     okDescription,
		"additional_info": "   ",
	}, language.English)
	require.NoError(t, err)
	assert.Equal(t, okIdea, req.StartupIdea)
	assert.Equal(t, okDescription, req.Description)
	assert.Empty(t, req.AdditionalInfo)
}

func TestValidate_StartupIdeaLength(t *testing.T) {
	tests := []struct {
		name    string
		idea    string
		wantErr bool
	}{
		{"9 chars", strings.Repeat("a", 9), true},
		{"10 chars", strings.Repeat("a", 10), false},
		{"1000 chars", strings.Repeat("a", 1000), false},
		{"1001 chars", strings.Repeat("a", 1001), true},
		{"cyrillic counts runes", strings.Repeat("я", 10), false},
		{"padding does not count", "   short   ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(map[string]any{"startup_idea": tt.idea, "description": okDescription}, language.English)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			fields := validationFields(t, err)
			assert.Contains(t, fields, "startup_idea")
			assert.NotContains(t, fields, "description")
		})
	}
}

func TestValidate_Messages(t *testing.T) {
	_, err := Validate(map[string]any{"startup_idea": "too short"}, language.English)
	fields := validationFields(t, err)
	assert.Equal(t, []string{"startup_idea must be at least 10 characters"}, fields["startup_idea"])
	assert.Equal(t, []string{"description is required"}, fields["description"])

	_, err = Validate(map[string]any{"startup_idea": "too short"}, language.Russian)
	fields = validationFields(t, err)
	assert.Equal(t, []string{"Поле startup_idea должно содержать не менее 10 символов"}, fields["startup_idea"])
	assert.Equal(t, []string{"Поле description обязательно"}, fields["description"])
}

func TestValidate_Charset(t *testing.T) {
	for _, bad := range []string{"<", ";", "@", "{", "}", ">", "&", "#", "`"} {
		t.Run(bad, func(t *testing.T) {
			_, err := Validate(map[string]any{
				"startup_idea": "Great idea " + bad + " here",
				"description":  okDescription,
			}, language.English)
			fields := validationFields(t, err)
			assert.Equal(t, []string{"startup_idea contains disallowed characters"}, fields["startup_idea"])
		})
	}

	_, err := Validate(map[string]any{
		"startup_idea":    `Идея: "сервис" 100% (B2B) - $5/€5/₽5 + ещё!`,
		"description":     okDescription,
		"additional_info": "Ёлки, палки? Yes.",
	}, language.English)
	assert.NoError(t, err)
}

func TestValidate_AdditionalInfo(t *testing.T) {
	_, err := Validate(map[string]any{
		"startup_idea":    okIdea,
		"description":     okDescription,
		"additional_info": strings.Repeat("x", 501),
	}, language.English)
	fields := validationFields(t, err)
	assert.Len(t, fields, 1)
	assert.Contains(t, fields, "additional_info")
}

func TestValidate_WrongType(t *testing.T) {
	_, err := Validate(map[string]any{"startup_idea": 42.0, "description": okDescription}, language.English)
	fields := validationFields(t, err)
	assert.Equal(t, []string{"startup_idea must be a string"}, fields["startup_idea"])
}

func TestCheckSize(t *testing.T) {
	assert.NoError(t, CheckSize(domain.MaxBodyBytes))
	assert.ErrorIs(t, CheckSize(domain.MaxBodyBytes+1), domain.ErrRequestTooLarge)
}

func TestDecodeRaw(t *testing.T) {
	_, err := DecodeRaw([]byte(`{"startup_idea":"x"}`))
	assert.NoError(t, err)

	for _, body := range []string{``, `null`, `[]`, `"x"`, `{"a":1} {"b":2}`, `{`, `{"startup_idea":"x"}}garbage`, `{"startup_idea":"x"}]`} {
		_, err := DecodeRaw([]byte(body))
		assert.ErrorIs(t, err, domain.ErrMalformedRequest, body)
	}
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.English, MatchLanguage(""))
	assert.Equal(t, language.English, MatchLanguage("de-DE"))
	assert.Equal(t, language.Russian, MatchLanguage("ru-RU,ru;q=0.9,en;q=0.8"))
	assert.Equal(t, language.English, MatchLanguage("en-US,ru;q=0.5"))
	assert.Equal(t, language.English, MatchLanguage("%%%"))
}
