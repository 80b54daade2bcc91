package normalize_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/recruit/internal/apperr"
	"github.com/garnizeh/recruit/internal/normalize"
	"github.com/garnizeh/recruit/pkg/models"
)

func TestPhone(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "917-555-1234", want: "9175551234"},
		{raw: "+1 (212) 555-6789", want: "12125556789"},
		{raw: "  0171 2345678 ", want: "01712345678"},
		{raw: "9175551234", want: "9175551234"},
		{raw: "12-34", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "phone: n/a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := normalize.Phone(tt.raw, 7)
			if tt.wantErr {
				var ve *apperr.ValidationError
				require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhone_Idempotent(t *testing.T) {
	for _, raw := range []string{"917-555-1234", "+44 20 7946 0958", "(02) 9374-4000", "1234567"} {
		once, err := normalize.Phone(raw, 7)
		require.NoError(t, err)
		twice, err := normalize.Phone(once, 7)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalizing %q twice changed the value", raw)
	}
}

func TestPhone_DefaultMinimum(t *testing.T) {
	_, err := normalize.Phone("123456", 0)
	require.Error(t, err)

	got, err := normalize.Phone("1234567", 0)
	require.NoError(t, err)
	assert.Equal(t, "1234567", got)
}

func TestEmail(t *testing.T) {
	got, err := normalize.Email("  John.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", got)

	for _, bad := range []string{"", "   ", "nan", "a@", "@b.c", "a@@b.c", "a b@c.d"} {
		_, err := normalize.Email(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestExperience(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	got := normalize.Experience("TechWave Solutions: Software Engineer; SparkTech - Intern | garbage entry\nTechLab: Full Stack Engineer", logger)
	assert.Equal(t, []models.ExperienceEntry{
		{Institute: "TechWave Solutions", Position: "Software Engineer"},
		{Institute: "SparkTech", Position: "Intern"},
		{Institute: "TechLab", Position: "Full Stack Engineer"},
	}, got)
	assert.Contains(t, logs.String(), "garbage entry")
}

func TestExperience_EmptyAndMalformed(t *testing.T) {
	assert.Equal(t, []models.ExperienceEntry{}, normalize.Experience("", nil))
	assert.Equal(t, []models.ExperienceEntry{}, normalize.Experience("   ", nil))
	assert.Equal(t, []models.ExperienceEntry{}, normalize.Experience(": no institute; only text;;", nil))
}

func TestExperience_RepeatedInstituteKeepsFirst(t *testing.T) {
	got := normalize.Experience("Acme: Dev; acme: Lead", nil)
	assert.Equal(t, []models.ExperienceEntry{{Institute: "Acme", Position: "Dev"}}, got)
}

func TestMergeExperience(t *testing.T) {
	base := []models.ExperienceEntry{{Institute: "Acme", Position: "Dev"}}
	extra := []models.ExperienceEntry{{Institute: "ACME", Position: "Lead"}, {Institute: "Globex", Position: "QA"}}
	got := normalize.MergeExperience(base, extra)
	assert.Equal(t, []models.ExperienceEntry{
		{Institute: "Acme", Position: "Dev"},
		{Institute: "Globex", Position: "QA"},
	}, got)
}
