package generation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func safetyErr() error {
	return &UpstreamError{StatusCode: 400, Message: "blocked: SAFETY"}
}

func transientErr(code int) error {
	return &UpstreamError{StatusCode: code, Message: "try later"}
}

// A safety rejection softens the style to illustration and succeeds without
// consuming a second quota slot.
func TestGenerate_SafetyFallbackToIllustration(t *testing.T) {
	f := newFixture()
	f.generator.errs = []error{safetyErr()}

	result, err := f.orch.Generate(context.Background(), uuid.New(), "lion", "grand hotel lobby")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AssetURL)

	assert.Equal(t, 2, f.generator.calls)
	assert.Equal(t, 1, f.quota.reserves)
	assert.Equal(t, 1, f.quota.confirms)

	// Second attempt carries the softened style.
	assert.Contains(t, f.generator.prompts[1], styleDescriptions[StyleIllustration])

	require.Len(t, f.catalog.entries, 1)
	assert.Equal(t, StyleIllustration, f.catalog.entries[0].Style)
}

func TestGenerate_SafetyTwiceSurfacesContentPolicy(t *testing.T) {
	f := newFixture()
	f.generator.errs = []error{safetyErr(), safetyErr()}

	_, err := f.orch.Generate(context.Background(), uuid.New(), "lion", "grand hotel lobby")

	var cperr *ContentPolicyError
	require.ErrorAs(t, err, &cperr)
	assert.Equal(t, 2, f.generator.calls)
	assert.Equal(t, 1, f.quota.releases)
}

func TestGenerate_TransientBackoffThenSuccess(t *testing.T) {
	f := newFixture()
	f.generator.errs = []error{transientErr(429), transientErr(503)}

	_, err := f.orch.Generate(context.Background(), uuid.New(), "hippo", "antique radio shop")
	require.NoError(t, err)

	assert.Equal(t, 3, f.generator.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, f.slept)
	assert.Equal(t, 1, f.quota.confirms)
}

func TestGenerate_TransientBudgetExhausted(t *testing.T) {
	f := newFixture()
	f.generator.errs = []error{transientErr(429), transientErr(429), transientErr(429)}

	_, err := f.orch.Generate(context.Background(), uuid.New(), "hippo", "antique radio shop")

	var terr *TransientUpstreamError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, f.generator.calls)
	assert.Len(t, f.slept, 2)
	assert.Equal(t, 1, f.quota.releases)
}

// Safety fallback resets the transient budget: two transient failures, then a
// safety rejection, then two more transient failures before success is still
// within budget.
func TestGenerate_SafetyResetResetsTransientBudget(t *testing.T) {
	f := newFixture()
	f.generator.errs = []error{
		transientErr(429), transientErr(503),
		safetyErr(),
		transientErr(504), transientErr(429),
	}

	_, err := f.orch.Generate(context.Background(), uuid.New(), "bear", "park bench in snow")
	require.NoError(t, err)

	assert.Equal(t, 6, f.generator.calls)
	// Backoff restarted at 2s after the style switch.
	assert.Equal(t, []time.Duration{
		2 * time.Second, 4 * time.Second,
		2 * time.Second, 4 * time.Second,
	}, f.slept)
}

func TestGenerate_OtherUpstreamErrorSurfacesImmediately(t *testing.T) {
	f := newFixture()
	f.generator.errs = []error{&UpstreamError{StatusCode: 500, Message: "internal"}}

	_, err := f.orch.Generate(context.Background(), uuid.New(), "bear", "park bench in snow")
	require.Error(t, err)

	assert.Equal(t, 1, f.generator.calls)
	assert.Empty(t, f.slept)
	assert.Equal(t, 1, f.quota.releases)
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want errClass
	}{
		{"429", transientErr(429), classTransient},
		{"503", transientErr(503), classTransient},
		{"504", transientErr(504), classTransient},
		{"econnreset text", &UpstreamError{StatusCode: 0, Message: "read tcp: ECONNRESET"}, classTransient},
		{"etimedout text", &UpstreamError{StatusCode: 0, Message: "dial: ETIMEDOUT"}, classTransient},
		{"safety", safetyErr(), classSafety},
		{"content policy", &UpstreamError{StatusCode: 400, Message: "CONTENT_POLICY violation"}, classSafety},
		{"plain 500", &UpstreamError{StatusCode: 500, Message: "internal"}, classOther},
		{"unrelated", assert.AnError, classOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyError(tc.err))
		})
	}
}

func TestComposePrompt_IncludesStyle(t *testing.T) {
	p := composePrompt("bear", "a scene", "claymation")
	assert.True(t, strings.Contains(p, styleDescriptions["claymation"]))
	assert.True(t, strings.Contains(p, "brown bear"))
}
