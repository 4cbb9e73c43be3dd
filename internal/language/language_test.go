package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongngoctrac/claims-search/internal/domain"
	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
	"github.com/truongngoctrac/claims-search/internal/domain/query"
)

func testConfigs(t *testing.T) []domlang.Config {
	t.Helper()
	var configs []domlang.Config
	for _, code := range []string{Vietnamese, English, French} {
		cfg, err := domlang.NewConfig(code, "", nil, "", false)
		require.NoError(t, err)
		configs = append(configs, cfg)
	}
	return configs
}

func testTranslator(t *testing.T) *Translator {
	t.Helper()
	viEN, err := domlang.NewMapping(Vietnamese, English, map[string]string{
		"bảo hiểm":  "insurance",
		"viêm phổi": "pneumonia",
		"bệnh viện": "hospital",
	})
	require.NoError(t, err)
	enVI, err := domlang.NewMapping(English, Vietnamese, map[string]string{
		"insurance": "bảo hiểm",
		"hospital":  "bệnh viện",
	})
	require.NoError(t, err)
	return NewTranslator([]domlang.Mapping{viEN, enVI})
}

func TestDetectEnglish(t *testing.T) {
	d := NewDetector()
	got := d.Detect("health insurance claim status")
	assert.Equal(t, English, got.Language)
	assert.Greater(t, got.Confidence, 0.9)
	assert.Empty(t, got.Alternatives)
}

func TestDetectVietnamese(t *testing.T) {
	d := NewDetector()
	got := d.Detect("bảo hiểm y tế viêm phổi")
	assert.Equal(t, Vietnamese, got.Language)
	assert.Greater(t, got.Confidence, 0.5)
}

func TestDetectCJKScripts(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, Chinese, d.Detect("保险理赔").Language)
	assert.Equal(t, Japanese, d.Detect("ほけんのクレーム").Language)
	assert.Equal(t, Korean, d.Detect("보험 청구").Language)
	assert.Equal(t, Thai, d.Detect("การประกันภัย").Language)
}

func TestDetectEmptyText(t *testing.T) {
	d := NewDetector()
	got := d.Detect("12345 !!!")
	assert.Equal(t, English, got.Language)
	assert.Zero(t, got.Confidence)
}

func TestDetectMixedScriptReportsAlternatives(t *testing.T) {
	d := NewDetector()
	// Vietnamese diacritics mixed with plain English words.
	got := d.Detect("bảo hiểm health insurance")
	require.NotEmpty(t, got.Alternatives)
	assert.LessOrEqual(t, len(got.Alternatives), 3)
	for _, alt := range got.Alternatives {
		assert.NotEqual(t, got.Language, alt.Code)
		assert.LessOrEqual(t, alt.Confidence, 1.0)
	}
}

func TestDetectIsDeterministicAndCached(t *testing.T) {
	d := NewDetector()
	first := d.Detect("bảo hiểm y tế")
	second := d.Detect("bảo hiểm y tế")
	assert.Equal(t, first, second)
}

func TestTranslateWholeWordCaseInsensitive(t *testing.T) {
	tr := testTranslator(t)

	got := tr.Translate("Hospital Insurance", English, Vietnamese)
	assert.Equal(t, "bệnh viện bảo hiểm", got)
}

func TestTranslateUnknownWordsPassThrough(t *testing.T) {
	tr := testTranslator(t)

	got := tr.Translate("insurance paperwork backlog", English, Vietnamese)
	assert.Equal(t, "bảo hiểm paperwork backlog", got)
}

func TestTranslateMissingPairReturnsInput(t *testing.T) {
	tr := testTranslator(t)
	assert.Equal(t, "hola", tr.Translate("hola", Spanish, English))
	assert.Equal(t, "same", tr.Translate("same", English, English))
}

func TestTranslatePhrasesMatchLongestFirst(t *testing.T) {
	tr := testTranslator(t)
	got := tr.Translate("bảo hiểm viêm phổi", Vietnamese, English)
	assert.Equal(t, "insurance pneumonia", got)
}

func TestExpandSingleLanguage(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")

	res, err := c.Expand(Request{Text: "insurance claim", SourceLanguage: English, NativeBoost: true})
	require.NoError(t, err)

	assert.Equal(t, []string{English}, res.Searched)
	assert.Equal(t, "insurance claim", res.Translations[English])

	boolClause := res.Query["bool"].(query.Tree)
	should := boolClause["should"].([]any)
	require.Len(t, should, 3)
	assert.Equal(t, 1, boolClause["minimum_should_match"])

	// Native boost applies to every strategy of the source language.
	first := should[0].(query.Tree)["multi_match"].(query.Tree)
	assert.InDelta(t, 2.0, first["boost"].(float64), 1e-9)
}

func TestExpandCrossLanguageCoversSourceAndTargets(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")
	req := Request{
		Text:           "insurance claim",
		SourceLanguage: English,
		CrossLanguage:  true,
		NativeBoost:    true,
	}

	// The language scope is stable across identical calls.
	for i := 0; i < 2; i++ {
		res, err := c.Expand(req)
		require.NoError(t, err)
		assert.Equal(t, []string{English, French, Vietnamese}, res.Searched)
		// 3 strategies per language.
		should := res.Query["bool"].(query.Tree)["should"].([]any)
		assert.Len(t, should, 9)
		assert.Equal(t, "bảo hiểm claim", res.Translations[Vietnamese])
		// No fr dictionary: text passes through untranslated.
		assert.Equal(t, "insurance claim", res.Translations[French])
	}
}

func TestExpandFanoutBoostDiscountsTargets(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")

	res, err := c.Expand(Request{
		Text:            "insurance",
		SourceLanguage:  English,
		CrossLanguage:   true,
		TargetLanguages: []string{Vietnamese},
		NativeBoost:     true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{English, Vietnamese}, res.Searched)

	should := res.Query["bool"].(query.Tree)["should"].([]any)
	require.Len(t, should, 6)

	strategies := map[string]float64{}
	for _, clause := range should[3:] { // Vietnamese sub-queries
		mm := clause.(query.Tree)["multi_match"].(query.Tree)
		strategies[mm["type"].(string)] = mm["boost"].(float64)
	}
	assert.InDelta(t, 0.8, strategies["best_fields"], 1e-9)
	assert.InDelta(t, 0.8*1.5, strategies["phrase"], 1e-9)
	assert.InDelta(t, 0.8*0.8, strategies["phrase_prefix"], 1e-9)
}

func TestExpandAutoDetectsSource(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")

	res, err := c.Expand(Request{Text: "bảo hiểm y tế"})
	require.NoError(t, err)
	assert.Equal(t, Vietnamese, res.Detected.Language)
	assert.Equal(t, []string{Vietnamese}, res.Searched)
}

func TestExpandUnknownLanguage(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")

	_, err := c.Expand(Request{Text: "anything", SourceLanguage: "xx"})
	assert.ErrorIs(t, err, domain.ErrUnknownLanguage)

	_, err = c.Expand(Request{Text: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTranslateAPISurface(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")

	got, err := c.Translate("insurance", English, Vietnamese)
	require.NoError(t, err)
	assert.Equal(t, "bảo hiểm", got)

	_, err = c.Translate("insurance", English, "xx")
	assert.ErrorIs(t, err, domain.ErrUnknownLanguage)

	_, err = c.Translate("", English, Vietnamese)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDetectLanguageValidation(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")
	_, err := c.DetectLanguage("")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExpandDetectedUnconfiguredFallsBack(t *testing.T) {
	c := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), Vietnamese)

	// Thai is detectable but not configured: the query still expands,
	// scoped to the fallback language.
	res, err := c.Expand(Request{Text: "การประกันภัย"})
	require.NoError(t, err)
	assert.Equal(t, Thai, res.Detected.Language)
	assert.Equal(t, []string{Vietnamese}, res.Searched)

	// An explicitly requested unknown language still fails.
	_, err = c.Expand(Request{Text: "การประกันภัย", SourceLanguage: Thai})
	assert.ErrorIs(t, err, domain.ErrUnknownLanguage)

	// Without a fallback the detected language must be configured.
	bare := NewCoordinator(NewDetector(), testTranslator(t), testConfigs(t), "")
	_, err = bare.Expand(Request{Text: "การประกันภัย"})
	assert.ErrorIs(t, err, domain.ErrUnknownLanguage)
}
