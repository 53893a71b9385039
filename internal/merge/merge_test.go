package merge

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/model"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	lastSpec llm.GenerationSpec
}

func (s *stubGenerator) Generate(_ context.Context, spec llm.GenerationSpec, out any) error {
	s.calls++
	s.lastSpec = spec
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.response), out)
}

func sampleExtractions() []model.PageExtractionResult {
	return []model.PageExtractionResult{
		{
			URL:   "https://example.co.jp/company/",
			Title: "会社概要",
			Extracted: model.ExtractedContent{
				Business:  []string{"ITサービスの提供"},
				Addresses: []model.AddressItem{{Description: "本社", Address: "東京都千代田区1-1-1"}},
			},
		},
		{
			URL:   "https://example.co.jp/services/",
			Title: "事業内容",
			Extracted: model.ExtractedContent{
				Business: []string{"クラウド基盤の構築支援"},
			},
		},
	}
}

func TestMerge_NoExtractionsSkipsGeneration(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{}
	m := NewMerger(gen, llm.ModelBalanced)

	out, err := m.Merge(context.Background(), "株式会社Example", "https://example.co.jp", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Zero(t, gen.calls, "no model call without evidence")

	assert.Equal(t, "株式会社Example", out.CompanyName)
	assert.Equal(t, "https://example.co.jp", out.CompanyURL)
	assert.NotNil(t, out.Address)
	assert.Empty(t, out.Address)
	assert.Empty(t, out.BusinessSummary.Detail)
	assert.NotNil(t, out.BusinessSummary.SourceUrls)
	assert.NotNil(t, out.ViewedSourceURLs)
	assert.Empty(t, out.ViewedSourceURLs)
}

func TestMerge_GenerationFailurePropagates(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: eris.New("model unavailable")}
	m := NewMerger(gen, llm.ModelBalanced)

	out, err := m.Merge(context.Background(), "株式会社Example", "https://example.co.jp", sampleExtractions(), nil)
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestMerge_ResolvesSlotsToURLs(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: `{
		"addresses": [
			{"description": "本社", "address": "東京都千代田区1-1-1", "source_slot": 1}
		],
		"business_summary": {
			"detail": "ITサービスを提供する[1]。クラウド基盤の構築も支援する[2]。",
			"citation_slots": [
				{"citation": "1", "source_slot": 1},
				{"citation": "2", "source_slot": 2}
			]
		}
	}`}
	m := NewMerger(gen, llm.ModelBalanced)

	out, err := m.Merge(context.Background(), "株式会社Example", "https://example.co.jp", sampleExtractions(), nil)
	require.NoError(t, err)

	require.Len(t, out.Address, 1)
	assert.Equal(t, "https://example.co.jp/company/", out.Address[0].SourceURL)

	assert.Equal(t, "ITサービスを提供する[1]。クラウド基盤の構築も支援する[2]。", out.BusinessSummary.Detail)
	assert.Equal(t, model.CitationMap{
		"1": "https://example.co.jp/company/",
		"2": "https://example.co.jp/services/",
	}, out.BusinessSummary.SourceUrls)

	assert.Equal(t, []string{
		"https://example.co.jp/company/",
		"https://example.co.jp/services/",
	}, out.ViewedSourceURLs)
}

func TestMerge_PromptUsesPathHintsNotURLs(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: `{"addresses": [], "business_summary": {"detail": "", "citation_slots": []}}`}
	m := NewMerger(gen, llm.ModelBalanced)

	_, err := m.Merge(context.Background(), "株式会社Example", "https://example.co.jp", sampleExtractions(), nil)
	require.NoError(t, err)

	assert.Contains(t, gen.lastSpec.Prompt, "/company/")
	assert.Contains(t, gen.lastSpec.Prompt, "## Slot 1")
	assert.Contains(t, gen.lastSpec.Prompt, "## Slot 2")
	assert.NotContains(t, gen.lastSpec.Prompt, "https://example.co.jp/company/")
}

func TestProcessAddresses_DropsUnknownSlots(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	result := processAddresses([]mergedAddress{
		{Description: "本社", Address: "東京都千代田区1-1-1", SourceSlot: 1},
		{Description: "支社", Address: "大阪府大阪市2-2-2", SourceSlot: 7},
	}, slotURL)

	require.Len(t, result, 1)
	assert.Equal(t, "本社", result[0].Description)
}

func TestProcessAddresses_DeduplicatesNormalizedVariants(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	result := processAddresses([]mergedAddress{
		{Description: "本社", Address: "東京都千代田区1-1-1", SourceSlot: 1},
		// Full-width digits, em dashes, surrounding whitespace: same address.
		{Description: "本社", Address: "東京都千代田区１—１—１", SourceSlot: 1},
		{Description: "本社", Address: " 東京都千代田区1-1-1 ", SourceSlot: 1},
	}, slotURL)

	require.Len(t, result, 1)
	// The first occurrence keeps its original, unnormalized text.
	assert.Equal(t, "東京都千代田区1-1-1", result[0].Address)
}

func TestProcessAddresses_SameTextDifferentSourceKept(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{
		1: "https://example.co.jp/company/",
		2: "https://example.co.jp/access/",
	}
	result := processAddresses([]mergedAddress{
		{Description: "本社", Address: "東京都千代田区1-1-1", SourceSlot: 1},
		{Description: "本社", Address: "東京都千代田区1-1-1", SourceSlot: 2},
	}, slotURL)

	assert.Len(t, result, 2)
}

func TestProcessAddresses_HeadquartersFirstStable(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	result := processAddresses([]mergedAddress{
		{Description: "大阪支社", Address: "大阪府大阪市2-2-2", SourceSlot: 1},
		{Description: "名古屋営業所", Address: "愛知県名古屋市3-3-3", SourceSlot: 1},
		{Description: "東京本社", Address: "東京都千代田区1-1-1", SourceSlot: 1},
	}, slotURL)

	require.Len(t, result, 3)
	assert.Equal(t, "東京本社", result[0].Description)
	// Non-headquarters entries keep their input order.
	assert.Equal(t, "大阪支社", result[1].Description)
	assert.Equal(t, "名古屋営業所", result[2].Description)
}

func TestProcessAddresses_CapsAtFive(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	var input []mergedAddress
	for _, city := range []string{"東京", "大阪", "名古屋", "福岡", "札幌", "仙台", "広島"} {
		input = append(input, mergedAddress{Description: city + "営業所", Address: city + "市1-1-1", SourceSlot: 1})
	}

	result := processAddresses(input, slotURL)
	assert.Len(t, result, maxAddresses)
}

func TestProcessSummary_StripsInvalidCitations(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	got := processSummary(mergeSummary{
		Detail: "A[1]B[2]C",
		CitationSlots: []citationSlot{
			{Citation: "1", SourceSlot: 1},
			{Citation: "2", SourceSlot: 9}, // unknown slot
		},
	}, slotURL)

	assert.Equal(t, "A[1]BC", got.Detail)
	assert.Equal(t, model.CitationMap{"1": "https://example.co.jp/company/"}, got.SourceUrls)
}

func TestProcessSummary_NoCitationsInTextEmptiesSummary(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	got := processSummary(mergeSummary{
		Detail:        "引用のない要約テキスト。",
		CitationSlots: []citationSlot{{Citation: "1", SourceSlot: 1}},
	}, slotURL)

	assert.Empty(t, got.Detail)
	assert.NotNil(t, got.SourceUrls)
	assert.Empty(t, got.SourceUrls)
}

func TestProcessSummary_NoResolvableCitationsEmptiesSummary(t *testing.T) {
	t.Parallel()

	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	got := processSummary(mergeSummary{
		Detail:        "事実[3]に基づく要約。",
		CitationSlots: []citationSlot{{Citation: "3", SourceSlot: 9}},
	}, slotURL)

	assert.Empty(t, got.Detail)
	assert.Empty(t, got.SourceUrls)
}

func TestProcessSummary_UnmappedCitationMarkerDropped(t *testing.T) {
	t.Parallel()

	// [2] appears in the text but has no citation_slots entry at all.
	slotURL := map[int]string{1: "https://example.co.jp/company/"}
	got := processSummary(mergeSummary{
		Detail:        "事実A [1] と事実B [2] について。",
		CitationSlots: []citationSlot{{Citation: "1", SourceSlot: 1}},
	}, slotURL)

	assert.Equal(t, "事実A [1] と事実B について。", got.Detail)
	assert.Equal(t, model.CitationMap{"1": "https://example.co.jp/company/"}, got.SourceUrls)
}

func TestPathHint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/company/profile/", pathHint("https://example.co.jp/company/profile/"))
	assert.Equal(t, "/", pathHint("https://example.co.jp"))
	assert.Equal(t, "/", pathHint("%%%"))
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full-width digits", "１−２−３", "1-2-3"},
		{"dash variants", "1‐2–3—4", "1-2-3-4"},
		{"whitespace collapse", "  東京都  千代田区\t1-1-1 ", "東京都 千代田区 1-1-1"},
		{"full-width ascii", "ＡＢＣ", "ABC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}
