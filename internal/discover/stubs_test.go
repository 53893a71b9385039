package discover

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/pkg/jina"
)

// stubReader serves canned pages by URL.
type stubReader struct {
	pages map[string]*jina.ReadResponse
	calls []string
}

func (s *stubReader) Read(_ context.Context, targetURL string) (*jina.ReadResponse, error) {
	s.calls = append(s.calls, targetURL)
	page, ok := s.pages[targetURL]
	if !ok {
		return nil, eris.Errorf("no page for %s", targetURL)
	}
	return page, nil
}

// stubGenerator answers each generation by name with canned JSON, recording
// the specs it saw.
type stubGenerator struct {
	responses map[string]string
	errs      map[string]error
	specs     []llm.GenerationSpec
}

func (s *stubGenerator) Generate(_ context.Context, spec llm.GenerationSpec, out any) error {
	s.specs = append(s.specs, spec)
	if err, ok := s.errs[spec.Name]; ok {
		return err
	}
	resp, ok := s.responses[spec.Name]
	if !ok {
		return eris.Errorf("no stub response for %s", spec.Name)
	}
	return json.Unmarshal([]byte(resp), out)
}

func makePage(url, title, content string, links map[string]string) *jina.ReadResponse {
	return &jina.ReadResponse{
		Code: 200,
		Data: jina.ReadData{
			Title:   title,
			URL:     url,
			Content: content,
			Links:   links,
		},
	}
}
