package main

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/workflow"
	"github.com/sells-group/company-detail-cli/pkg/anthropic"
	"github.com/sells-group/company-detail-cli/pkg/jina"
)

// buildWorkflow validates configuration and wires the workflow's
// collaborators. Missing API keys are fatal here, before any fetch runs.
func buildWorkflow() (*workflow.Workflow, error) {
	if err := validateAPIKeys(); err != nil {
		return nil, err
	}

	models, err := parseModels()
	if err != nil {
		return nil, err
	}

	reader := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
	gen := llm.NewGenerator(anthropic.NewClient(cfg.Anthropic.Key))

	return workflow.New(reader, gen, models), nil
}

// validateAPIKeys checks that required API keys are configured.
func validateAPIKeys() error {
	var missing []string

	if cfg.Jina.Key == "" {
		missing = append(missing, "DETAIL_JINA_KEY (required: page reader)")
	}
	if cfg.Anthropic.Key == "" {
		missing = append(missing, "DETAIL_ANTHROPIC_KEY (required: generation)")
	}

	if len(missing) > 0 {
		return eris.Errorf("missing required API keys:\n  %s", strings.Join(missing, "\n  "))
	}
	return nil
}

// parseModels resolves the configured per-stage model names.
func parseModels() (workflow.Models, error) {
	discoverModel, err := llm.ParseModel(cfg.Workflow.DiscoverModel)
	if err != nil {
		return workflow.Models{}, eris.Wrap(err, "workflow.discover_model")
	}
	extractModel, err := llm.ParseModel(cfg.Workflow.ExtractModel)
	if err != nil {
		return workflow.Models{}, eris.Wrap(err, "workflow.extract_model")
	}
	mergeModel, err := llm.ParseModel(cfg.Workflow.MergeModel)
	if err != nil {
		return workflow.Models{}, eris.Wrap(err, "workflow.merge_model")
	}

	return workflow.Models{
		Discover: discoverModel,
		Extract:  extractModel,
		Merge:    mergeModel,
	}, nil
}
