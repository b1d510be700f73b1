package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/garyjia/hospital-itsm/internal/domain/entity"
	"gopkg.in/yaml.v3"
)

// WorkflowFile is the document read by the seed command
type WorkflowFile struct {
	Workflows []WorkflowDef `yaml:"workflows"`
}

// WorkflowDef describes one workflow and its steps
type WorkflowDef struct {
	Name        string    `yaml:"name"`
	Type        string    `yaml:"type"`
	Description string    `yaml:"description"`
	Active      *bool     `yaml:"active"`
	Steps       []StepDef `yaml:"steps"`
}

// StepDef describes one workflow step. Order defaults to the position in the list.
type StepDef struct {
	Order        int    `yaml:"order"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	RequiredRole string `yaml:"required_role"`
	Action       string `yaml:"action"`
	AutoProgress bool   `yaml:"auto_progress"`
}

// LoadWorkflows reads workflow definitions from a YAML file
func LoadWorkflows(path string) ([]*entity.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflows file: %w", err)
	}
	return ParseWorkflows(bytes.NewReader(data))
}

// ParseWorkflows decodes definitions, rejecting unknown keys. Step contiguity
// is checked later by the workflow service.
func ParseWorkflows(r io.Reader) ([]*entity.Workflow, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file WorkflowFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to unmarshal workflows: %w", err)
	}

	workflows := make([]*entity.Workflow, 0, len(file.Workflows))
	for i, def := range file.Workflows {
		if def.Name == "" {
			return nil, fmt.Errorf("workflow #%d has no name", i+1)
		}
		wf := &entity.Workflow{
			Name:        def.Name,
			Type:        def.Type,
			Description: def.Description,
			IsActive:    def.Active == nil || *def.Active,
		}
		for j, s := range def.Steps {
			order := s.Order
			if order == 0 {
				order = j + 1
			}
			wf.Steps = append(wf.Steps, &entity.WorkflowStep{
				StepOrder:    order,
				Name:         s.Name,
				Description:  s.Description,
				RequiredRole: s.RequiredRole,
				Action:       s.Action,
				AutoProgress: s.AutoProgress,
			})
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}
