// Package workflow is a step service that lets one workflow start and
// observe other workflows, so a definition can fan out into sub-runs.
package workflow

import (
	"reflect"
	"strings"

	"github.com/jobflowhq/jobflow/model/types"
	daoworkflow "github.com/jobflowhq/jobflow/service/dao/workflow"
	"github.com/jobflowhq/jobflow/service/workflow"
)

const name = "workflow"

// Service exposes run control as step methods.
type Service struct {
	manager     *workflow.Service
	definitions *daoworkflow.Service
}

// New creates a workflow control service.
func New(manager *workflow.Service, definitions *daoworkflow.Service) *Service {
	return &Service{
		manager:     manager,
		definitions: definitions,
	}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "start",
			Description: "Starts a run of a named workflow definition and returns its id and state.",
			Input:       reflect.TypeOf(&StartInput{}),
			Output:      reflect.TypeOf(&StartOutput{}),
		},
		{
			Name:        "status",
			Description: "Retrieves the current state of a run based on its id.",
			Input:       reflect.TypeOf(&StatusInput{}),
			Output:      reflect.TypeOf(&StatusOutput{}),
		},
		{
			Name:        "wait",
			Description: "Polls a run until it finishes or suspends at a gate, or the timeout elapses.",
			Input:       reflect.TypeOf(&WaitInput{}),
			Output:      reflect.TypeOf(&WaitOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "start":
		return s.start, nil
	case "status":
		return s.status, nil
	case "wait":
		return s.wait, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}
