package jobflow

import (
	"github.com/viant/x"

	"github.com/jobflowhq/jobflow/extension"
	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/action/document"
	"github.com/jobflowhq/jobflow/service/action/nop"
	"github.com/jobflowhq/jobflow/service/action/printer"
	aworkflow "github.com/jobflowhq/jobflow/service/action/workflow"
	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/approval/gate"
	"github.com/jobflowhq/jobflow/service/dao"
	reqmemory "github.com/jobflowhq/jobflow/service/dao/request/memory"
	runmemory "github.com/jobflowhq/jobflow/service/dao/run/memory"
	daoworkflow "github.com/jobflowhq/jobflow/service/dao/workflow"
	"github.com/jobflowhq/jobflow/service/executor"
	"github.com/jobflowhq/jobflow/service/workflow"
)

// Service is the engine façade wiring stores, the approval gate, the step
// executor and the workflow manager together.
type Service struct {
	config            *Config
	actions           *extension.Actions
	extensionTypes    []*x.Type
	extensionServices []types.Service
	executorOptions   []executor.Option
	gateOptions       []gate.Option

	executor    executor.Service
	registry    *approval.Registry
	approvals   *gate.Service
	manager     *workflow.Service
	requestDAO  dao.Atomic[string, approval.Request]
	runDAO      dao.Atomic[string, run.Run]
	workflowDAO *daoworkflow.Service

	definitionsURL string
	documentsURL   string

	runtime *Runtime
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.actions = extension.NewActions(s.extensionTypes...)
	executorOptions := s.executorOptions
	if s.config.Executor.StepTimeout > 0 {
		executorOptions = append([]executor.Option{executor.WithTimeout(s.config.Executor.StepTimeout)}, executorOptions...)
	}
	s.executor = executor.NewService(s.actions, executorOptions...)

	s.approvals = gate.New(s.requestDAO, s.registry, s.gateOptions...)
	s.manager = workflow.New(s.executor, s.approvals, s.registry, s.runDAO)
	s.approvals.AddListener(s.manager.OnDecision)

	s.actions.Register(nop.New())
	s.actions.Register(printer.New())
	s.actions.Register(document.New(s.documentsURL))
	s.actions.Register(aworkflow.New(s.manager, s.workflowDAO))
	for _, service := range s.extensionServices {
		s.actions.Register(service)
	}
	s.runtime = newRuntime(s)
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.definitionsURL == "" {
		s.definitionsURL = "workflows"
	}
	if s.documentsURL == "" {
		s.documentsURL = "documents"
	}
	if s.requestDAO == nil {
		s.requestDAO = reqmemory.New()
	}
	if s.runDAO == nil {
		s.runDAO = runmemory.New()
	}
	if s.workflowDAO == nil {
		s.workflowDAO = daoworkflow.New(s.definitionsURL)
	}
}

// Approvals exposes the approval gate.
func (s *Service) Approvals() approval.Service {
	return s.approvals
}

// Manager exposes the workflow manager.
func (s *Service) Manager() *workflow.Service {
	return s.manager
}

// Definitions exposes the workflow definition DAO.
func (s *Service) Definitions() *daoworkflow.Service {
	return s.workflowDAO
}

// Actions exposes the step-service registry.
func (s *Service) Actions() *extension.Actions {
	return s.actions
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Runtime returns the runtime façade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// RegisterExtensionTypes adds data types to the shared registry.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.actions.Types().Register(types[i])
	}
}

// RegisterExtensionServices adds step services.
func (s *Service) RegisterExtensionServices(services ...types.Service) {
	for i := range services {
		s.actions.Register(services[i])
	}
}

// RegisterHandler registers a deferred-action handler for standalone
// approval requests of the given kind.
func (s *Service) RegisterHandler(kind approval.ActionKind, handler approval.Handler) {
	s.registry.Register(kind, handler)
}

// New creates an engine service.
func New(options ...Option) *Service {
	ret := &Service{registry: approval.NewRegistry()}
	ret.init(options)
	return ret
}
