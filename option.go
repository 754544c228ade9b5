package jobflow

import (
	"github.com/viant/x"

	"github.com/jobflowhq/jobflow/model/types"
	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/approval/gate"
	"github.com/jobflowhq/jobflow/service/dao"
	"github.com/jobflowhq/jobflow/service/executor"
	"github.com/jobflowhq/jobflow/service/messaging"
	"github.com/jobflowhq/jobflow/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithExtensionTypes sets the extension types
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) {
		s.extensionTypes = types
	}
}

// WithExtensionServices sets the extension services
func WithExtensionServices(services ...types.Service) Option {
	return func(s *Service) {
		s.extensionServices = services
	}
}

// WithRequestDAO sets the approval request store.
func WithRequestDAO(dao dao.Atomic[string, approval.Request]) Option {
	return func(s *Service) {
		s.requestDAO = dao
	}
}

// WithRunDAO sets the run store.
func WithRunDAO(dao dao.Atomic[string, run.Run]) Option {
	return func(s *Service) {
		s.runDAO = dao
	}
}

// WithDefinitionsBaseURL sets the location workflow definitions are loaded
// from.
func WithDefinitionsBaseURL(URL string) Option {
	return func(s *Service) {
		s.definitionsURL = URL
	}
}

// WithDocumentsBaseURL sets the location the document step service stores
// artifacts under.
func WithDocumentsBaseURL(URL string) Option {
	return func(s *Service) {
		s.documentsURL = URL
	}
}

// WithApprovalQueue replaces the approval lifecycle event queue.
func WithApprovalQueue(queue messaging.Queue[approval.Event]) Option {
	return func(s *Service) {
		s.gateOptions = append(s.gateOptions, gate.WithQueue(queue))
	}
}

// WithGateListeners attaches terminal-transition listeners to the gate.
func WithGateListeners(listeners ...gate.Listener) Option {
	return func(s *Service) {
		s.gateOptions = append(s.gateOptions, gate.WithListener(listeners...))
	}
}

// WithHandler registers a deferred-action handler for standalone approval
// requests of the given kind.
func WithHandler(kind approval.ActionKind, handler approval.Handler) Option {
	return func(s *Service) {
		s.registry.Register(kind, handler)
	}
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.NewService (e.g. attaching a listener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) {
		s.executorOptions = append(s.executorOptions, opts...)
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter is used; otherwise traces are written to the
// supplied file path. The function is safe to call multiple times – the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}
