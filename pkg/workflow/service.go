package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/deverp-client/pkg/client"
)

// User-facing messages.
const (
	msgActionDone     = "Action completed successfully"
	msgActionFailed   = "Error performing action"
	msgActionNetwork  = "An error occurred while performing the action"
	msgDetailsFailed  = "Error loading request details"
	msgDetailsNetwork = "An error occurred while loading request details"
	msgCreateDone     = "Request submitted successfully"
	msgCreateFailed   = "Error submitting request"
	msgCreateNetwork  = "An error occurred while submitting the request"
)

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "deverp_workflow_actions_total",
	Help: "Workflow actions by action and result",
}, []string{"action", "result"})

// Backend is the subset of client.Client the service uses.
type Backend interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	SendJSON(ctx context.Context, method, path string, body any, out any) error
}

var _ Backend = (*client.Client)(nil)

// Notifier receives the messages shown to the user.
type Notifier interface {
	Success(message string)
	Danger(message string)
}

// Result is the backend's answer to a mutation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

// Service performs workflow operations and reports their outcome.
type Service struct {
	backend  Backend
	notifier Notifier
	logger   zerolog.Logger
}

// NewService creates a Service. A nil notifier discards messages.
func NewService(backend Backend, notifier Notifier) *Service {
	if notifier == nil {
		notifier = discard{}
	}
	return &Service{
		backend:  backend,
		notifier: notifier,
		logger:   log.With().Str("component", "workflow").Logger(),
	}
}

// Details loads a single request.
func (s *Service) Details(ctx context.Context, id int) (Request, error) {
	var resp struct {
		Request Request `json:"request"`
	}
	if err := s.backend.GetJSON(ctx, requestPath(id), nil, &resp); err != nil {
		s.fail(err, msgDetailsFailed, msgDetailsNetwork)
		return Request{}, fmt.Errorf("load request %d: %w", id, err)
	}
	return resp.Request, nil
}

// Perform applies action to request id. Delete sends no body.
func (s *Service) Perform(ctx context.Context, id int, action Action, comment string) (Result, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return Result{}, err
	}

	var body any
	if action != ActionDelete {
		body = map[string]string{"action": string(action), "comment": comment}
	}

	var res Result
	if err := s.backend.SendJSON(ctx, action.Method(), requestPath(id), body, &res); err != nil {
		actionsTotal.WithLabelValues(string(action), "failed").Inc()
		s.logger.Warn().Err(err).Int("request_id", id).Str("action", string(action)).Msg("Workflow action failed")
		s.fail(err, msgActionFailed, msgActionNetwork)
		return Result{}, fmt.Errorf("%s request %d: %w", action, id, err)
	}

	actionsTotal.WithLabelValues(string(action), "ok").Inc()
	if res.Message == "" {
		res.Message = msgActionDone
	}
	s.logger.Info().Int("request_id", id).Str("action", string(action)).Msg("Workflow action applied")
	s.notifier.Success(res.Message)
	return res, nil
}

// Create validates and submits a new request.
func (s *Service) Create(ctx context.Context, n NewRequest) (Result, error) {
	if err := n.Validate(); err != nil {
		s.notifier.Danger(err.Error())
		return Result{}, err
	}

	var res Result
	if err := s.backend.SendJSON(ctx, "POST", RequestsPath, n, &res); err != nil {
		s.fail(err, msgCreateFailed, msgCreateNetwork)
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	if res.Message == "" {
		res.Message = msgCreateDone
	}
	s.notifier.Success(res.Message)
	return res, nil
}

// fail notifies the user about err unless the caller gave up on the call.
func (s *Service) fail(err error, fallback, unreachable string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.notifier.Danger(userMessage(err, fallback, unreachable))
}

// userMessage picks the backend message when there is one, the unreachable
// text when no usable answer arrived, and fallback otherwise.
func userMessage(err error, fallback, unreachable string) string {
	class := client.ClassOf(err)
	if class == "" || class == client.ErrorClassNetwork || errors.Is(err, client.ErrMalformed) {
		return unreachable
	}
	if msg := client.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Danger(string)  {}
