package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/amontero/dialogo/agent/contract"
	statex "github.com/amontero/dialogo/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

const defaultTranscriptWindow = 20

type Config struct {
	UserID      string
	ChannelType string
	// Root is the agent every turn starts at: triage for the language-routed
	// assistant, tutor for math tutoring.
	Root             contractx.AgentName
	TranscriptWindow int
}

// Service wires the runner into a persistent turn pipeline: load session,
// read memory, run the agent graph, apply updates, save, archive.
type Service struct {
	store   statex.Store
	runner  *Runner
	memory  contractx.MemoryStore
	archive statex.Archive

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	root        contractx.AgentName
	userID      string
	channelType string
	window      int

	now func() time.Time
}

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply string
	Agent contractx.AgentName
	Phase statex.Phase
	Ended bool
	Trace *Trace
}

type turnState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session       *statex.SessionState
	MemorySummary string
	Result        TurnResult
	NewTurns      []statex.Turn
}

func NewService(
	store statex.Store,
	runner *Runner,
	memory contractx.MemoryStore,
	archive statex.Archive,
	cfg Config,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Root == "" {
		return nil, errors.New("root agent is required")
	}
	if memory == nil {
		memory = noopMemoryStore{}
	}

	userID := strings.TrimSpace(cfg.UserID)
	if userID == "" {
		userID = "default-user"
	}
	channelType := strings.TrimSpace(cfg.ChannelType)
	if channelType == "" {
		channelType = "chat"
	}
	window := cfg.TranscriptWindow
	if window <= 0 {
		window = defaultTranscriptWindow
	}

	s := &Service{
		store:       store,
		runner:      runner,
		memory:      memory,
		archive:     archive,
		root:        cfg.Root,
		userID:      userID,
		channelType: channelType,
		window:      window,
		now:         time.Now,
	}

	graphRunner, err := s.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner
	return s, nil
}

// HandleMessage runs one user message through the full turn pipeline.
func (s *Service) HandleMessage(ctx context.Context, sessionID, text string) (GraphOutput, error) {
	return s.graphRunner.Invoke(ctx, GraphInput{SessionID: sessionID, Text: text})
}

func (s *Service) compileTurnGraph(ctx context.Context) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*turnState, error) {
			return s.validateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_state",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return s.loadOrCreateState(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_state: %w", err)
	}

	if err := graph.AddLambdaNode("read_memory",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return s.readMemory(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node read_memory: %w", err)
	}

	if err := graph.AddLambdaNode("run_agents",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return s.runAgents(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_agents: %w", err)
	}

	if err := graph.AddLambdaNode("apply_state_updates",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return s.applyStateUpdates(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_state_updates: %w", err)
	}

	if err := graph.AddLambdaNode("validate_and_save_state",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return s.validateAndSaveState(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_and_save_state: %w", err)
	}

	if err := graph.AddLambdaNode("write_memory",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (*turnState, error) {
			return s.writeMemory(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node write_memory: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnState) (GraphOutput, error) {
			return s.finalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_state"},
		{"load_or_create_state", "read_memory"},
		{"read_memory", "run_agents"},
		{"run_agents", "apply_state_updates"},
		{"apply_state_updates", "validate_and_save_state"},
		{"validate_and_save_state", "write_memory"},
		{"write_memory", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("runtime.turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}

func (s *Service) validateRequest(in GraphInput) (*turnState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	return &turnState{
		SessionID: sessionID,
		Text:      text,
		Now:       s.now().UTC(),
	}, nil
}

func (s *Service) loadOrCreateState(ctx context.Context, in *turnState) (*turnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	st, err := s.store.Load(ctx, in.SessionID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, err
		}
		st = statex.NewSessionState(in.SessionID, s.userID, s.channelType, in.Now)
	}
	in.Session = st
	return in, nil
}

func (s *Service) readMemory(ctx context.Context, in *turnState) (*turnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	summary, err := s.memory.ReadSummary(ctx, in.Session.UserID)
	if err != nil {
		return nil, err
	}
	in.MemorySummary = summary
	return in, nil
}

func (s *Service) runAgents(ctx context.Context, in *turnState) (*turnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	result, err := s.runner.RunTurn(ctx, s.root, contractx.AgentRequest{
		UserMessage:   in.Text,
		MemorySummary: in.MemorySummary,
		Session:       in.Session,
		Now:           in.Now,
	})
	if err != nil {
		return nil, err
	}
	in.Result = result
	return in, nil
}

func (s *Service) applyStateUpdates(in *turnState) (*turnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn state is incomplete", contractx.ErrValidation)
	}
	st := in.Session
	updates := in.Result.Updates

	before := len(st.Transcript)
	if err := st.AppendTurn(statex.RoleUser, "", in.Text, in.Now); err != nil {
		return nil, err
	}
	if err := st.AppendTurn(statex.RoleAssistant, string(in.Result.Agent), in.Result.Message, in.Now); err != nil {
		return nil, err
	}
	in.NewTurns = append([]statex.Turn(nil), st.Transcript[before:]...)

	// The hot store only keeps a window of recent turns; the full history
	// lives in the archive.
	if len(st.Transcript) > s.window {
		st.Transcript = append([]statex.Turn(nil), st.Transcript[len(st.Transcript)-s.window:]...)
	}

	if updates.SetLanguage != "" {
		st.Language = updates.SetLanguage
	}
	st.CountReply(st.Language)

	if topic := strings.TrimSpace(updates.SetTopic); topic != "" {
		st.Topic = topic
	}
	if updates.SetKnowledgeLevel != "" {
		level, err := statex.ParseKnowledgeLevel(updates.SetKnowledgeLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
		}
		st.KnowledgeLevel = level
	}
	if updates.AdvancePhase != "" {
		next, err := statex.ParsePhase(updates.AdvancePhase)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
		}
		if err := st.AdvancePhase(next, in.Now); err != nil {
			return nil, err
		}
	}
	if updates.EndSession && st.Phase != statex.PhaseFinal {
		if err := st.AdvancePhase(statex.PhaseFinal, in.Now); err != nil {
			return nil, err
		}
	}

	st.Touch(in.Now)
	return in, nil
}

func (s *Service) validateAndSaveState(ctx context.Context, in *turnState) (*turnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := s.store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	if s.archive != nil && len(in.NewTurns) > 0 {
		// Archival is best effort; the reply must not fail on it.
		if err := s.archive.AppendTurns(ctx, in.SessionID, in.NewTurns); err != nil {
			log.Warn().Err(err).Str("session_id", in.SessionID).Msg("transcript archive append failed")
		}
	}
	return in, nil
}

func (s *Service) writeMemory(ctx context.Context, in *turnState) (*turnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	if update := strings.TrimSpace(in.Result.Updates.MemoryUpdate); update != "" {
		if err := s.memory.WriteSummary(ctx, in.Session.UserID, update); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (s *Service) finalizeReply(in *turnState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	reply := strings.TrimSpace(in.Result.Message)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply: reply,
		Agent: in.Result.Agent,
		Phase: in.Session.Phase,
		Ended: in.Session.Ended,
		Trace: in.Result.Trace,
	}, nil
}

type noopMemoryStore struct{}

func (noopMemoryStore) ReadSummary(context.Context, string) (string, error) {
	return "", nil
}

func (noopMemoryStore) WriteSummary(context.Context, string, string) error {
	return nil
}
