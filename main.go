package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amontero/dialogo/agent/agents"
	"github.com/amontero/dialogo/agent/agents/assistant"
	"github.com/amontero/dialogo/agent/agents/triage"
	"github.com/amontero/dialogo/agent/agents/tutor"
	contractx "github.com/amontero/dialogo/agent/contract"
	llmx "github.com/amontero/dialogo/agent/llm"
	"github.com/amontero/dialogo/agent/prompt"
	"github.com/amontero/dialogo/agent/runtime"
	statex "github.com/amontero/dialogo/agent/state"
	toolx "github.com/amontero/dialogo/agent/tool"
	"github.com/amontero/dialogo/agent/viz"
	configx "github.com/amontero/dialogo/pkg/config"
	_ "github.com/amontero/dialogo/pkg/logger/autoload"
	openrouterx "github.com/amontero/dialogo/pkg/openrouter"
)

func main() {
	var (
		mode      = flag.String("mode", "assistant", "conversation mode: assistant | tutor")
		sessionID = flag.String("session", "", "session id to resume; a new one is generated when empty")
		userID    = flag.String("user", "local-user", "user id for memory summaries")
		showViz   = flag.Bool("viz", false, "print the agent graph and exit")
	)

	ctx := context.Background()

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm configuration")
	}

	registry, err := buildRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build agent registry")
	}

	if *showViz {
		fmt.Print(viz.Text(registry))
		fmt.Println()
		fmt.Print(viz.DOT(registry))
		return
	}

	if client := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentTriage)); client != nil {
		if err := openrouterx.Ping(ctx, client); err != nil {
			log.Warn().Err(err).Msg("openrouter connectivity check failed")
		}
	}

	root := contractx.AgentTriage
	switch strings.ToLower(strings.TrimSpace(*mode)) {
	case "assistant":
	case "tutor":
		root = contractx.AgentTutor
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode")
	}

	runner, err := runtime.NewRunner(
		registry,
		toolx.NewGateway(nil),
		runtime.WithHooks(runtime.LogHooks{Logger: log.Logger}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build runner")
	}

	redis := buildRedis()
	service, err := runtime.NewService(
		buildStore(redis),
		runner,
		buildMemory(redis),
		buildArchive(ctx),
		runtime.Config{UserID: *userID, ChannelType: "cli", Root: root},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build service")
	}

	session := strings.TrimSpace(*sessionID)
	if session == "" {
		session = uuid.NewString()
	}
	log.Info().Str("session_id", session).Str("mode", *mode).Msg("session ready")

	repl(ctx, service, session)
}

func buildRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	prompts := prompt.LoadPromptSet()

	triageCfg := cfg.OpenRouterFor(contractx.AgentTriage)
	triageModel, err := triageCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("triage model: %w", err)
	}
	assistantCfg := cfg.OpenRouterFor(contractx.AgentSpanish)
	assistantModel, err := assistantCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant model: %w", err)
	}
	tutorCfg := cfg.OpenRouterFor(contractx.AgentTutor)
	tutorModel, err := tutorCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("tutor model: %w", err)
	}

	triageAgent, err := triage.New(ctx, triageModel, prompts.Triage)
	if err != nil {
		return nil, err
	}
	spanish, err := assistant.New(ctx, contractx.AgentSpanish, assistantModel, prompts.SpanishAssistant)
	if err != nil {
		return nil, err
	}
	english, err := assistant.New(ctx, contractx.AgentEnglish, assistantModel, prompts.EnglishAssistant)
	if err != nil {
		return nil, err
	}
	tutorAgent, err := tutor.New(ctx, tutorModel, prompts.Tutor)
	if err != nil {
		return nil, err
	}

	return agents.NewRegistry(triageAgent, spanish, english, tutorAgent, tutor.NewDiagnostic())
}

// buildRedis builds the single Upstash client shared by the session store
// and the memory store. Nil means redis is not configured or unreachable.
func buildRedis() *statex.UpstashRedisStore {
	redisCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Info().Msg("redis not configured, state kept in process memory")
		return nil
	}
	redis, err := statex.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, falling back to memory")
		return nil
	}
	return redis
}

func buildStore(redis *statex.UpstashRedisStore) statex.Store {
	if redis == nil {
		return statex.NewMemoryStore()
	}
	return redis
}

func buildMemory(redis *statex.UpstashRedisStore) contractx.MemoryStore {
	if redis == nil {
		return statex.NewInProcMemoryStore()
	}
	memory, err := statex.NewRedisMemoryStore(redis)
	if err != nil {
		return statex.NewInProcMemoryStore()
	}
	return memory
}

func buildArchive(ctx context.Context) statex.Archive {
	archiveCfg, err := configx.New[statex.PostgresArchiveConfig]("POSTGRES")
	if err != nil {
		return nil
	}
	archive, err := statex.NewPostgresArchive(*archiveCfg)
	if err != nil {
		log.Warn().Err(err).Msg("postgres archive unavailable")
		return nil
	}
	if err := archive.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("postgres archive schema check failed")
		return nil
	}
	return archive
}

func repl(ctx context.Context, service *runtime.Service, sessionID string) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Type a message, or 'exit' to quit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		out, err := service.HandleMessage(ctx, sessionID, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}
		fmt.Printf("[%s] %s\n", out.Agent, out.Reply)

		if out.Ended {
			fmt.Println("Session ended.")
			break
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("stdin read failed")
	}
}
