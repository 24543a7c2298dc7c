package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	agentsx "github.com/laserhenk/henk-agent/agent/agents"
	designx "github.com/laserhenk/henk-agent/agent/agents/design"
	measurex "github.com/laserhenk/henk-agent/agent/agents/measure"
	needsx "github.com/laserhenk/henk-agent/agent/agents/needs"
	contractx "github.com/laserhenk/henk-agent/agent/contract"
	fabricx "github.com/laserhenk/henk-agent/agent/fabric"
	llmx "github.com/laserhenk/henk-agent/agent/llm"
	orchestratorx "github.com/laserhenk/henk-agent/agent/orchestrator"
	promptx "github.com/laserhenk/henk-agent/agent/prompt"
	statex "github.com/laserhenk/henk-agent/agent/state"
	supervisorx "github.com/laserhenk/henk-agent/agent/supervisor"
	toolx "github.com/laserhenk/henk-agent/agent/tool"
	configx "github.com/laserhenk/henk-agent/pkg/config"
	logx "github.com/laserhenk/henk-agent/pkg/logger"
	openaix "github.com/laserhenk/henk-agent/pkg/openaix"
	pipedrivex "github.com/laserhenk/henk-agent/pkg/pipedrive"
	serverx "github.com/laserhenk/henk-agent/server"
)

func main() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	ctx := context.Background()
	prompts := promptx.LoadPromptSet()

	// Session store.
	storeCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	var store statex.Store
	if storeCfg.Enabled() {
		redisStore, err := statex.NewUpstashRedisStore(*storeCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init redis session store")
		}
		store = redisStore
		log.Info().Msg("session store: upstash redis")
	} else {
		store = statex.NewInMemoryStore()
		log.Warn().Msg("session store: in-memory, sessions are lost on restart")
	}

	// Fabric catalog.
	fabricCfg := configx.MustNew[fabricx.Config]("POSTGRES")
	var fabrics toolx.FabricSearcher
	if fabricCfg.Enabled() {
		catalog, err := fabricx.Open(*fabricCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("open fabric catalog")
		}
		defer catalog.Close()
		fabrics = catalog
		log.Info().Msg("fabric catalog: postgres")
	} else {
		log.Warn().Msg("fabric catalog: not configured, serving curated fallback")
	}

	// CRM.
	pipedriveCfg := configx.MustNew[pipedrivex.Config]("PIPEDRIVE")
	var crm toolx.CRM
	if pipedriveCfg.Enabled() {
		client, err := pipedrivex.NewClient(*pipedriveCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init pipedrive client")
		}
		crm = client
		log.Info().Msg("crm: pipedrive")
	} else {
		log.Warn().Msg("crm: not configured, leads and appointments stay session-local")
	}

	// Models. Without an API key everything runs on the deterministic
	// offline paths.
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}

	var (
		routerModel contractx.DecisionModel
		needsChat   einomodel.BaseChatModel
		designChat  einomodel.BaseChatModel
		measureChat einomodel.BaseChatModel
		images      toolx.ImageGenerator
	)
	if llmCfg.Enabled() {
		routerModel = mustDecisionModel(ctx, *llmCfg)
		needsChat = mustChatModel(ctx, *llmCfg, llmx.RoleNeeds)
		designChat = mustChatModel(ctx, *llmCfg, llmx.RoleDesign)
		measureChat = mustChatModel(ctx, *llmCfg, llmx.RoleMeasurement)
		if client := openaix.NewClient(llmCfg.OpenAIFor(llmx.RoleDesign)); client != nil {
			images = openaix.NewImageClient(client, llmCfg.ImageModel)
		}
		log.Info().Str("model", llmCfg.Model).Msg("llm: openai")
	} else {
		log.Warn().Msg("llm: not configured, running deterministic offline mode")
	}

	// Agents.
	needsAgent, err := needsx.New(ctx, needsChat, prompts.Needs)
	if err != nil {
		log.Fatal().Err(err).Msg("init needs assessment agent")
	}
	designAgent, err := designx.New(ctx, designChat, prompts.Design)
	if err != nil {
		log.Fatal().Err(err).Msg("init design agent")
	}
	measureAgent, err := measurex.New(ctx, measureChat, prompts.Measurement)
	if err != nil {
		log.Fatal().Err(err).Msg("init measurement agent")
	}
	agents := agentsx.NewRegistry(needsAgent, designAgent, measureAgent)

	tools := toolx.BuildAll(toolx.Deps{Fabrics: fabrics, Images: images, CRM: crm})
	router := supervisorx.New(routerModel, prompts.Supervisor)

	orchestrator, err := orchestratorx.New(store, router, agents, tools)
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	handler, err := serverx.NewHandler(orchestrator, store)
	if err != nil {
		log.Fatal().Err(err).Msg("init http handler")
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serverx.Run(runCtx, *serverCfg, handler); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("shutdown complete")
}

func mustChatModel(ctx context.Context, cfg llmx.Config, role llmx.Role) einomodel.BaseChatModel {
	modelCfg := cfg.OpenAIFor(role)
	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("role", string(role)).Msg("init chat model")
	}
	return chatModel
}

func mustDecisionModel(ctx context.Context, cfg llmx.Config) contractx.DecisionModel {
	chatModel := mustChatModel(ctx, cfg, llmx.RoleSupervisor)
	decision, err := llmx.NewDecisionGraph(ctx, chatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("init decision graph")
	}
	return decision
}
