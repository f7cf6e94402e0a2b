// Package taxonomy holds the rule tables driving categorization, scoring, and
// section allocation. The tables are plain data passed into the pipeline
// stages, so tests can substitute alternate taxonomies.
package taxonomy

import "aidigest/internal/domain"

// Category labels referenced by rules elsewhere in the pipeline.
const (
	CategoryFoundationModel = "New foundation model release"
	CategorySDK             = "SDK releases/updates"
	CategoryAPI             = "API changes (endpoints/auth/schemas)"
	CategoryReliability     = "Reliability/outages/status updates"
)

// CategoryRule attaches a taxonomy label when any keyword appears as a
// substring of the lowercased event text.
type CategoryRule struct {
	Keywords []string
	Category string
}

// Weights are the impact-score factor weights. Positive weights sum to 0.95
// with a 0.05 penalty budget, so a maximally trusted, maximally severe,
// brand-new event cannot exceed 1.0.
type Weights struct {
	Trust       float64
	Severity    float64
	UserMatch   float64
	Recency     float64
	Breadth     float64
	Novelty     float64
	SpamPenalty float64
}

// Rules bundles every tunable table the pipeline consumes.
type Rules struct {
	Categories []CategoryRule

	// Severity rule inputs, evaluated in precedence order by the ranker.
	AlwaysHighCategories []string
	HighKeywords         []string
	MediumKeywords       []string
	BreakingKeywords     []string

	TrustScores    map[int]float64
	SeverityScores map[domain.Severity]float64
	ImpactWeights  Weights
	RecencyLambda  float64

	SimilarityThreshold float64

	SectionDeveloper map[string]bool
	SectionModels    map[string]bool
	SectionPricing   map[string]bool
	SectionIncidents map[string]bool
	SectionQuotas    map[string]int

	// Titles that count as noise for the lowest trust tier.
	NoiseTitles map[string]bool
}

// Default returns the production rule set: the 30-category taxonomy with its
// keyword table, the severity rubric, and the section quotas.
func Default() Rules {
	return Rules{
		Categories: []CategoryRule{
			{[]string{"new model", "launches model", "releases model", "foundation model", "introduces model"}, CategoryFoundationModel},
			{[]string{"model upgrade", "improved model", "faster model", "context window", "quality improvement"}, "Model upgrade (quality/latency/context)"},
			{[]string{"vision", "audio", "video", "multimodal", "image generation", "speech", "3d"}, "New modality (vision/audio/video/3D)"},
			{[]string{"fine-tune", "fine-tuning", "finetune", "custom model", "training"}, "Fine-tuning/customization updates"},
			{[]string{"inference", "latency", "throughput", "runtime", "speed", "faster"}, "Inference & serving (speed/runtimes)"},
			{[]string{"pricing", "price", "cost", "billing", "free tier", "rate change"}, "Pricing & billing changes"},
			{[]string{"rate limit", "quota", "throttle", "tier", "usage limit"}, "Rate limits/quotas/tiers"},
			{[]string{"deprecat", "breaking change", "end of life", "eol", "sunset", "removal", "removed"}, "Deprecations/breaking changes"},
			{[]string{"sdk", "library", "package", "pip install", "npm install", "client library"}, CategorySDK},
			{[]string{"api", "endpoint", "rest api", "graphql", "authentication", "schema change"}, CategoryAPI},
			{[]string{"agent", "orchestrat", "workflow", "multi-agent", "crew", "autogen"}, "Agents frameworks/orchestration"},
			{[]string{"function calling", "tool use", "tools", "integration", "plugin", "mcp"}, "Tool-use/function calling/integrations"},
			{[]string{"rag", "retrieval", "search", "vector search", "knowledge base"}, "RAG/retrieval tooling"},
			{[]string{"embedding", "rerank", "reranking", "similarity"}, "Embeddings & reranking"},
			{[]string{"benchmark", "eval", "evaluation", "leaderboard", "score"}, "Evaluation/benchmarks/evals"},
			{[]string{"dataset", "data release", "training data", "corpus"}, "Datasets (new/updated/licensing)"},
			{[]string{"safety", "alignment", "guardrail", "content filter", "responsible ai"}, "Safety/alignment features"},
			{[]string{"policy", "compliance", "governance", "regulation", "gdpr", "terms of service"}, "Policy/compliance/governance"},
			{[]string{"security", "vulnerability", "cve", "breach", "exploit", "patch"}, "Security incidents/vuln disclosures"},
			{[]string{"privacy", "data protection", "opt out", "data retention"}, "Privacy changes"},
			{[]string{"open source", "open-source", "apache license", "mit license", "weights released"}, "Open-source model/tool releases"},
			{[]string{"dashboard", "playground", "console", "developer portal", "studio"}, "New developer products (dashboards/playgrounds)"},
			{[]string{"enterprise", "sso", "rbac", "audit log", "sla"}, "Enterprise features (SSO/RBAC/audit logs)"},
			{[]string{"edge", "on-device", "mobile ai", "onnx", "tflite", "local"}, "Edge/on-device AI"},
			{[]string{"gpu", "tpu", "chip", "accelerator", "driver", "cuda", "hardware"}, "Hardware accelerators/drivers"},
			{[]string{"distributed training", "cluster", "infrastructure", "scaling"}, "Training infrastructure/distributed systems"},
			{[]string{"monitoring", "tracing", "observability", "logging", "llmops", "langsmith", "weave"}, "LLMOps/monitoring/tracing"},
			{[]string{"app launch", "consumer", "chatbot", "assistant", "copilot"}, "App launches (consumer/prosumer)"},
			{[]string{"funding", "acquisition", "merger", "partnership", "series", "investment", "ipo"}, "Funding/M&A/partnerships"},
			{[]string{"outage", "incident", "downtime", "status", "degraded", "maintenance"}, CategoryReliability},
		},

		AlwaysHighCategories: []string{CategoryFoundationModel},
		HighKeywords: []string{
			"outage", "breach", "security incident", "deprecat",
			"end of life", "major release", "breaking",
		},
		MediumKeywords: []string{
			"new feature", "update", "release", "upgrade",
			"support", "launch", "available", "introduces",
		},
		BreakingKeywords: []string{
			"breaking", "deprecat", "removal", "removed", "end of life", "eol",
		},

		TrustScores: map[int]float64{1: 1.0, 2: 0.7, 3: 0.4, 4: 0.2},
		SeverityScores: map[domain.Severity]float64{
			domain.SeverityHigh:   1.0,
			domain.SeverityMedium: 0.5,
			domain.SeverityLow:    0.15,
		},
		ImpactWeights: Weights{
			Trust:       0.20,
			Severity:    0.25,
			UserMatch:   0.15,
			Recency:     0.15,
			Breadth:     0.10,
			Novelty:     0.10,
			SpamPenalty: 0.05,
		},
		RecencyLambda: 0.03,

		SimilarityThreshold: 0.85,

		SectionDeveloper: set(
			"Deprecations/breaking changes",
			CategorySDK,
			CategoryAPI,
			"Agents frameworks/orchestration",
			"Tool-use/function calling/integrations",
		),
		SectionModels: set(
			CategoryFoundationModel,
			"Model upgrade (quality/latency/context)",
			"New modality (vision/audio/video/3D)",
			"Fine-tuning/customization updates",
			"Inference & serving (speed/runtimes)",
			"Embeddings & reranking",
			"Evaluation/benchmarks/evals",
			"Open-source model/tool releases",
		),
		SectionPricing: set(
			"Pricing & billing changes",
			"Rate limits/quotas/tiers",
		),
		SectionIncidents: set(
			"Security incidents/vuln disclosures",
			CategoryReliability,
		),
		SectionQuotas: map[string]int{
			domain.SectionTop5:           5,
			domain.SectionDeveloper:      8,
			domain.SectionModels:         8,
			domain.SectionPricing:        5,
			domain.SectionIncidents:      5,
			domain.SectionRadar:          3,
			domain.SectionEverythingElse: 0, // unlimited
		},

		NoiseTitles: set(
			"community update", "community updates",
			"update", "updates",
			"announcement", "announcements",
		),
	}
}

// CategoryNames lists every label in rule order, for summarizer prompts.
func (r Rules) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for _, rule := range r.Categories {
		names = append(names, rule.Category)
	}
	return names
}

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
