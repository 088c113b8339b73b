package prompt

// Built-in template catalog. Each analytic capability renders one of
// these against provider-assembled variables. Overrides loaded from YAML
// replace entries by name and version.

func builtinTemplates() []*Template {
	return []*Template{
		{
			Name:        "domain_inference_basic",
			Version:     "1.0",
			Description: "Infer the knowledge domains a query touches",
			Category:    "perception",
			Variables:   []string{"domains", "query", "context_section"},
			Temperature: 0.3,
			MaxTokens:   500,
			Body: `You are a domain classification assistant. Given a user query, identify which knowledge domains it involves.

Known domains: {domains}
{context_section}
User query: {query}

Respond with JSON only:
{
  "domains": ["domain1", "domain2"],
  "primary_domain": "domain1",
  "confidence": 0.0
}`,
		},
		{
			Name:        "context_analysis",
			Version:     "1.0",
			Description: "Classify task type, complexity and urgency of a query",
			Category:    "perception",
			Variables:   []string{"query", "context_section"},
			Temperature: 0.3,
			MaxTokens:   500,
			Body: `Analyze the following user query and classify its task characteristics.
{context_section}
User query: {query}

Task types: exploratory, analytical, creative, retrieval
Levels: low, medium, high

Respond with JSON only:
{
  "task_type": "analytical",
  "complexity_level": "medium",
  "urgency_level": "low",
  "key_requirements": [],
  "confidence": 0.0
}`,
		},
		{
			Name:        "cognitive_analysis",
			Version:     "1.0",
			Description: "Estimate a user's cognitive characteristics from their query",
			Category:    "perception",
			Variables:   []string{"query", "interaction_history", "context_section"},
			Temperature: 0.4,
			MaxTokens:   600,
			Body: `Estimate the cognitive characteristics of the user who wrote this query.
{context_section}
Query: {query}
Recent interactions: {interaction_history}

Respond with JSON only:
{
  "thinking_mode": "linear|associative|creative|analytical",
  "cognitive_complexity": 0.0,
  "abstraction_level": 0.0,
  "creativity_tendency": 0.0,
  "confidence": 0.0
}`,
		},
		{
			Name:        "memory_activation",
			Version:     "1.0",
			Description: "Select and rank memory fragments relevant to a query",
			Category:    "cognition",
			Variables:   []string{"query", "memories", "context_section"},
			Temperature: 0.3,
			MaxTokens:   800,
			Body: `Given a user query and candidate memory fragments, select the fragments
that should be activated and rate their relevance.
{context_section}
Query: {query}

Candidate fragments:
{memories}

Respond with JSON only:
{
  "activated_fragments": [
    {"id": "fragment id", "content": "text", "relevance": 0.0}
  ],
  "activation_confidence": 0.0
}`,
		},
		{
			Name:        "semantic_enhancement",
			Version:     "1.0",
			Description: "Fill semantic gaps between a query and activated memories",
			Category:    "cognition",
			Variables:   []string{"query", "fragments", "context_section"},
			Temperature: 0.5,
			MaxTokens:   800,
			Body: `Identify and fill the semantic gaps between the user query and the
activated knowledge below.
{context_section}
Query: {query}

Activated knowledge:
{fragments}

Respond with JSON only:
{
  "enhanced_content": "expanded understanding of the query",
  "semantic_gaps_filled": ["gap description"],
  "enhancement_confidence": 0.0
}`,
		},
		{
			Name:        "analogy_reasoning",
			Version:     "1.0",
			Description: "Generate analogies and reasoning chains for a query",
			Category:    "cognition",
			Variables:   []string{"query", "enhanced_content", "context_section"},
			Temperature: 0.7,
			MaxTokens:   800,
			Body: `Generate analogies that illuminate the following query, with the
reasoning chain behind each.
{context_section}
Query: {query}
Current understanding: {enhanced_content}

Respond with JSON only:
{
  "analogies": ["analogy statement"],
  "reasoning_chains": [["step 1", "step 2"]],
  "confidence_scores": [0.0]
}`,
		},
		{
			Name:        "perspective_generation",
			Version:     "1.0",
			Description: "Generate diverse viewpoints on a query and draft answer",
			Category:    "collaboration",
			Variables:   []string{"query", "content", "context_section"},
			Temperature: 0.8,
			MaxTokens:   800,
			Body: `Generate distinct perspectives on the question and draft answer below.
Each perspective takes a different stance.
{context_section}
Question: {query}
Draft answer: {content}

Respond with JSON only:
{
  "perspectives": [
    {"stance": "name", "content": "the viewpoint", "rationale": "why it matters"}
  ],
  "confidence": 0.0
}`,
		},
		{
			Name:        "cognitive_challenge",
			Version:     "1.0",
			Description: "Generate questions that stretch the user's thinking",
			Category:    "collaboration",
			Variables:   []string{"query", "content", "user_level", "context_section"},
			Temperature: 0.7,
			MaxTokens:   600,
			Body: `Generate follow-up challenges that stretch the user's thinking slightly
beyond their current level ({user_level}).
{context_section}
Question: {query}
Answer given: {content}

Respond with JSON only:
{
  "challenges": ["challenge question"],
  "challenge_intensity": 0.0,
  "educational_value": 0.0
}`,
		},
	}
}
