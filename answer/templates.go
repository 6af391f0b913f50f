package answer

// GuardrailRefusal is the reply the guardrail template asks the model to give
// when the context cannot answer the question.
const GuardrailRefusal = "I can only answer questions about our company policies and procedures."

// contextThreshold is the context length, in characters, above which the
// plain answer template is used.
const contextThreshold = 100

// AnswerTemplate is used when the context is long enough to answer from.
const AnswerTemplate = `
You are an expert Q&A system for company policies. Your goal is to answer the user's question based ONLY on the provided context. Do not use outside knowledge.

Always include citations by listing the source document ID/title for every piece of information you provide. Limit your output length to {{.max_length}} tokens.

--- CONTEXT ---
{{.context}}
---

--- QUESTION ---
{{.question}}
`

// GuardrailTemplate is used for short or empty context. It instructs the
// model to refuse with GuardrailRefusal when the context is insufficient.
const GuardrailTemplate = `
You are an expert Q&A system for company policies. Your goal is to answer the user's question based ONLY on the provided context.

If the provided context is empty or does not contain the information needed to answer the question, you MUST respond with "` + GuardrailRefusal + `" Otherwise, answer based ONLY on the context.

Always include citations by listing the source document ID/title for every piece of information you provide. Limit your output length to {{.max_length}} tokens.

--- CONTEXT ---
{{.context}}
---

--- QUESTION ---
{{.question}}
`

var templateVariables = []string{"context", "question", "max_length"}
