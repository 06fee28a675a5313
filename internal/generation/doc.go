// Package generation holds the provider-neutral half of answer generation:
// the prompt template, the JSON answer schema a model must return and the
// errors every LLM adapter reports. Adapters such as platform/gemini only
// move prompts and responses over the wire.
package generation
