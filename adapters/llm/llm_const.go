package llm

const (
	DEFAULT_MAX_TOKENS = 4096
	MAX_RESPONSE_BYTES = 4 << 20

	GENERATOR_TYPE = "llm"

	GENERATION_SYSTEM_PROMPT = "You are a scientific writer. Write a concise markdown experiment " +
		"report. State every parameter as a list item of the form \"- name = value\" using exactly " +
		"the certified values. End with a fenced json block {\"claims\": {name: value}} listing " +
		"every numeric value you stated."

	ENHANCEMENT_SYSTEM_PROMPT = "You are a research methodologist. Sharpen the hypothesis so it " +
		"is testable and specific. Answer only with a json object " +
		"{\"hypothesis\": string, \"parameters\": {name: value}, \"notes\": string}. " +
		"Only include parameters you change."
)
