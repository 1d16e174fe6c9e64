package llm

const summarizeSystemPrompt = "You are a research assistant that writes faithful, self-contained summaries of research documents. Preserve key findings, figures, and caveats. Do not add information that is not in the source text."

const summarizeUserPromptFmt = "Summarize the following text in approximately %d words. Return only the summary.\n\n%s"

const titleSystemPrompt = "You generate concise titles for research reports. Return a single title of at most 255 characters with no quotes and no trailing punctuation."

const titleUserPromptFmt = "Generate a title for a research report produced from this prompt:\n\n%s"
