package constant

const (
	AppDisplayName = "Owlynn"

	// FallbackReply is returned when the model produced nothing usable.
	FallbackReply = "I'm sorry, I couldn't generate a response right now. Please try again in a moment."

	// SystemPrompt frames every answer turn.
	SystemPrompt = `You are Owlynn, a friendly personal assistant. You help the user with everyday questions and with the documents they have uploaded.
Answer in the language the user writes in. Keep answers clear and concise.`

	// StandaloneQuestionPrompt turns a follow-up into a self-contained question.
	StandaloneQuestionPrompt = `Given the following conversation and a follow-up question, rephrase the follow-up question to be a standalone question that keeps every detail needed to answer it without the conversation.
Return only the standalone question, nothing else.`
)

// TopicDocumentReindex is the in-process topic the reindex consumer reads.
const TopicDocumentReindex = "document.reindex"
