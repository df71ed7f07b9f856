package pipeline

// Fixed texts sent to the requester.
const (
	MsgGreeting         = "Hello! Send me Google Forms link and I will try to solve it."
	MsgFetchFailed      = "Error fetching URL.\nTry again later."
	MsgNoQuestions      = "Error handling Google Forms questions.\nTry again later."
	MsgEmptyPrompt      = "Failed to get questions, descriptions or answers."
	MsgWaiting          = "Please, wait..."
	MsgGenerationFailed = "Something went wrong during processing response."
	SuccessPrefix       = "Here's the response from the AI:\n"
)
