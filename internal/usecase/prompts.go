package usecase

import "fmt"

const chunkPromptTemplate = `Summarize this part (%d/%d) of the video "%s".

Focus on:
- Key points and main ideas
- Important details and facts
- Actionable insights
- Notable quotes or examples

Keep it concise but informative:

%s`

const finalPromptTemplate = `Create a comprehensive summary of the video "%s" based on these section summaries:

%s

Create a well-structured summary that:
- Captures the main theme and purpose
- Highlights key points and insights in detail
- Maintains logical flow and structure
- Includes important examples, quotes, and actionable insights
- Is thorough but well-organized

Format with clear sections and bullet points where appropriate.`

const qaPromptTemplate = `Answer the following question about the video "%s" based on its transcript:

Question: %s

Video transcript:
%s

Provide a helpful, accurate answer based on the content. If the information isn't in the transcript, say so.`

func chunkPrompt(ordinal, total int, title, text string) string {
	return fmt.Sprintf(chunkPromptTemplate, ordinal, total, title, text)
}

func finalPrompt(title, combined string) string {
	return fmt.Sprintf(finalPromptTemplate, title, combined)
}

func qaPrompt(title, question, transcript string) string {
	return fmt.Sprintf(qaPromptTemplate, title, question, transcript)
}

func chunkPlaceholder(ordinal int) string {
	return fmt.Sprintf("[section %d unavailable]", ordinal)
}
