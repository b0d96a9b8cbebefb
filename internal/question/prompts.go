package question

const generatePrompt = `As a philosophical AI, generate a thought-provoking question about gaming, tailored to the game "%[1]s". The question should challenge the player's perspective on their engagement with the game and its broader implications.

Example Question: "If the points in %[1]s ceased to exist, would you still play?"

Respond with a single JSON object {"question": "..."} and nothing else.`

const curateSystemPrompt = `You are an AI assistant that curates philosophical questions about gaming behaviour.
Your goal is to make sure each question invites the player to reflect on how they engage with the game.
Use the isGamingRelated tool to check whether the question is about gaming. If it is, repeat it unchanged as curatedQuestion with isValid set to true. If it is not, return an empty curatedQuestion with isValid set to false.

Respond with a single JSON object {"curatedQuestion": "...", "isValid": true|false} and nothing else.`

const curatePrompt = `Here is the question to curate: %s`

const relevanceToolName = "isGamingRelated"
