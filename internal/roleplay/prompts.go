package roleplay

const generativeSystemPrompt = "Output only valid JSON. No emojis. No markdown."

const generativePrompt = `You are an English conversation partner in this scenario:
- Your role: %s
- Title: %s
- Place: %s
- Situation: %s
- Difficulty: %s
- Current stage: %s (%d/%d)
- Stage objective: %s

CONVERSATION SO FAR:
%s

USER NOW SAYS: "%s"

Respond as JSON with this format:
{"response": "Your natural English response (1-2 sentences)", "suggestions": ["What user could say next 1", "What user could say next 2"]}

RULES:
- NEVER repeat your previous responses - check the conversation history
- Respond directly to what the user just said
- Stay in character for this scenario
- Keep the response appropriate for %s level learners
- The suggestions should be natural follow-ups based on YOUR response
- Keep suggestions short (5-10 words each)
- No emojis

Output ONLY valid JSON:`

const sessionReportPrompt = `Analyze this English conversation practice session:

Scenario: %s
Difficulty: %s
Conversation:
%s

Generate a learning report in this JSON format:
{
    "overall_score": 1-100,
    "strengths": ["list of things user did well"],
    "areas_to_improve": ["specific areas for improvement"],
    "vocabulary_highlights": ["useful words/phrases used"],
    "grammar_notes": ["grammar points to review"],
    "recommended_practice": ["suggested next steps"],
    "encouragement": "motivating message in Korean"
}

Output only valid JSON:`
