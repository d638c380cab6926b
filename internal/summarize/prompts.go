package summarize

import "fmt"

// Default prompts, aimed at French-speaking clinicians. Both are plain
// defaults: operators override them through configuration.
const (
	DefaultSystemPrompt = "You are a helpful medical summarization assistant. " +
		"Write in clear French aimed at clinicians. Use concise bullet points. " +
		"Attribute speaker insights when relevant. Never invent facts."

	DefaultUserPrompt = "Résume le texte ci-dessous pour un clinicien. " +
		"Structure en: 1) Contexte, 2) Points clés, 3) Décisions/Actions, " +
		"4) Questions ouvertes. Garde les chiffres importants, style concis."
)

// directPrompt wraps the full transcript for a single-pass summary
func directPrompt(instructions, text string) string {
	return fmt.Sprintf("%s\n\nTexte à résumer:\n```text\n%s\n```", instructions, text)
}

// chunkPrompt asks for a partial summary of one block; the model sees no
// other block
func chunkPrompt(instructions string, index, total int, text string) string {
	return fmt.Sprintf("%s\n\nTu résumes le bloc %d/%d ci-dessous.\n```text\n%s\n```",
		instructions, index, total, text)
}

// synthesisPrompt concatenates the partial summaries and asks for one
// final structured summary
func synthesisPrompt(instructions, joined string) string {
	return fmt.Sprintf("%s\n\nVoici les résumés des blocs :\n%s\n\n"+
		"Produis un seul résumé final structuré. Ne répète pas bloc par bloc.",
		instructions, joined)
}

// partialHeading labels a partial summary before synthesis
func partialHeading(index int, summary string) string {
	return fmt.Sprintf("### Bloc %d\n%s", index, summary)
}
