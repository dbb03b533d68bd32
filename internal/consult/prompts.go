package consult

import (
	"regexp"
	"strings"
)

// SystemPrompt frames every request to the chat model.
const SystemPrompt = "You are a professional and empathetic AI doctor. " +
	"Use the provided medical knowledge to respond accurately. " +
	"Be concise, clear, avoid disclaimers. " +
	"Recommend possible causes, diagnostic tests, treatment options, and suggest when to seek emergency care. " +
	"If an image is provided, incorporate it naturally into your medical advice."

// Fixed replies for input that cannot be answered.
const (
	MsgNoSymptoms     = "Please record or type your symptoms."
	MsgAudioUnclear   = "Could not understand audio. Please type your symptoms manually."
	MsgNoFollowUp     = "Please enter a follow-up question."
	consultEmergency  = "\n\n⚠️ Please seek immediate medical attention!"
	followUpEmergency = "\n\n⚠️ Follow-up indicates possible emergency. Seek medical help!"
)

var emergencyKeywords = []string{"chest pain", "difficulty breathing", "severe bleeding", "stroke", "heart attack"}

var asterisks = regexp.MustCompile(`\*+`)

// ConsultPrompt builds the message for a first consultation.
func ConsultPrompt(context, query string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(SystemPrompt)
	b.WriteString("\n\nRelevant Medical Knowledge:\n")
	b.WriteString(context)
	b.WriteString("\n\nPatient says: ")
	b.WriteString(query)
	b.WriteString("\n\nNow, based on the symptoms and knowledge provided, kindly suggest:\n" +
		"- Possible medical conditions\n" +
		"- Recommended diagnostic tests\n" +
		"- Suitable treatment or remedies\n" +
		"- Whether immediate medical attention is needed\n" +
		"Please avoid disclaimers.\n")
	return b.String()
}

// FollowUpPrompt builds the message for a follow-up on a previous reply.
func FollowUpPrompt(previous, query, context string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(SystemPrompt)
	b.WriteString("\n\nPrevious Response:\n")
	b.WriteString(previous)
	b.WriteString("\n\nUser Follow-up:\n")
	b.WriteString(query)
	b.WriteString("\n\nAdditional Relevant Medical Knowledge:\n")
	b.WriteString(context)
	b.WriteString("\n\nUpdate your medical advice accordingly.\n")
	return b.String()
}

// IsEmergency reports whether text mentions an emergency keyword, ignoring case.
func IsEmergency(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// StripAsterisks removes markdown emphasis markers.
func StripAsterisks(text string) string {
	return asterisks.ReplaceAllString(text, "")
}
