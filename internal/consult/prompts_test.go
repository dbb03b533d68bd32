package consult

import "testing"

func TestIsEmergency(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Possible CHEST PAIN from angina", true},
		{"signs of a stroke", true},
		{"Difficulty Breathing noted", true},
		{"mild headache", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsEmergency(tt.text); got != tt.want {
			t.Errorf("IsEmergency(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestStripAsterisks(t *testing.T) {
	if got := StripAsterisks("**Bold** and *it* ***x***"); got != "Bold and it x" {
		t.Errorf("StripAsterisks = %q", got)
	}
}

func TestConsultPrompt(t *testing.T) {
	want := "\n" + SystemPrompt + "\n\nRelevant Medical Knowledge:\nCTX\n\nPatient says: Q\n\n" +
		"Now, based on the symptoms and knowledge provided, kindly suggest:\n" +
		"- Possible medical conditions\n- Recommended diagnostic tests\n- Suitable treatment or remedies\n" +
		"- Whether immediate medical attention is needed\nPlease avoid disclaimers.\n"
	if got := ConsultPrompt("CTX", "Q"); got != want {
		t.Errorf("ConsultPrompt = %q", got)
	}
}

func TestFollowUpPrompt(t *testing.T) {
	want := "\n" + SystemPrompt + "\n\nPrevious Response:\nP\n\nUser Follow-up:\nQ\n\n" +
		"Additional Relevant Medical Knowledge:\nCTX\n\nUpdate your medical advice accordingly.\n"
	if got := FollowUpPrompt("P", "Q", "CTX"); got != want {
		t.Errorf("FollowUpPrompt = %q", got)
	}
}
