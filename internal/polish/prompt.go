package polish

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed surnames.yaml
var surnamesYAML []byte

type surnameList struct {
	All         []string `yaml:"all"`
	PromptHints []string `yaml:"prompt_hints"`
}

var surnames surnameList

func init() {
	if err := yaml.Unmarshal(surnamesYAML, &surnames); err != nil {
		panic("polish: parse embedded surnames.yaml: " + err.Error())
	}
}

// maxStaffInPrompt caps how many decision makers are listed per prompt.
const maxStaffInPrompt = 5

// systemPrompt frames every polish call.
func systemPrompt() string {
	return fmt.Sprintf(`You are a data quality assistant validating contact information.

RULES:
1. Return FULL names (First Last), never just surnames
2. REJECT organization names, program names, locations
3. For Chinese rep candidates, identify the Chinese staff member and return their FULL name
4. Return JSON only, no explanations

Chinese surnames: %s`, strings.Join(surnames.All, ", "))
}

// repStaffPrompt asks which listed staff member is the Chinese
// representative match for a candidate lead.
func repStaffPrompt(contact string, staff []string) string {
	if len(staff) > maxStaffInPrompt {
		staff = staff[:maxStaffInPrompt]
	}
	return fmt.Sprintf(`Contact: %s
Staff: %s
This is a Chinese rep lead. Chinese surnames: %s.
Who is the Chinese staff member? Return their FULL name.
JSON: {"chinese_staff": "full name or null"}`,
		contact, strings.Join(staff, ", "), strings.Join(surnames.PromptHints, ", "))
}

// validityPrompt asks whether the current contact name is a real person.
func validityPrompt(contact string) string {
	return fmt.Sprintf(`Is %q a valid human name (First Last format)?
Not valid: organization names, program names, locations, partial titles.
JSON: {"valid": true/false}`, contact)
}
