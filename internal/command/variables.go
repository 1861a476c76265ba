package command

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder syntax. Identifiers follow the usual name grammar; the
// bracket scan is looser so malformed names can be reported rather than
// silently ignored.
var (
	identifierRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	placeholderRe = regexp.MustCompile(`<([^<>]+)>`)
)

// ExtractVariables returns the inner texts of all <...> placeholders in
// template order, deduplicated on first occurrence. Malformed names are
// included so callers can reject them.
func ExtractVariables(text string) []string {
	matches := placeholderRe.FindAllStringSubmatch(text, -1)
	var names []string
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// ValidateIdentifier checks a placeholder name against the identifier
// grammar.
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("invalid variable name %q: must start with a letter or underscore and contain only letters, digits, and underscores", name)
	}
	return nil
}

// ValidateVariables checks a command's template against its declared
// variables. It returns the placeholders that lack a definition;
// malformed placeholder names are an error that should block saving.
func ValidateVariables(cmd *Command) (missing []string, err error) {
	declared := make(map[string]bool, len(cmd.Variables))
	for i := range cmd.Variables {
		v := &cmd.Variables[i]
		if nameErr := ValidateIdentifier(v.Name); nameErr != nil {
			return nil, nameErr
		}
		if declared[v.Name] {
			return nil, fmt.Errorf("duplicate variable %q", v.Name)
		}
		declared[v.Name] = true
	}

	for _, name := range ExtractVariables(cmd.CommandText) {
		if nameErr := ValidateIdentifier(name); nameErr != nil {
			return nil, nameErr
		}
		if !declared[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// PreparedCommand is the result of variable resolution and substitution.
// Callers must not execute the text unless IsValid is true.
type PreparedCommand struct {
	Text    string            `json:"text,omitempty"`
	IsValid bool              `json:"is_valid"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// PrepareCommandForExecution resolves each declared variable from the
// supplied values (falling back to defaults), substitutes them into the
// template in a single literal pass, and reports per-variable errors.
//
// Substitution is non-recursive: a value that itself contains <other>
// leaves that text verbatim in the output. Any placeholder still present
// after substitution makes the result invalid for execution.
func PrepareCommandForExecution(cmd *Command, values map[string]string) PreparedCommand {
	prep := PreparedCommand{Errors: make(map[string]string)}

	pairs := make([]string, 0, len(cmd.Variables)*2)
	for i := range cmd.Variables {
		v := &cmd.Variables[i]
		value, ok := values[v.Name]
		if !ok || value == "" {
			value = v.DefaultValue
		}
		if value == "" && v.Required {
			prep.Errors[v.Name] = "required variable has no value"
			continue
		}
		pairs = append(pairs, "<"+v.Name+">", value)
	}

	// strings.Replacer walks the template once and never rescans
	// replaced text, which gives the non-recursive semantics.
	text := strings.NewReplacer(pairs...).Replace(cmd.CommandText)

	for _, leftover := range ExtractVariables(text) {
		if _, already := prep.Errors[leftover]; !already {
			prep.Errors[leftover] = "unresolved placeholder after substitution"
		}
	}

	prep.Text = text
	prep.IsValid = len(prep.Errors) == 0
	if prep.IsValid {
		prep.Errors = nil
	}
	return prep
}
