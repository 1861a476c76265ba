package command

import (
	"reflect"
	"testing"
)

func TestExtractVariables(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{"none", "show version", nil},
		{"single", "ping <target>", []string{"target"}},
		{"ordered", "ping <target> source <source>", []string{"target", "source"}},
		{"deduped first occurrence", "copy <src> <dst> verify <src>", []string{"src", "dst"}},
		{"malformed still extracted", "show <bad-name> detail", []string{"bad-name"}},
		{"empty brackets ignored", "show <> detail", nil},
		{"adjacent", "show vlan <vid><suffix>", []string{"vid", "suffix"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractVariables(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("ExtractVariables(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"target", "_ok1", "A9_", "_", "snake_case_name"}
	for _, name := range valid {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "1bad", "bad-name", "has space", "naïve", "a.b"}
	for _, name := range invalid {
		if err := ValidateIdentifier(name); err == nil {
			t.Errorf("ValidateIdentifier(%q) = nil, want error", name)
		}
	}
}

func TestValidateVariables(t *testing.T) {
	cmd := &Command{
		CommandText: "ping <target> source <source>",
		Variables: []CommandVariable{
			{Name: "target", VariableType: VariableTypeText},
		},
	}
	missing, err := ValidateVariables(cmd)
	if err != nil {
		t.Fatalf("ValidateVariables: %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"source"}) {
		t.Errorf("missing = %v, want [source]", missing)
	}
}

func TestValidateVariablesRejectsMalformedPlaceholder(t *testing.T) {
	cmd := &Command{CommandText: "show <bad-name>"}
	if _, err := ValidateVariables(cmd); err == nil {
		t.Error("malformed placeholder should be a save-time error")
	}
}

func TestValidateVariablesRejectsDuplicateDefinition(t *testing.T) {
	cmd := &Command{
		CommandText: "ping <target>",
		Variables: []CommandVariable{
			{Name: "target"},
			{Name: "target"},
		},
	}
	if _, err := ValidateVariables(cmd); err == nil {
		t.Error("duplicate variable definition should be rejected")
	}
}

func TestPrepareCommandForExecution(t *testing.T) {
	cmd := &Command{
		CommandText: "ping <target> repeat <count>",
		Variables: []CommandVariable{
			{Name: "target", Required: true},
			{Name: "count", DefaultValue: "5"},
		},
	}

	prep := PrepareCommandForExecution(cmd, map[string]string{"target": "10.0.0.1"})
	if !prep.IsValid {
		t.Fatalf("prep invalid: %v", prep.Errors)
	}
	if prep.Text != "ping 10.0.0.1 repeat 5" {
		t.Errorf("Text = %q", prep.Text)
	}
}

func TestPrepareMissingRequired(t *testing.T) {
	cmd := &Command{
		CommandText: "ping <target>",
		Variables:   []CommandVariable{{Name: "target", Required: true}},
	}

	prep := PrepareCommandForExecution(cmd, nil)
	if prep.IsValid {
		t.Fatal("missing required value should invalidate the result")
	}
	if _, ok := prep.Errors["target"]; !ok {
		t.Errorf("Errors = %v, want entry for target", prep.Errors)
	}
}

func TestPrepareOptionalDefaultsToEmpty(t *testing.T) {
	cmd := &Command{
		CommandText: "show run <section>",
		Variables:   []CommandVariable{{Name: "section"}},
	}

	prep := PrepareCommandForExecution(cmd, nil)
	if !prep.IsValid {
		t.Fatalf("prep invalid: %v", prep.Errors)
	}
	if prep.Text != "show run " {
		t.Errorf("Text = %q", prep.Text)
	}
}

func TestPrepareSubstitutionIsNotRecursive(t *testing.T) {
	cmd := &Command{
		CommandText: "ping <target>",
		Variables: []CommandVariable{
			{Name: "target", Required: true},
			{Name: "other", DefaultValue: "surprise"},
		},
	}

	prep := PrepareCommandForExecution(cmd, map[string]string{"target": "<other>"})
	if prep.Text != "ping <other>" {
		t.Errorf("Text = %q, want %q", prep.Text, "ping <other>")
	}
	// The injected placeholder survives substitution, which makes the
	// result unsafe to execute.
	if prep.IsValid {
		t.Error("residual placeholder should invalidate the result")
	}
}

func TestPrepareResidualPlaceholderIsFatal(t *testing.T) {
	cmd := &Command{
		CommandText: "show <undeclared>",
	}

	prep := PrepareCommandForExecution(cmd, nil)
	if prep.IsValid {
		t.Fatal("undeclared placeholder in output should invalidate the result")
	}
	if _, ok := prep.Errors["undeclared"]; !ok {
		t.Errorf("Errors = %v, want entry for undeclared", prep.Errors)
	}
}
