// Package iam renders link permissions and component grants as AWS IAM policy documents.
package iam

import (
	"encoding/json"
	"fmt"

	"github.com/klothoplatform/platform/pkg/link"
	"github.com/klothoplatform/platform/pkg/output"
)

const Version = "2012-10-17"

type (
	PolicyDocument struct {
		Version   string
		Statement []StatementEntry
	}

	StatementEntry struct {
		Sid       string                  `json:",omitempty" yaml:"sid,omitempty"`
		Effect    string                  `yaml:"effect"`
		Principal map[string]any          `json:",omitempty" yaml:"principal,omitempty"`
		Action    []string                `yaml:"action"`
		Resource  []output.Output[string] `yaml:"resource"`
		Condition map[string]any          `json:",omitempty" yaml:"condition,omitempty"`
	}
)

func effectName(e link.Effect) (string, error) {
	switch e {
	case link.Allow:
		return "Allow", nil
	case link.Deny:
		return "Deny", nil
	}
	return "", fmt.Errorf("invalid effect %q", e)
}

// FromPermissions builds a policy from permissions. Permissions are deduplicated first, then grants with the same
// effect and resource are combined into one statement, in first-seen order.
func FromPermissions(perms ...link.Permission) (*PolicyDocument, error) {
	stmts, err := link.Statements(perms...)
	if err != nil {
		return nil, err
	}
	return FromStatements(stmts)
}

func FromStatements(stmts []link.Statement) (*PolicyDocument, error) {
	doc := &PolicyDocument{Version: Version}
	index := make(map[string]int)
	for _, s := range stmts {
		effect, err := effectName(s.Effect)
		if err != nil {
			return nil, err
		}
		// computed values without a ref all print the same, so they always get their own statement
		keyed := s.Resource.IsKnown() || hasRef(s.Resource)
		key := effect + "\x00" + s.Resource.String()
		if i, ok := index[key]; ok && keyed {
			doc.Statement[i].Action = append(doc.Statement[i].Action, s.Action)
			continue
		}
		if keyed {
			index[key] = len(doc.Statement)
		}
		doc.Statement = append(doc.Statement, StatementEntry{
			Effect:   effect,
			Action:   []string{s.Action},
			Resource: []output.Output[string]{s.Resource},
		})
	}
	return doc, nil
}

func hasRef(o output.Output[string]) bool {
	_, ok := o.Ref()
	return ok
}

// Empty reports whether the policy grants nothing.
func (d *PolicyDocument) Empty() bool {
	return d == nil || len(d.Statement) == 0
}

// Properties is the document as resource properties, outputs kept in place so that the resource depends on them.
func (d *PolicyDocument) Properties() map[string]any {
	statements := make([]any, len(d.Statement))
	for i, s := range d.Statement {
		actions := make([]any, len(s.Action))
		for j, a := range s.Action {
			actions[j] = a
		}
		resources := make([]any, len(s.Resource))
		for j, r := range s.Resource {
			resources[j] = r
		}
		stmt := map[string]any{
			"Effect":   s.Effect,
			"Action":   actions,
			"Resource": resources,
		}
		if s.Sid != "" {
			stmt["Sid"] = s.Sid
		}
		if s.Principal != nil {
			stmt["Principal"] = s.Principal
		}
		if s.Condition != nil {
			stmt["Condition"] = s.Condition
		}
		statements[i] = stmt
	}
	return map[string]any{
		"Version":   d.Version,
		"Statement": statements,
	}
}

// JSON renders the document once every output in it is known, including those in principals and conditions.
func (d *PolicyDocument) JSON() output.Output[string] {
	return output.Apply(output.Await(d.Properties()), func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	})
}
