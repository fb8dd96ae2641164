// Package dns defines the adapter components use to create DNS records for their custom domains, independent of
// which provider hosts the zone.
package dns

//go:generate mockgen -source=./dns.go --destination=./dnstest/adapter_mock.go --package=dnstest

import (
	"fmt"
	"strings"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/output"
)

type (
	// Adapter creates records in the zone for Domain. Adapters are constructed once per domain configuration and
	// record their resources under the component passed to each call.
	Adapter interface {
		Provider() string
		Domain() string
		// CreateAlias points record.Name at a managed endpoint (a CloudFront distribution, an API domain).
		CreateAlias(parent *component.Component, namePrefix string, record AliasRecord) ([]*construct.Resource, error)
		// CreateCaa authorizes the certificate authorities used for certificates on recordName.
		CreateCaa(parent *component.Component, namePrefix string, recordName string) ([]*construct.Resource, error)
		CreateRecord(parent *component.Component, namePrefix string, record Record) (*construct.Resource, error)
	}

	RecordType string

	Record struct {
		Name  output.Output[string]
		Type  RecordType
		Value output.Output[string]
	}

	AliasRecord struct {
		Name      string
		AliasName output.Output[string]
		AliasZone output.Output[string]
	}

	ValidationError struct {
		Domain string
		Name   string
	}
)

const (
	A     RecordType = "A"
	AAAA  RecordType = "AAAA"
	ALIAS RecordType = "ALIAS"
	CAA   RecordType = "CAA"
	CNAME RecordType = "CNAME"
	MX    RecordType = "MX"
	TXT   RecordType = "TXT"

	DefaultTTL = 60
)

// AmazonCAs are the certificate authorities ACM issues from.
var AmazonCAs = []string{"amazon.com", "amazontrust.com", "awstrust.com", "amazonaws.com"}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record name %q is not the domain %q or a subdomain of it", e.Name, e.Domain)
}

func (t RecordType) Validate() error {
	switch t {
	case A, AAAA, ALIAS, CAA, CNAME, MX, TXT:
		return nil
	}
	return fmt.Errorf("unsupported record type %q", t)
}

// ValidateRecordName returns the name with any trailing dot removed, or a *ValidationError if it is neither the
// domain nor a subdomain of it.
func ValidateRecordName(domain, name string) (string, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	trimmed := strings.ToLower(strings.TrimSuffix(name, "."))
	if trimmed == domain || (domain != "" && strings.HasSuffix(trimmed, "."+domain) && len(trimmed) > len(domain)+1) {
		return trimmed, nil
	}
	return "", &ValidationError{Domain: domain, Name: name}
}

// CheckRecordName validates a record name which may not be known yet. A known name is checked immediately so that
// no resource is recorded for it; an unknown one is checked once it resolves, rejecting the returned output.
func CheckRecordName(domain string, name output.Output[string]) (output.Output[string], error) {
	if v, known, err := name.Value(); known {
		if err != nil {
			return output.Output[string]{}, err
		}
		valid, err := ValidateRecordName(domain, v)
		if err != nil {
			return output.Output[string]{}, err
		}
		return output.Of(valid), nil
	}
	return output.Apply(name, func(v string) (string, error) {
		return ValidateRecordName(domain, v)
	}), nil
}

// RelativeName is the record name without the domain, empty for the apex.
func RelativeName(domain, name string) string {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if name == domain {
		return ""
	}
	return strings.TrimSuffix(name, "."+domain)
}

// IsApex reports whether the (validated) name is the domain itself.
func IsApex(domain, name string) bool {
	return RelativeName(domain, name) == ""
}

// NodeName is the component node a record is stored under.
func NodeName(namePrefix string, t RecordType, suffix ...string) string {
	parts := append([]string{namePrefix, string(t), "record"}, suffix...)
	return strings.Join(parts, "-")
}
