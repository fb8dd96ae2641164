// Package vercel is the Vercel DNS adapter. Vercel stores record names relative to the domain, with the apex
// as the empty name.
package vercel

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/output"
)

type (
	Args struct {
		Domain string
		// TeamId owning the domain, when it is not on the personal account.
		TeamId string
	}

	adapter struct {
		args Args
	}
)

var _ dns.Adapter = (*adapter)(nil)

func New(args Args) (dns.Adapter, error) {
	if args.Domain == "" {
		return nil, errors.New("domain is required")
	}
	return &adapter{args: args}, nil
}

func (a *adapter) Provider() string { return "vercel" }
func (a *adapter) Domain() string   { return a.args.Domain }

func (a *adapter) record(parent *component.Component, node string, name any, t dns.RecordType, value any) (*construct.Resource, error) {
	props := construct.Properties{
		"domain": a.args.Domain,
		"name":   name,
		"type":   string(t),
		"value":  value,
		"ttl":    dns.DefaultTTL,
	}
	if a.args.TeamId != "" {
		props["teamId"] = a.args.TeamId
	}
	return parent.AddResource(node, component.ResourceArgs{
		Provider:   "vercel",
		Type:       "dns_record",
		Properties: props,
	})
}

// CreateAlias uses ALIAS at the apex, where CNAMEs are not allowed, and CNAME on subdomains.
func (a *adapter) CreateAlias(parent *component.Component, namePrefix string, record dns.AliasRecord) ([]*construct.Resource, error) {
	name, err := dns.ValidateRecordName(a.args.Domain, record.Name)
	if err != nil {
		return nil, err
	}
	t := dns.CNAME
	if dns.IsApex(a.args.Domain, name) {
		t = dns.ALIAS
	}
	r, err := a.record(parent, dns.NodeName(namePrefix, t), dns.RelativeName(a.args.Domain, name), t, record.AliasName)
	if err != nil {
		return nil, err
	}
	return []*construct.Resource{r}, nil
}

func (a *adapter) CreateCaa(parent *component.Component, namePrefix string, recordName string) ([]*construct.Resource, error) {
	name, err := dns.ValidateRecordName(a.args.Domain, recordName)
	if err != nil {
		return nil, err
	}
	relative := dns.RelativeName(a.args.Domain, name)
	var records []*construct.Resource
	for i, ca := range dns.AmazonCAs {
		r, err := a.record(parent, dns.NodeName(namePrefix, dns.CAA, strconv.Itoa(i)), relative, dns.CAA, fmt.Sprintf(`0 issue "%s"`, ca))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (a *adapter) CreateRecord(parent *component.Component, namePrefix string, record dns.Record) (*construct.Resource, error) {
	if err := record.Type.Validate(); err != nil {
		return nil, err
	}
	name, err := dns.CheckRecordName(a.args.Domain, record.Name)
	if err != nil {
		return nil, err
	}
	relative := output.Apply(name, func(n string) (string, error) {
		return dns.RelativeName(a.args.Domain, n), nil
	})
	return a.record(parent, dns.NodeName(namePrefix, record.Type), relative, record.Type, record.Value)
}
