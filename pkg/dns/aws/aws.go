// Package aws is the Route 53 DNS adapter.
package aws

import (
	"errors"
	"sync"

	"github.com/klothoplatform/platform/pkg/component"
	"github.com/klothoplatform/platform/pkg/construct"
	"github.com/klothoplatform/platform/pkg/dns"
	"github.com/klothoplatform/platform/pkg/output"
)

type (
	Args struct {
		Domain string
		// Zone is the hosted zone id. When empty, the public zone for Domain is looked up.
		Zone string
		// Override replaces existing records with the same name and type.
		Override bool
	}

	adapter struct {
		args Args

		mu   sync.Mutex
		zone *output.Output[string]
	}
)

var _ dns.Adapter = (*adapter)(nil)

func New(args Args) (dns.Adapter, error) {
	if args.Domain == "" {
		return nil, errors.New("domain is required")
	}
	return &adapter{args: args}, nil
}

func (a *adapter) Provider() string { return "aws" }
func (a *adapter) Domain() string   { return a.args.Domain }

func (a *adapter) zoneId(parent *component.Component) (output.Output[string], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.zone != nil {
		return *a.zone, nil
	}
	if a.args.Zone != "" {
		z := output.Of(a.args.Zone)
		a.zone = &z
		return z, nil
	}
	lookup, err := parent.AddResource("zone", component.ResourceArgs{
		Provider: "aws",
		Type:     "route53_zone_lookup",
		Properties: construct.Properties{
			"name":        a.args.Domain,
			"privateZone": false,
		},
	})
	if err != nil {
		return output.Output[string]{}, err
	}
	z := parent.Attr(lookup, "zoneId")
	a.zone = &z
	return z, nil
}

func (a *adapter) CreateAlias(parent *component.Component, namePrefix string, record dns.AliasRecord) ([]*construct.Resource, error) {
	name, err := dns.ValidateRecordName(a.args.Domain, record.Name)
	if err != nil {
		return nil, err
	}
	zone, err := a.zoneId(parent)
	if err != nil {
		return nil, err
	}
	var records []*construct.Resource
	for _, t := range []dns.RecordType{dns.A, dns.AAAA} {
		r, err := parent.AddResource(dns.NodeName(namePrefix, t), component.ResourceArgs{
			Provider: "aws",
			Type:     "route53_record",
			Properties: construct.Properties{
				"zoneId": zone,
				"name":   name,
				"type":   string(t),
				"aliases": []any{map[string]any{
					"name":                 record.AliasName,
					"zoneId":               record.AliasZone,
					"evaluateTargetHealth": true,
				}},
				"allowOverwrite": a.args.Override,
			},
		})
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// CreateCaa records nothing: ACM can issue certificates for Route 53 zones without CAA records.
func (a *adapter) CreateCaa(parent *component.Component, namePrefix string, recordName string) ([]*construct.Resource, error) {
	_, err := dns.ValidateRecordName(a.args.Domain, recordName)
	return nil, err
}

func (a *adapter) CreateRecord(parent *component.Component, namePrefix string, record dns.Record) (*construct.Resource, error) {
	if err := record.Type.Validate(); err != nil {
		return nil, err
	}
	name, err := dns.CheckRecordName(a.args.Domain, record.Name)
	if err != nil {
		return nil, err
	}
	zone, err := a.zoneId(parent)
	if err != nil {
		return nil, err
	}
	return parent.AddResource(dns.NodeName(namePrefix, record.Type), component.ResourceArgs{
		Provider: "aws",
		Type:     "route53_record",
		Properties: construct.Properties{
			"zoneId":         zone,
			"name":           name,
			"type":           string(record.Type),
			"ttl":            dns.DefaultTTL,
			"records":        []any{record.Value},
			"allowOverwrite": a.args.Override,
		},
	})
}
